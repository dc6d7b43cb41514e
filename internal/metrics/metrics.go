package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Token Metrics
	TokensIssuedTotal       *prometheus.CounterVec
	TokensRevokedTotal      *prometheus.CounterVec
	TokensRefreshedTotal    *prometheus.CounterVec
	TokenValidationTotal    *prometheus.CounterVec
	TokensActive            *prometheus.GaugeVec
	TokenGenerationDuration prometheus.Histogram

	// Authentication Metrics
	AuthAttemptsTotal    *prometheus.CounterVec
	AuthLoginDuration    prometheus.Histogram
	AuthLogoutTotal      prometheus.Counter
	OTPIssuedTotal       prometheus.Counter
	OTPVerificationTotal *prometheus.CounterVec

	// Grant Lifecycle Metrics
	GrantsCreatedTotal  *prometheus.CounterVec
	GrantsRevokedTotal  prometheus.Counter
	GrantsActive        prometheus.Gauge
	RedemptionsTotal    *prometheus.CounterVec
	RedemptionDuration  prometheus.Histogram

	// Audit Pipeline Metrics
	AuditEventsDroppedTotal prometheus.Counter

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		// Token Metrics
		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_tokens_issued_total",
				Help: "Total number of session tokens issued",
			},
			[]string{"token_category"}, // access, refresh
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_tokens_revoked_total",
				Help: "Total number of session tokens revoked",
			},
			[]string{"reason"}, // logout, rotation, security
		),
		TokensRefreshedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_tokens_refreshed_total",
				Help: "Total number of token refresh attempts",
			},
			[]string{"result"}, // success, error
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_token_validation_total",
				Help: "Total number of token validations",
			},
			[]string{"result"}, // valid, invalid, expired
		),
		TokensActive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "session_tokens_active",
				Help: "Current number of active session tokens",
			},
			[]string{"token_category"}, // access, refresh
		),
		TokenGenerationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "session_token_generation_duration_seconds",
				Help:    "Time taken to generate tokens",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Authentication Metrics
		AuthAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of authentication attempts",
			},
			[]string{"result"}, // success, failure
		),
		AuthLoginDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "auth_login_duration_seconds",
				Help:    "Time taken to complete login",
				Buckets: prometheus.DefBuckets,
			},
		),
		AuthLogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),
		OTPIssuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_otp_issued_total",
				Help: "Total number of one-time codes issued",
			},
		),
		OTPVerificationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_otp_verification_total",
				Help: "Total number of one-time code verification attempts",
			},
			[]string{"result"}, // success, failure
		),

		// Grant Lifecycle Metrics
		GrantsCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "share_grants_created_total",
				Help: "Total number of share grants created",
			},
			[]string{"delivery_method"}, // QR_CODE, URL
		),
		GrantsRevokedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "share_grants_revoked_total",
				Help: "Total number of share grants revoked",
			},
		),
		GrantsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "share_grants_active",
				Help: "Current number of redeemable share grants",
			},
		),
		RedemptionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "share_grant_redemptions_total",
				Help: "Total number of grant redemption attempts",
			},
			[]string{
				"outcome",
			}, // success, not_found, revoked, expired, exhausted, invalid_payload, error
		),
		RedemptionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "share_grant_redemption_duration_seconds",
				Help:    "Time taken to process a redemption",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Audit Pipeline Metrics
		AuditEventsDroppedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_events_dropped_total",
				Help: "Total number of audit events dropped due to a full buffer",
			},
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"}, // count_tokens, count_grants
		),
	}

	return m
}

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(tokenCategory string, generationTime time.Duration) {
	m.TokensIssuedTotal.WithLabelValues(tokenCategory).Inc()
	m.TokensActive.WithLabelValues(tokenCategory).Inc()
	m.TokenGenerationDuration.Observe(generationTime.Seconds())
}

// RecordTokenRevoked records token revocation
func (m *Metrics) RecordTokenRevoked(tokenCategory, reason string) {
	m.TokensRevokedTotal.WithLabelValues(reason).Inc()
	m.TokensActive.WithLabelValues(tokenCategory).Dec()
}

// RecordTokenRefresh records a token refresh attempt
func (m *Metrics) RecordTokenRefresh(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.TokensRefreshedTotal.WithLabelValues(result).Inc()
}

// RecordTokenValidation records token validation
func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	// result: valid, invalid, expired
	m.TokenValidationTotal.WithLabelValues(result).Inc()
}

// RecordAuthAttempt records an authentication attempt
func (m *Metrics) RecordAuthAttempt(success bool, duration time.Duration) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthAttemptsTotal.WithLabelValues(result).Inc()
	m.AuthLoginDuration.Observe(duration.Seconds())
}

// RecordOTPIssued records issuance of a one-time code
func (m *Metrics) RecordOTPIssued() {
	m.OTPIssuedTotal.Inc()
}

// RecordOTPVerification records a one-time code verification attempt
func (m *Metrics) RecordOTPVerification(success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.OTPVerificationTotal.WithLabelValues(result).Inc()
}

// RecordLogout records logout
func (m *Metrics) RecordLogout() {
	m.AuthLogoutTotal.Inc()
}

// RecordGrantCreated records share grant creation
func (m *Metrics) RecordGrantCreated(deliveryMethod string) {
	m.GrantsCreatedTotal.WithLabelValues(deliveryMethod).Inc()
	m.GrantsActive.Inc()
}

// RecordGrantRevoked records share grant revocation
func (m *Metrics) RecordGrantRevoked() {
	m.GrantsRevokedTotal.Inc()
	m.GrantsActive.Dec()
}

// RecordRedemption records a grant redemption attempt
func (m *Metrics) RecordRedemption(outcome string, duration time.Duration) {
	m.RedemptionsTotal.WithLabelValues(outcome).Inc()
	m.RedemptionDuration.Observe(duration.Seconds())
}

// RecordAuditEventDropped records an audit event lost to backpressure
func (m *Metrics) RecordAuditEventDropped() {
	m.AuditEventsDroppedTotal.Inc()
}

// SetActiveTokensCount sets the current count of active tokens (for periodic updates)
func (m *Metrics) SetActiveTokensCount(tokenCategory string, count int) {
	m.TokensActive.WithLabelValues(tokenCategory).Set(float64(count))
}

// SetActiveGrantsCount sets the current count of redeemable grants (for periodic updates)
func (m *Metrics) SetActiveGrantsCount(count int) {
	m.GrantsActive.Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
