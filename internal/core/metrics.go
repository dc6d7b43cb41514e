package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Token Operations
	RecordTokenIssued(tokenCategory string, generationTime time.Duration)
	RecordTokenRevoked(tokenCategory, reason string)
	RecordTokenRefresh(success bool)
	RecordTokenValidation(result string, duration time.Duration)

	// Authentication
	RecordAuthAttempt(success bool, duration time.Duration)
	RecordOTPIssued()
	RecordOTPVerification(success bool)
	RecordLogout()

	// Grant Lifecycle
	RecordGrantCreated(deliveryMethod string)
	RecordGrantRevoked()
	RecordRedemption(outcome string, duration time.Duration)

	// Audit Pipeline
	RecordAuditEventDropped()

	// Gauge Setters (for periodic updates)
	SetActiveTokensCount(tokenCategory string, count int)
	SetActiveGrantsCount(count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed by the gauge updater.
type MetricsStore interface {
	CountActiveTokensByCategory(category string, now time.Time) (int64, error)
	CountActiveGrants(now time.Time) (int64, error)
}
