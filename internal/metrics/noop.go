package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Token Operations - noop implementations
func (n *NoopMetrics) RecordTokenIssued(tokenCategory string, generationTime time.Duration) {}
func (n *NoopMetrics) RecordTokenRevoked(tokenCategory, reason string)                      {}
func (n *NoopMetrics) RecordTokenRefresh(success bool)                                      {}
func (n *NoopMetrics) RecordTokenValidation(result string, duration time.Duration)          {}

// Authentication - noop implementations
func (n *NoopMetrics) RecordAuthAttempt(success bool, duration time.Duration) {}
func (n *NoopMetrics) RecordOTPIssued()                                       {}
func (n *NoopMetrics) RecordOTPVerification(success bool)                     {}
func (n *NoopMetrics) RecordLogout()                                          {}

// Grant Lifecycle - noop implementations
func (n *NoopMetrics) RecordGrantCreated(deliveryMethod string)                 {}
func (n *NoopMetrics) RecordGrantRevoked()                                      {}
func (n *NoopMetrics) RecordRedemption(outcome string, duration time.Duration)  {}

// Audit Pipeline - noop implementations
func (n *NoopMetrics) RecordAuditEventDropped() {}

// Gauge Setters - noop implementations
func (n *NoopMetrics) SetActiveTokensCount(tokenCategory string, count int) {}
func (n *NoopMetrics) SetActiveGrantsCount(count int)                       {}

// Database Operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
