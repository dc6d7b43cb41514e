package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// Authentication events
	EventAuthenticationSuccess EventType = "AUTHENTICATION_SUCCESS"
	EventAuthenticationFailure EventType = "AUTHENTICATION_FAILURE"
	EventOTPVerified           EventType = "OTP_VERIFIED"
	EventPasswordReset         EventType = "PASSWORD_RESET"
	EventLogout                EventType = "LOGOUT"

	// Token events
	EventAccessTokenIssued  EventType = "ACCESS_TOKEN_ISSUED"
	EventRefreshTokenIssued EventType = "REFRESH_TOKEN_ISSUED"
	EventTokenRefreshed     EventType = "TOKEN_REFRESHED"
	EventTokenRevoked       EventType = "TOKEN_REVOKED"

	// Share grant events
	EventGrantCreated  EventType = "GRANT_CREATED"
	EventGrantRevoked  EventType = "GRANT_REVOKED"
	EventGrantRedeemed EventType = "GRANT_REDEEMED"
	EventGrantDenied   EventType = "GRANT_REDEMPTION_DENIED"

	// Security events
	EventRateLimitExceeded EventType = "RATE_LIMIT_EXCEEDED"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// ResourceType represents the type of resource being operated on
type ResourceType string

const (
	ResourceUser   ResourceType = "USER"
	ResourceToken  ResourceType = "TOKEN"
	ResourceGrant  ResourceType = "GRANT"
	ResourceRecord ResourceType = "RECORD"
)

// AuditDetails stores additional event-specific information as JSON
type AuditDetails map[string]any

// Value implements the driver.Valuer interface for database storage
func (a AuditDetails) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil //nolint:nilnil // nil driver.Value represents SQL NULL, which is valid here
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for database retrieval
func (a *AuditDetails) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			bytes = []byte(str)
		} else {
			return fmt.Errorf("failed to unmarshal AuditDetails value: %v", value)
		}
	}

	result := make(AuditDetails)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}

	*a = result
	return nil
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	// Event information
	EventType EventType     `gorm:"type:varchar(50);index;not null" json:"event_type"`
	EventTime time.Time     `gorm:"index;not null"                  json:"event_time"`
	Severity  EventSeverity `gorm:"type:varchar(20);not null"       json:"severity"`

	// Actor information
	ActorUserID string `gorm:"type:varchar(36);index" json:"actor_user_id"`
	ActorEmail  string `gorm:"type:varchar(255)"      json:"actor_email"`
	ActorIP     string `gorm:"type:varchar(45);index" json:"actor_ip"` // Support IPv6

	// Resource information
	ResourceType ResourceType `gorm:"type:varchar(50);index" json:"resource_type"`
	ResourceID   string       `gorm:"type:varchar(36);index" json:"resource_id"`

	// Operation details
	Action       string       `gorm:"type:varchar(255);not null" json:"action"`
	Details      AuditDetails `gorm:"type:json"                  json:"details"`
	Success      bool         `gorm:"index;not null"             json:"success"`
	ErrorMessage string       `gorm:"type:text"                  json:"error_message,omitempty"`

	// Request metadata
	UserAgent string `gorm:"type:varchar(500)" json:"user_agent,omitempty"`

	// Timestamps (no UpdatedAt - immutable logs)
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AccessLog is the append-only compliance record of a successful grant
// redemption. Written transactionally with the redemption itself; never
// updated or deleted.
type AccessLog struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	GrantID     string `gorm:"not null;index"              json:"grant_id"`
	ClinicianID string `gorm:"not null;index"              json:"clinician_id"`
	PatientID   string `gorm:"not null;index"              json:"patient_id"`

	// The record IDs actually returned (deleted records already dropped)
	RecordIDs StringArray `gorm:"type:json;not null" json:"record_ids"`

	IPAddress  string    `gorm:"type:varchar(45)"  json:"ip_address,omitempty"`
	UserAgent  string    `gorm:"type:varchar(500)" json:"user_agent,omitempty"`
	AccessedAt time.Time `gorm:"index;not null"    json:"accessed_at"`
}

// TableName specifies the table name for GORM
func (AccessLog) TableName() string {
	return "access_logs"
}
