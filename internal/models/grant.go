package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Grant delivery methods
const (
	DeliveryQR  = "QR"
	DeliveryURL = "URL"
)

// StringArray is a custom type for []string stored as JSON in the database
type StringArray []string

// Scan implements sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			bytes = []byte(str)
		} else {
			return errors.New("failed to unmarshal JSON value")
		}
	}
	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

// ShareGrant is a patient-issued, bounded authorization to retrieve a fixed
// set of record identifiers. The grant ID is a UUIDv4 and is the sole secret
// protecting the records; it is only ever transmitted inside a signed
// delivery payload.
//
// Mutable fields are RedemptionCount and Revoked/RevokedAt; both are only
// changed through the store's conditional updates so that concurrent
// redemptions and revocations stay linearized.
type ShareGrant struct {
	ID        string `gorm:"primaryKey"`
	PatientID string `gorm:"not null;index:idx_share_grants_patient"`

	// Snapshot of the shared record IDs taken at creation time. Records
	// deleted afterwards are dropped from redemption results, not errors.
	RecordIDs StringArray `gorm:"type:json;not null"`

	DeliveryMethod string `gorm:"not null"` // QR or URL

	ExpiresAt       time.Time `gorm:"not null;index"`
	MaxRedemptions  *int      // nil = unlimited
	RedemptionCount int       `gorm:"not null;default:0"`

	Revoked   bool `gorm:"not null;default:false;index:idx_share_grants_patient"`
	RevokedAt *time.Time

	CreatedAt time.Time
}

// IsExpired returns true if the grant's expiry has passed
func (g *ShareGrant) IsExpired() bool {
	return !time.Now().Before(g.ExpiresAt)
}

// IsExhausted returns true if the redemption bound has been reached
func (g *ShareGrant) IsExhausted() bool {
	return g.MaxRedemptions != nil && g.RedemptionCount >= *g.MaxRedemptions
}

// Redeemable returns true if the grant can still be redeemed right now
func (g *ShareGrant) Redeemable() bool {
	return !g.Revoked && !g.IsExpired() && !g.IsExhausted()
}

// TableName overrides the table name used by ShareGrant to `share_grants`
func (ShareGrant) TableName() string {
	return "share_grants"
}
