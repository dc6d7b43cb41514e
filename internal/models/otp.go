package models

import "time"

// OTP purposes
const (
	OTPPurposeLogin         = "login"
	OTPPurposeVerifyEmail   = "verify_email"
	OTPPurposePasswordReset = "password_reset"
)

// OTPCode is a short-lived one-time code used as the second factor for
// login, email verification and password reset.
type OTPCode struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	Code      string `gorm:"not null"`
	Purpose   string `gorm:"not null;index"`
	ExpiresAt time.Time
	Used      bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (o *OTPCode) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}
