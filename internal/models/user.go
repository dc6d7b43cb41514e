package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User roles
const (
	RolePatient   = "PATIENT"
	RoleClinician = "CLINICIAN"
	RoleAdmin     = "ADMIN"
)

type User struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null" json:"-"`
	FullName     string
	Role         string `gorm:"not null;index"` // PATIENT, CLINICIAN or ADMIN

	// Account is inactive until the email OTP has been verified
	Active bool `gorm:"not null;default:false"`

	// Clinician-specific fields
	Specialization string
	LicenseNumber  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPatient returns true if the user has the patient role
func (u *User) IsPatient() bool {
	return u.Role == RolePatient
}

// IsClinician returns true if the user has the clinician role
func (u *User) IsClinician() bool {
	return u.Role == RoleClinician
}

// IsAdmin returns true if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CheckPassword compares a plaintext password against the stored bcrypt hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
