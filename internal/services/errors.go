package services

import "errors"

// Service-level errors. Handlers map these onto HTTP status codes with
// errors.Is; nothing below this layer leaks gorm or driver errors upward.
var (
	// Authentication
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid or expired verification code")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUserInactive       = errors.New("user account is disabled")
	ErrSessionExpired     = errors.New("session expired")

	// Grant creation
	ErrInvalidRange   = errors.New("expiry outside the allowed window")
	ErrEmptySelection = errors.New("no records selected")
	ErrForbidden      = errors.New("operation not permitted")

	// Records
	ErrRecordNotFound = errors.New("record not found")

	// Grant redemption
	ErrGrantNotFound  = errors.New("grant not found")
	ErrGrantExpired   = errors.New("grant expired")
	ErrGrantRevoked   = errors.New("grant revoked")
	ErrGrantExhausted = errors.New("grant redemption limit reached")
	ErrInvalidPayload = errors.New("invalid share payload")

	// Infrastructure
	ErrStorageUnavailable = errors.New("storage unavailable")
)
