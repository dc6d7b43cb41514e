package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrRefreshTokenUsed is returned by RotateRefreshToken when the token
	// was already consumed by a concurrent request (0 rows updated).
	ErrRefreshTokenUsed = errors.New("refresh token already used")

	// ErrOTPUsed is returned by ConsumeOTP when the code was already
	// consumed or has expired.
	ErrOTPUsed = errors.New("one-time code already used or expired")

	// Grant consume outcomes. RedeemGrant returns exactly one of these when
	// the conditional increment matches no row.
	ErrGrantNotFound  = errors.New("grant not found")
	ErrGrantRevoked   = errors.New("grant revoked")
	ErrGrantExpired   = errors.New("grant expired")
	ErrGrantExhausted = errors.New("grant redemption limit reached")
)
