package core

import (
	"context"
	"time"
)

// TokenResult is the outcome of a token generation call.
type TokenResult struct {
	TokenString string
	TokenType   string
	ExpiresAt   time.Time
	Claims      map[string]any
	Success     bool
}

// TokenValidationResult is the outcome of a token validation call.
type TokenValidationResult struct {
	Valid     bool
	UserID    string
	Role      string
	TokenID   string
	ExpiresAt time.Time
	Claims    map[string]any
}

// TokenPairResult bundles the access/refresh pair issued on login and
// on every refresh (refresh tokens are always rotated).
type TokenPairResult struct {
	AccessToken  *TokenResult
	RefreshToken *TokenResult
	Success      bool
}

// TokenProvider is the interface that token-generation backends must
// implement.
type TokenProvider interface {
	GenerateAccessToken(ctx context.Context, userID, role string) (*TokenResult, error)
	GenerateRefreshToken(ctx context.Context, userID, role string) (*TokenResult, error)
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResult, error)
	ValidateRefreshToken(ctx context.Context, tokenString string) (*TokenValidationResult, error)
	Name() string
}
