package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LocalTokenProvider generates and validates JWT tokens locally
type LocalTokenProvider struct {
	config *config.Config
}

// NewLocalTokenProvider creates a new local token provider
func NewLocalTokenProvider(cfg *config.Config) *LocalTokenProvider {
	return &LocalTokenProvider{config: cfg}
}

// generateJWT creates a signed JWT token with the given claims and expiration
func (p *LocalTokenProvider) generateJWT(
	userID, role, tokenType string,
	expiresAt time.Time,
) (*Result, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"type":    tokenType,
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
		"iss":     p.config.BaseURL,
		"sub":     userID,
		"jti":     uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(p.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &Result{
		TokenString: tokenString,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
		Claims:      claims,
		Success:     true,
	}, nil
}

// GenerateAccessToken creates a short-lived access token JWT
func (p *LocalTokenProvider) GenerateAccessToken(
	ctx context.Context,
	userID, role string,
) (*Result, error) {
	expiresAt := time.Now().Add(p.config.AccessTokenExpiration)
	return p.generateJWT(userID, role, "access", expiresAt)
}

// GenerateRefreshToken creates a refresh token JWT with longer expiration
func (p *LocalTokenProvider) GenerateRefreshToken(
	ctx context.Context,
	userID, role string,
) (*Result, error) {
	expiresAt := time.Now().Add(p.config.RefreshTokenExpiration)
	return p.generateJWT(userID, role, "refresh", expiresAt)
}

// ValidateToken verifies an access token JWT using local verification
func (p *LocalTokenProvider) ValidateToken(
	ctx context.Context,
	tokenString string,
) (*ValidationResult, error) {
	return p.validate(tokenString, "access", ErrExpiredToken, ErrInvalidToken)
}

// ValidateRefreshToken verifies a refresh token JWT
func (p *LocalTokenProvider) ValidateRefreshToken(
	ctx context.Context,
	tokenString string,
) (*ValidationResult, error) {
	return p.validate(tokenString, "refresh", ErrExpiredRefreshToken, ErrInvalidRefreshToken)
}

func (p *LocalTokenProvider) validate(
	tokenString, wantType string,
	errExpired, errInvalid error,
) (*ValidationResult, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.config.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errExpired
		}
		return nil, fmt.Errorf("%w: %v", errInvalid, err)
	}

	if !token.Valid {
		return nil, errInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalid
	}

	// An access token presented where a refresh token is expected (or the
	// other way round) is rejected outright.
	tokenType, _ := claims["type"].(string)
	if tokenType != wantType {
		return nil, errInvalid
	}

	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	tokenID, _ := claims["jti"].(string)

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errInvalid
	}
	expiresAt := time.Unix(int64(exp), 0)

	return &ValidationResult{
		Valid:     true,
		UserID:    userID,
		Role:      role,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
		Claims:    claims,
	}, nil
}

// Name returns provider name for logging
func (p *LocalTokenProvider) Name() string {
	return "local"
}
