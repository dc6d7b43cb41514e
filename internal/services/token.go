package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/core"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/metrics"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/util"
)

// TokenService issues, refreshes, and revokes session token pairs. Every
// issued token is also persisted (hashed) so the server can revoke it and
// enforce single-use refresh rotation independent of JWT validity.
type TokenService struct {
	store        *store.Store
	config       *config.Config
	provider     core.TokenProvider
	auditService *AuditService
	metrics      metrics.Recorder
}

func NewTokenService(
	s *store.Store,
	cfg *config.Config,
	provider core.TokenProvider,
	auditService *AuditService,
	m metrics.Recorder,
) *TokenService {
	return &TokenService{
		store:        s,
		config:       cfg,
		provider:     provider,
		auditService: auditService,
		metrics:      m,
	}
}

// CredentialPair is the access/refresh pair handed to a client session.
type CredentialPair struct {
	AccessToken      string       `json:"access_token"`
	RefreshToken     string       `json:"refresh_token"`
	TokenType        string       `json:"token_type"`
	ExpiresIn        int64        `json:"expires_in"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	User             *models.User `json:"user,omitempty"`
}

// IssuePair generates and persists a fresh access/refresh pair for a user.
func (s *TokenService) IssuePair(ctx context.Context, user *models.User) (*CredentialPair, error) {
	start := time.Now()

	access, err := s.provider.GenerateAccessToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.provider.GenerateRefreshToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	accessRow := &models.SessionToken{
		ID:            tokenID(access),
		TokenHash:     util.SHA256Hex(access.TokenString),
		TokenCategory: models.TokenCategoryAccess,
		Status:        models.TokenStatusActive,
		UserID:        user.ID,
		ExpiresAt:     access.ExpiresAt,
	}
	refreshRow := &models.SessionToken{
		ID:            tokenID(refresh),
		TokenHash:     util.SHA256Hex(refresh.TokenString),
		TokenCategory: models.TokenCategoryRefresh,
		Status:        models.TokenStatusActive,
		UserID:        user.ID,
		ExpiresAt:     refresh.ExpiresAt,
		ParentTokenID: accessRow.ID,
	}
	if err := s.store.CreateTokenPair(accessRow, refreshRow); err != nil {
		return nil, ErrStorageUnavailable
	}

	s.metrics.RecordTokenIssued(models.TokenCategoryAccess, time.Since(start))
	s.metrics.RecordTokenIssued(models.TokenCategoryRefresh, 0)

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventAccessTokenIssued,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ActorEmail:   user.Email,
		ResourceType: models.ResourceToken,
		ResourceID:   accessRow.ID,
		Action:       "issue token pair",
		Success:      true,
	})

	return &CredentialPair{
		AccessToken:      access.TokenString,
		RefreshToken:     refresh.TokenString,
		TokenType:        access.TokenType,
		ExpiresIn:        int64(time.Until(access.ExpiresAt).Seconds()),
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
		User:             user,
	}, nil
}

// Refresh rotates a refresh token: exactly one concurrent caller wins the
// conditional consume, gets a new pair, and the old refresh token is dead
// either way. Replayed or unknown tokens fail with ErrSessionExpired.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*CredentialPair, error) {
	// Signature and expiry check before any storage access
	claims, err := s.provider.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		return nil, ErrSessionExpired
	}

	// Single-use consume
	consumed, err := s.store.RotateRefreshToken(util.SHA256Hex(refreshToken), time.Now())
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		switch {
		case errors.Is(err, store.ErrRefreshTokenUsed):
			// Replay of a rotated token. Revoke the whole family: either a
			// client bug or a stolen token, and the legitimate holder can
			// re-authenticate.
			log.Printf("[Token] Refresh token replay for user=%s, revoking session", claims.UserID)
			if revokeErr := s.store.RevokeTokensByUserID(claims.UserID); revokeErr != nil {
				log.Printf("[Token] Failed to revoke tokens for user=%s: %v", claims.UserID, revokeErr)
			}
			s.auditService.Log(ctx, AuditLogEntry{
				EventType:    models.EventTokenRevoked,
				Severity:     models.SeverityCritical,
				ActorUserID:  claims.UserID,
				ResourceType: models.ResourceToken,
				Action:       "refresh token replay detected",
				Success:      false,
				ErrorMessage: err.Error(),
			})
			return nil, ErrSessionExpired
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, ErrSessionExpired
		default:
			return nil, ErrStorageUnavailable
		}
	}

	user, err := s.store.GetUserByID(consumed.UserID)
	if err != nil || !user.Active {
		s.metrics.RecordTokenRefresh(false)
		return nil, ErrSessionExpired
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		return nil, err
	}

	s.metrics.RecordTokenRefresh(true)
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventTokenRefreshed,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ActorEmail:   user.Email,
		ResourceType: models.ResourceToken,
		ResourceID:   consumed.ID,
		Action:       "rotate refresh token",
		Success:      true,
	})
	return pair, nil
}

// Validate checks an access token's signature, expiry, and revocation
// status, returning its claims.
func (s *TokenService) Validate(ctx context.Context, accessToken string) (*core.TokenValidationResult, error) {
	start := time.Now()

	claims, err := s.provider.ValidateToken(ctx, accessToken)
	if err != nil {
		s.metrics.RecordTokenValidation("invalid", time.Since(start))
		return nil, ErrSessionExpired
	}

	row, err := s.store.GetTokenByHash(util.SHA256Hex(accessToken))
	if err != nil {
		s.metrics.RecordTokenValidation("invalid", time.Since(start))
		return nil, ErrSessionExpired
	}
	if !row.IsActive() {
		s.metrics.RecordTokenValidation("expired", time.Since(start))
		return nil, ErrSessionExpired
	}

	s.metrics.RecordTokenValidation("valid", time.Since(start))
	return claims, nil
}

// Logout revokes every active token the user holds.
func (s *TokenService) Logout(ctx context.Context, userID string) error {
	if err := s.store.RevokeTokensByUserID(userID); err != nil {
		return ErrStorageUnavailable
	}

	s.metrics.RecordLogout()
	s.metrics.RecordTokenRevoked(models.TokenCategoryAccess, "logout")
	s.metrics.RecordTokenRevoked(models.TokenCategoryRefresh, "logout")
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventLogout,
		Severity:     models.SeverityInfo,
		ActorUserID:  userID,
		ResourceType: models.ResourceToken,
		Action:       "logout",
		Success:      true,
	})
	return nil
}

// CleanupExpired removes tokens past their expiry.
func (s *TokenService) CleanupExpired() error {
	return s.store.DeleteExpiredTokens()
}

// tokenID extracts the jti claim, falling back to empty (a DB-generated
// error would surface on insert).
func tokenID(result *core.TokenResult) string {
	if id, ok := result.Claims["jti"].(string); ok {
		return id
	}
	return ""
}
