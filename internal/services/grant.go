package services

import (
	"context"
	"errors"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/metrics"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/payload"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"

	"github.com/google/uuid"
)

// GrantService owns the share-grant lifecycle: creation with ownership
// checks, listing, and revocation. Redemption lives in RedemptionService.
type GrantService struct {
	store        *store.Store
	config       *config.Config
	codec        *payload.Codec
	auditService *AuditService
	metrics      metrics.Recorder
}

func NewGrantService(
	s *store.Store,
	cfg *config.Config,
	codec *payload.Codec,
	auditService *AuditService,
	m metrics.Recorder,
) *GrantService {
	return &GrantService{
		store:        s,
		config:       cfg,
		codec:        codec,
		auditService: auditService,
		metrics:      m,
	}
}

// CreateGrantInput carries the fields accepted when a patient shares records.
type CreateGrantInput struct {
	RecordIDs      []string
	ExpiresIn      time.Duration // zero means the configured default
	MaxRedemptions *int          // nil means unlimited within the expiry window
	DeliveryMethod string        // models.DeliveryQR or models.DeliveryURL
}

// GrantResult pairs a created grant with its delivery payload.
type GrantResult struct {
	Grant    *models.ShareGrant `json:"grant"`
	Payload  string             `json:"payload"`             // QR content for QR delivery
	ShareURL string             `json:"share_url,omitempty"` // full link for URL delivery
}

// CreateGrant validates and persists a new share grant for the owner.
func (s *GrantService) CreateGrant(
	ctx context.Context,
	owner *models.User,
	input CreateGrantInput,
) (*GrantResult, error) {
	if !owner.IsPatient() {
		return nil, ErrForbidden
	}

	recordIDs := dedupe(input.RecordIDs)
	if len(recordIDs) == 0 {
		return nil, ErrEmptySelection
	}

	if input.ExpiresIn == 0 {
		input.ExpiresIn = s.config.GrantDefaultExpiry
	}
	if input.ExpiresIn <= 0 || input.ExpiresIn > s.config.GrantMaxExpiry {
		return nil, ErrInvalidRange
	}
	if input.MaxRedemptions != nil && *input.MaxRedemptions <= 0 {
		return nil, ErrInvalidRange
	}

	var method string
	switch input.DeliveryMethod {
	case models.DeliveryQR, models.DeliveryURL:
		method = input.DeliveryMethod
	default:
		return nil, ErrInvalidRange
	}

	// Every selected record must exist, be live, and belong to the owner.
	owned, err := s.store.CountRecordsOwned(owner.ID, recordIDs)
	if err != nil {
		return nil, ErrStorageUnavailable
	}
	if owned != int64(len(recordIDs)) {
		return nil, ErrForbidden
	}

	grant := &models.ShareGrant{
		// uuid v4: 122 bits of randomness, the sole secret guarding the grant
		ID:             uuid.New().String(),
		PatientID:      owner.ID,
		RecordIDs:      recordIDs,
		DeliveryMethod: method,
		ExpiresAt:      time.Now().Add(input.ExpiresIn),
		MaxRedemptions: input.MaxRedemptions,
	}
	if err := s.store.CreateGrant(grant); err != nil {
		return nil, ErrStorageUnavailable
	}

	result, err := s.deliveryResult(grant)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordGrantCreated(method)
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventGrantCreated,
		Severity:     models.SeverityInfo,
		ActorUserID:  owner.ID,
		ActorEmail:   owner.Email,
		ResourceType: models.ResourceGrant,
		ResourceID:   grant.ID,
		Action:       "create share grant",
		Details: models.AuditDetails{
			"record_count":    len(recordIDs),
			"delivery_method": method,
			"expires_at":      grant.ExpiresAt,
		},
		Success: true,
	})
	return result, nil
}

// GetGrant returns one of the owner's grants along with its delivery
// payload, re-encoded so the owner can re-display a QR code or share link
// without creating a fresh grant.
func (s *GrantService) GetGrant(owner *models.User, grantID string) (*GrantResult, error) {
	grant, err := s.store.GetGrantForOwner(grantID, owner.ID)
	if err != nil {
		if errors.Is(err, store.ErrGrantNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, ErrStorageUnavailable
	}
	return s.deliveryResult(grant)
}

// deliveryResult pairs a grant with the payload for its delivery method.
// The codec is deterministic, so re-encoding an existing grant yields the
// same payload it was created with.
func (s *GrantService) deliveryResult(grant *models.ShareGrant) (*GrantResult, error) {
	result := &GrantResult{Grant: grant}
	var err error
	switch grant.DeliveryMethod {
	case models.DeliveryQR:
		result.Payload, err = s.codec.Encode(grant.ID, payload.MethodQR)
	case models.DeliveryURL:
		result.ShareURL, err = s.codec.ShareURL(s.config.BaseURL, grant.ID)
		if err == nil {
			result.Payload, err = s.codec.Encode(grant.ID, payload.MethodURL)
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListGrants returns the owner's grants, newest first.
func (s *GrantService) ListGrants(
	owner *models.User,
	params store.PaginationParams,
) ([]models.ShareGrant, store.PaginationResult, error) {
	grants, pagination, err := s.store.ListGrantsByPatientPaginated(owner.ID, params)
	if err != nil {
		return nil, store.PaginationResult{}, ErrStorageUnavailable
	}
	return grants, pagination, nil
}

// RevokeGrant marks a grant revoked. Idempotent: revoking an already
// revoked grant succeeds silently.
func (s *GrantService) RevokeGrant(ctx context.Context, owner *models.User, grantID string) error {
	if err := s.store.RevokeGrant(grantID, owner.ID, time.Now()); err != nil {
		if errors.Is(err, store.ErrGrantNotFound) {
			return ErrGrantNotFound
		}
		return ErrStorageUnavailable
	}

	s.metrics.RecordGrantRevoked()
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventGrantRevoked,
		Severity:     models.SeverityInfo,
		ActorUserID:  owner.ID,
		ActorEmail:   owner.Email,
		ResourceType: models.ResourceGrant,
		ResourceID:   grantID,
		Action:       "revoke share grant",
		Success:      true,
	})
	return nil
}

// CleanupDeadGrants hard-deletes grants that have been expired or revoked
// for longer than the retention window.
func (s *GrantService) CleanupDeadGrants() (int64, error) {
	cutoff := time.Now().Add(-s.config.GrantRetention)
	return s.store.DeleteDeadGrants(cutoff)
}

func dedupe(ids []string) models.StringArray {
	seen := make(map[string]struct{}, len(ids))
	out := make(models.StringArray, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
