package services

import (
	"context"
	"errors"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/cache"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/metrics"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/payload"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/util"

	"github.com/google/uuid"
)

const (
	redemptionOutcomeSuccess        = "success"
	redemptionOutcomeNotFound       = "not_found"
	redemptionOutcomeRevoked        = "revoked"
	redemptionOutcomeExpired        = "expired"
	redemptionOutcomeExhausted      = "exhausted"
	redemptionOutcomeInvalidPayload = "invalid_payload"
	redemptionOutcomeError          = "error"
)

// RedemptionService lets a clinician exchange a share payload for the
// records behind it. Every successful redemption writes an access log row
// in the same transaction as the redemption count; if that write fails the
// redemption fails with it.
type RedemptionService struct {
	store        *store.Store
	config       *config.Config
	codec        *payload.Codec
	recordCache  cache.Cache[models.Record]
	auditService *AuditService
	metrics      metrics.Recorder
}

func NewRedemptionService(
	s *store.Store,
	cfg *config.Config,
	codec *payload.Codec,
	recordCache cache.Cache[models.Record],
	auditService *AuditService,
	m metrics.Recorder,
) *RedemptionService {
	return &RedemptionService{
		store:        s,
		config:       cfg,
		codec:        codec,
		recordCache:  recordCache,
		auditService: auditService,
		metrics:      m,
	}
}

// RedemptionResult is what a clinician receives for a valid payload.
type RedemptionResult struct {
	Grant    *models.ShareGrant `json:"grant"`
	Records  []models.Record    `json:"records"`
	AuditRef string             `json:"audit_ref"` // access log row ID
}

// RedeemQR redeems a payload scanned from a QR code.
func (s *RedemptionService) RedeemQR(
	ctx context.Context,
	clinician *models.User,
	encoded string,
) (*RedemptionResult, error) {
	return s.redeem(ctx, clinician, encoded, payload.MethodQR)
}

// RedeemURL redeems a payload taken from a share link.
func (s *RedemptionService) RedeemURL(
	ctx context.Context,
	clinician *models.User,
	encoded string,
) (*RedemptionResult, error) {
	return s.redeem(ctx, clinician, encoded, payload.MethodURL)
}

func (s *RedemptionService) redeem(
	ctx context.Context,
	clinician *models.User,
	encoded, method string,
) (*RedemptionResult, error) {
	start := time.Now()

	if !clinician.IsClinician() {
		s.metrics.RecordRedemption(redemptionOutcomeError, time.Since(start))
		return nil, ErrForbidden
	}

	grantID, err := s.codec.Decode(encoded, method)
	if err != nil {
		// One opaque failure for malformed, forged, and cross-method
		// payloads alike: callers learn nothing about grant existence.
		s.metrics.RecordRedemption(redemptionOutcomeInvalidPayload, time.Since(start))
		s.logDenied(ctx, clinician, "", "invalid payload", models.SeverityWarning)
		return nil, ErrInvalidPayload
	}

	var result *RedemptionResult
	grant, err := s.store.RedeemGrant(grantID, time.Now(), func(grant *models.ShareGrant, resolve store.RecordResolver) (*models.AccessLog, error) {
		records, err := s.resolveRecords(ctx, grant.RecordIDs, resolve)
		if err != nil {
			return nil, err
		}

		entry := &models.AccessLog{
			ID:          uuid.New().String(),
			GrantID:     grant.ID,
			ClinicianID: clinician.ID,
			PatientID:   grant.PatientID,
			RecordIDs:   recordIDsOf(records),
			IPAddress:   util.GetIPFromContext(ctx),
			UserAgent:   util.GetUserAgentFromContext(ctx),
			AccessedAt:  time.Now(),
		}

		result = &RedemptionResult{
			Records:  records,
			AuditRef: entry.ID,
		}
		return entry, nil
	})
	if err != nil {
		outcome, svcErr, severity := classifyRedemptionFailure(err)
		s.metrics.RecordRedemption(outcome, time.Since(start))
		s.logDenied(ctx, clinician, grantID, outcome, severity)
		return nil, svcErr
	}
	result.Grant = grant

	s.metrics.RecordRedemption(redemptionOutcomeSuccess, time.Since(start))
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventGrantRedeemed,
		Severity:     models.SeverityInfo,
		ActorUserID:  clinician.ID,
		ActorEmail:   clinician.Email,
		ResourceType: models.ResourceGrant,
		ResourceID:   grant.ID,
		Action:       "redeem share grant",
		Details: models.AuditDetails{
			"patient_id":       grant.PatientID,
			"record_count":     len(result.Records),
			"redemption_count": grant.RedemptionCount,
			"audit_ref":        result.AuditRef,
		},
		Success: true,
	})
	return result, nil
}

// resolveRecords turns the grant's record ID list into live records,
// silently dropping ids that were deleted after the grant was created.
// Cache hits skip the database; misses are fetched in one query through
// the redemption transaction's resolver, never through the root handle
// (which would deadlock the single-connection sqlite pool).
func (s *RedemptionService) resolveRecords(
	ctx context.Context,
	recordIDs []string,
	resolve store.RecordResolver,
) ([]models.Record, error) {
	records := make([]models.Record, 0, len(recordIDs))
	var misses []string
	for _, id := range recordIDs {
		record, err := s.recordCache.Get(ctx, recordCacheKey(id))
		if err != nil {
			misses = append(misses, id)
			continue
		}
		records = append(records, record)
	}
	if len(misses) == 0 {
		return records, nil
	}

	fetched, err := resolve(misses)
	if err != nil {
		return nil, err
	}
	for _, record := range fetched {
		// Best effort: a cache write failure never blocks a redemption.
		_ = s.recordCache.Set(ctx, recordCacheKey(record.ID), record, s.config.RecordCacheTTL)
		records = append(records, record)
	}
	return records, nil
}

func recordCacheKey(recordID string) string {
	return "record:" + recordID
}

func recordIDsOf(records []models.Record) models.StringArray {
	ids := make(models.StringArray, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids
}

func classifyRedemptionFailure(err error) (outcome string, svcErr error, severity models.EventSeverity) {
	switch {
	case errors.Is(err, store.ErrGrantNotFound):
		return redemptionOutcomeNotFound, ErrGrantNotFound, models.SeverityWarning
	case errors.Is(err, store.ErrGrantRevoked):
		return redemptionOutcomeRevoked, ErrGrantRevoked, models.SeverityWarning
	case errors.Is(err, store.ErrGrantExpired):
		return redemptionOutcomeExpired, ErrGrantExpired, models.SeverityInfo
	case errors.Is(err, store.ErrGrantExhausted):
		return redemptionOutcomeExhausted, ErrGrantExhausted, models.SeverityWarning
	default:
		return redemptionOutcomeError, ErrStorageUnavailable, models.SeverityError
	}
}

// logDenied records a failed redemption attempt synchronously: denials are
// the events a compliance review cares most about, so they never ride the
// lossy async path.
func (s *RedemptionService) logDenied(
	ctx context.Context,
	clinician *models.User,
	grantID, reason string,
	severity models.EventSeverity,
) {
	_ = s.auditService.LogSync(ctx, AuditLogEntry{
		EventType:    models.EventGrantDenied,
		Severity:     severity,
		ActorUserID:  clinician.ID,
		ActorEmail:   clinician.Email,
		ResourceType: models.ResourceGrant,
		ResourceID:   grantID,
		Action:       "redeem share grant",
		Success:      false,
		ErrorMessage: reason,
	})
}
