package store

import (
	"errors"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"

	"gorm.io/gorm"
)

// CreateGrant persists a new share grant
func (s *Store) CreateGrant(grant *models.ShareGrant) error {
	return s.db.Create(grant).Error
}

// GetGrant retrieves a grant by ID
func (s *Store) GetGrant(grantID string) (*models.ShareGrant, error) {
	var grant models.ShareGrant
	if err := s.db.Where("id = ?", grantID).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// GetGrantForOwner retrieves a grant by ID scoped to its owner
func (s *Store) GetGrantForOwner(grantID, patientID string) (*models.ShareGrant, error) {
	var grant models.ShareGrant
	err := s.db.Where("id = ? AND patient_id = ?", grantID, patientID).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// ListGrantsByPatientPaginated returns the patient's grants, newest first
func (s *Store) ListGrantsByPatientPaginated(
	patientID string,
	params PaginationParams,
) ([]models.ShareGrant, PaginationResult, error) {
	var total int64
	query := s.db.Model(&models.ShareGrant{}).Where("patient_id = ?", patientID)
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	pagination := CalculatePagination(total, params.Page, params.PageSize)

	var grants []models.ShareGrant
	err := query.Order("created_at DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Limit(pagination.PageSize).
		Find(&grants).Error
	return grants, pagination, err
}

// RevokeGrant marks a grant revoked. Idempotent: revoking an already
// revoked grant reports success. The owner check is part of the WHERE
// clause so a non-owner cannot distinguish "not found" from "not yours".
func (s *Store) RevokeGrant(grantID, patientID string, now time.Time) error {
	res := s.db.Model(&models.ShareGrant{}).
		Where("id = ? AND patient_id = ? AND revoked = ?", grantID, patientID, false).
		Updates(map[string]any{"revoked": true, "revoked_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either unknown, not owned, or already revoked; load to tell apart
		grant, err := s.GetGrantForOwner(grantID, patientID)
		if err != nil {
			return err
		}
		if grant.Revoked {
			return nil // already revoked, idempotent success
		}
		return ErrGrantNotFound
	}
	return nil
}

// RecordResolver loads the live records behind a grant from inside the
// redemption transaction. Callers must use it instead of the store's own
// record lookups: those go through the root handle and would wait on a
// second pooled connection while the transaction holds one, which on the
// single-connection sqlite pool never arrives.
type RecordResolver func(recordIDs []string) ([]models.Record, error)

// RedeemGrant performs the atomic check-then-increment of a grant's
// redemption count and writes the access log entry in the same database
// transaction. Exactly one of the two outcomes is ever observable: the
// count is incremented AND the log row exists, or neither happened.
//
// buildLog receives the grant as it looks after the increment plus a
// transaction-scoped record resolver, and returns the access log row to
// persist. If it errors the whole redemption is rolled back.
func (s *Store) RedeemGrant(
	grantID string,
	now time.Time,
	buildLog func(grant *models.ShareGrant, resolve RecordResolver) (*models.AccessLog, error),
) (*models.ShareGrant, error) {
	var redeemed *models.ShareGrant

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Single conditional UPDATE: the check and the increment are one
		// indivisible statement, so concurrent redemptions serialize on the
		// row and the count can never pass max_redemptions.
		res := tx.Model(&models.ShareGrant{}).
			Where(
				"id = ? AND revoked = ? AND expires_at > ? AND (max_redemptions IS NULL OR redemption_count < max_redemptions)",
				grantID, false, now,
			).
			UpdateColumn("redemption_count", gorm.Expr("redemption_count + 1"))
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return s.classifyDeadGrant(tx, grantID, now)
		}

		var grant models.ShareGrant
		if err := tx.Where("id = ?", grantID).First(&grant).Error; err != nil {
			return err
		}

		resolve := func(recordIDs []string) ([]models.Record, error) {
			return recordsByIDs(tx, recordIDs)
		}
		entry, err := buildLog(&grant, resolve)
		if err != nil {
			return err
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		redeemed = &grant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redeemed, nil
}

// classifyDeadGrant reloads a non-consumable grant inside the transaction
// and reports why it could not be redeemed. Revocation wins over expiry
// which wins over exhaustion, mirroring the order a caller would check.
func (s *Store) classifyDeadGrant(tx *gorm.DB, grantID string, now time.Time) error {
	var grant models.ShareGrant
	if err := tx.Where("id = ?", grantID).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGrantNotFound
		}
		return err
	}
	switch {
	case grant.Revoked:
		return ErrGrantRevoked
	case !grant.ExpiresAt.After(now):
		return ErrGrantExpired
	default:
		return ErrGrantExhausted
	}
}

// DeleteDeadGrants hard-deletes grants that have been unusable (expired or
// revoked) for longer than the retention window. Live grants are never
// touched.
func (s *Store) DeleteDeadGrants(cutoff time.Time) (int64, error) {
	res := s.db.Where(
		"(revoked = ? AND revoked_at < ?) OR expires_at < ?",
		true, cutoff, cutoff,
	).Delete(&models.ShareGrant{})
	return res.RowsAffected, res.Error
}

// CountActiveGrants counts grants that are currently redeemable on their
// time and revocation bounds (the count bound requires a per-row check and
// is not included in the gauge).
func (s *Store) CountActiveGrants(now time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.ShareGrant{}).
		Where("revoked = ? AND expires_at > ?", false, now).
		Count(&count).Error
	return count, err
}
