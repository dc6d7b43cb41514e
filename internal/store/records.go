package store

import (
	"errors"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"

	"gorm.io/gorm"
)

// CreateRecord persists a new record metadata row.
func (s *Store) CreateRecord(record *models.Record) error {
	return s.db.Create(record).Error
}

// GetRecord retrieves a single non-deleted record by ID.
func (s *Store) GetRecord(recordID string) (*models.Record, error) {
	var record models.Record
	err := s.db.Where("id = ? AND deleted = ?", recordID, false).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetRecordsByIDs returns the non-deleted records among the given IDs.
// Records deleted since a grant was created simply drop out of the result.
func (s *Store) GetRecordsByIDs(recordIDs []string) ([]models.Record, error) {
	return recordsByIDs(s.db, recordIDs)
}

func recordsByIDs(db *gorm.DB, recordIDs []string) ([]models.Record, error) {
	if len(recordIDs) == 0 {
		return nil, nil
	}
	var records []models.Record
	err := db.Where("id IN ? AND deleted = ?", recordIDs, false).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// CountRecordsOwned counts how many of the given record IDs exist,
// are not deleted, and belong to the patient. Used for the ownership
// check when a grant is created.
func (s *Store) CountRecordsOwned(patientID string, recordIDs []string) (int64, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := s.db.Model(&models.Record{}).
		Where("id IN ? AND patient_id = ? AND deleted = ?", recordIDs, patientID, false).
		Count(&count).Error
	return count, err
}

// ListRecordsByPatientPaginated returns the patient's non-deleted records.
func (s *Store) ListRecordsByPatientPaginated(
	patientID string,
	params PaginationParams,
) ([]models.Record, PaginationResult, error) {
	var total int64
	query := s.db.Model(&models.Record{}).
		Where("patient_id = ? AND deleted = ?", patientID, false)
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	pagination := CalculatePagination(total, params.Page, params.PageSize)

	var records []models.Record
	err := query.Order("created_at DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Limit(pagination.PageSize).
		Find(&records).Error
	return records, pagination, err
}

// SoftDeleteRecord marks a record deleted without touching grants that
// reference it; redemptions of those grants return the surviving records.
func (s *Store) SoftDeleteRecord(recordID, patientID string) error {
	res := s.db.Model(&models.Record{}).
		Where("id = ? AND patient_id = ? AND deleted = ?", recordID, patientID, false).
		Update("deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
