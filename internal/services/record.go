package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"

	"github.com/google/uuid"
)

// RecordService manages a patient's own health records. Records are only
// ever soft-deleted: grants keep referencing the ID and redemptions drop
// it from their results.
type RecordService struct {
	store *store.Store
}

func NewRecordService(s *store.Store) *RecordService {
	return &RecordService{store: s}
}

// CreateRecordInput carries the fields accepted when a patient files a record.
type CreateRecordInput struct {
	Title      string
	RecordType string
}

// CreateRecord files a new health record for the owner.
func (s *RecordService) CreateRecord(
	ctx context.Context,
	owner *models.User,
	input CreateRecordInput,
) (*models.Record, error) {
	if !owner.IsPatient() {
		return nil, ErrForbidden
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, ErrInvalidRange
	}

	record := &models.Record{
		ID:         uuid.New().String(),
		PatientID:  owner.ID,
		Title:      input.Title,
		RecordType: input.RecordType,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateRecord(record); err != nil {
		return nil, ErrStorageUnavailable
	}
	return record, nil
}

// GetRecord returns one of the owner's live records.
func (s *RecordService) GetRecord(owner *models.User, recordID string) (*models.Record, error) {
	record, err := s.store.GetRecord(recordID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, ErrStorageUnavailable
	}
	// Owners only see their own records; a foreign ID looks like a miss.
	if record.PatientID != owner.ID || record.Deleted {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// ListRecords returns the owner's live records, newest first.
func (s *RecordService) ListRecords(
	owner *models.User,
	params store.PaginationParams,
) ([]models.Record, store.PaginationResult, error) {
	records, pagination, err := s.store.ListRecordsByPatientPaginated(owner.ID, params)
	if err != nil {
		return nil, store.PaginationResult{}, ErrStorageUnavailable
	}
	return records, pagination, nil
}

// DeleteRecord soft-deletes one of the owner's records. Grants that still
// reference it stay valid; the record simply stops resolving.
func (s *RecordService) DeleteRecord(ctx context.Context, owner *models.User, recordID string) error {
	if err := s.store.SoftDeleteRecord(recordID, owner.ID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return ErrStorageUnavailable
	}
	return nil
}
