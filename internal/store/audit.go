package store

import (
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"

	"gorm.io/gorm"
)

// CreateAuditLog persists a single audit event.
func (s *Store) CreateAuditLog(entry *models.AuditLog) error {
	return s.db.Create(entry).Error
}

// CreateAuditLogBatch persists a batch of audit events in one transaction.
func (s *Store) CreateAuditLogBatch(entries []*models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(entries).Error
	})
}

// GetAuditLogsPaginated retrieves audit logs with pagination and filtering,
// newest first.
func (s *Store) GetAuditLogsPaginated(
	params PaginationParams,
	filters AuditLogFilters,
) ([]models.AuditLog, PaginationResult, error) {
	query := s.applyAuditFilters(s.db.Model(&models.AuditLog{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	pagination := CalculatePagination(total, params.Page, params.PageSize)

	var logs []models.AuditLog
	err := query.Order("event_time DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Limit(pagination.PageSize).
		Find(&logs).Error
	return logs, pagination, err
}

func (s *Store) applyAuditFilters(query *gorm.DB, filters AuditLogFilters) *gorm.DB {
	if filters.EventType != "" {
		query = query.Where("event_type = ?", filters.EventType)
	}
	if filters.ActorUserID != "" {
		query = query.Where("actor_user_id = ?", filters.ActorUserID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.ResourceID != "" {
		query = query.Where("resource_id = ?", filters.ResourceID)
	}
	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.Success != nil {
		query = query.Where("success = ?", *filters.Success)
	}
	if !filters.StartTime.IsZero() {
		query = query.Where("event_time >= ?", filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		query = query.Where("event_time <= ?", filters.EndTime)
	}
	if filters.ActorIP != "" {
		query = query.Where("actor_ip = ?", filters.ActorIP)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where(
			"action LIKE ? OR actor_email LIKE ?",
			like, like,
		)
	}
	return query
}

// GetAuditLogStats aggregates event counts over a time window.
func (s *Store) GetAuditLogStats(startTime, endTime time.Time) (*AuditLogStats, error) {
	base := s.db.Model(&models.AuditLog{})
	if !startTime.IsZero() {
		base = base.Where("event_time >= ?", startTime)
	}
	if !endTime.IsZero() {
		base = base.Where("event_time <= ?", endTime)
	}

	stats := &AuditLogStats{
		EventsByType:     make(map[models.EventType]int64),
		EventsBySeverity: make(map[models.EventSeverity]int64),
	}

	if err := base.Session(&gorm.Session{}).Count(&stats.TotalEvents).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("success = ?", true).
		Count(&stats.SuccessCount).Error; err != nil {
		return nil, err
	}
	stats.FailureCount = stats.TotalEvents - stats.SuccessCount

	type typeRow struct {
		EventType models.EventType
		Count     int64
	}
	var byType []typeRow
	if err := base.Session(&gorm.Session{}).
		Select("event_type, COUNT(*) as count").
		Group("event_type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, row := range byType {
		stats.EventsByType[row.EventType] = row.Count
	}

	type severityRow struct {
		Severity models.EventSeverity
		Count    int64
	}
	var bySeverity []severityRow
	if err := base.Session(&gorm.Session{}).
		Select("severity, COUNT(*) as count").
		Group("severity").
		Scan(&bySeverity).Error; err != nil {
		return nil, err
	}
	for _, row := range bySeverity {
		stats.EventsBySeverity[row.Severity] = row.Count
	}

	return stats, nil
}

// DeleteOldAuditLogs removes audit events older than the cutoff.
func (s *Store) DeleteOldAuditLogs(cutoff time.Time) (int64, error) {
	res := s.db.Where("event_time < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}

// CreateAccessLog persists a redemption access log entry. Normally the
// entry is written inside RedeemGrant's transaction; this standalone
// variant exists for backfills and tests.
func (s *Store) CreateAccessLog(entry *models.AccessLog) error {
	return s.db.Create(entry).Error
}

// GetAccessLogByID retrieves a single access log entry.
func (s *Store) GetAccessLogByID(id string) (*models.AccessLog, error) {
	var entry models.AccessLog
	if err := s.db.Where("id = ?", id).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetAccessLogsByPatientPaginated returns access history for a patient's
// grants, newest first. This backs the patient's "who looked at my
// records" view.
func (s *Store) GetAccessLogsByPatientPaginated(
	patientID string,
	params PaginationParams,
) ([]models.AccessLog, PaginationResult, error) {
	return s.accessLogsPaginated("patient_id = ?", patientID, params)
}

// GetAccessLogsByClinicianPaginated returns the redemptions a clinician
// performed, newest first.
func (s *Store) GetAccessLogsByClinicianPaginated(
	clinicianID string,
	params PaginationParams,
) ([]models.AccessLog, PaginationResult, error) {
	return s.accessLogsPaginated("clinician_id = ?", clinicianID, params)
}

// GetAccessLogsByGrantPaginated returns the redemptions of one grant.
func (s *Store) GetAccessLogsByGrantPaginated(
	grantID string,
	params PaginationParams,
) ([]models.AccessLog, PaginationResult, error) {
	return s.accessLogsPaginated("grant_id = ?", grantID, params)
}

func (s *Store) accessLogsPaginated(
	cond string, arg any,
	params PaginationParams,
) ([]models.AccessLog, PaginationResult, error) {
	query := s.db.Model(&models.AccessLog{}).Where(cond, arg)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	pagination := CalculatePagination(total, params.Page, params.PageSize)

	var logs []models.AccessLog
	err := query.Order("accessed_at DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Limit(pagination.PageSize).
		Find(&logs).Error
	return logs, pagination, err
}
