package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// createFreshStore creates a new in-memory store for test isolation.
func createFreshStore(t *testing.T) *Store {
	t.Helper()
	store, err := New("sqlite", ":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	return store
}

func createTestPatient(t *testing.T, store *Store) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        fmt.Sprintf("patient-%s@example.com", uuid.New().String()[:8]),
		PasswordHash: "hashedpassword",
		FullName:     "Test Patient",
		Role:         models.RolePatient,
		Active:       true,
	}
	require.NoError(t, store.CreateUser(user))
	return user
}

func createTestGrant(t *testing.T, store *Store, patientID string, maxRedemptions *int, ttl time.Duration) *models.ShareGrant {
	t.Helper()
	grant := &models.ShareGrant{
		ID:             uuid.New().String(),
		PatientID:      patientID,
		RecordIDs:      models.StringArray{uuid.New().String()},
		DeliveryMethod: models.DeliveryQR,
		ExpiresAt:      time.Now().Add(ttl),
		MaxRedemptions: maxRedemptions,
	}
	require.NoError(t, store.CreateGrant(grant))
	return grant
}

func TestCreateAndGetUser(t *testing.T) {
	store := createFreshStore(t)

	user := createTestPatient(t, store)

	retrieved, err := store.GetUserByEmail(user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)
	assert.Equal(t, user.Email, retrieved.Email)

	_, err = store.GetUserByEmail("missing@example.com")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSeedDataCreatesAdmin(t *testing.T) {
	store := createFreshStore(t)

	admin, err := store.GetUserByEmail("admin@localhost")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NotEmpty(t, admin.PasswordHash)
}

func TestTokenPairLifecycle(t *testing.T) {
	store := createFreshStore(t)
	user := createTestPatient(t, store)

	access := &models.SessionToken{
		ID:            uuid.New().String(),
		TokenHash:     "access-hash",
		TokenCategory: models.TokenCategoryAccess,
		Status:        models.TokenStatusActive,
		UserID:        user.ID,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	refresh := &models.SessionToken{
		ID:            uuid.New().String(),
		TokenHash:     "refresh-hash",
		TokenCategory: models.TokenCategoryRefresh,
		Status:        models.TokenStatusActive,
		UserID:        user.ID,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, store.CreateTokenPair(access, refresh))

	retrieved, err := store.GetTokenByHash("refresh-hash")
	require.NoError(t, err)
	assert.Equal(t, refresh.ID, retrieved.ID)
	assert.True(t, retrieved.IsRefreshToken())
	assert.True(t, retrieved.IsActive())
}

func TestRotateRefreshTokenSingleUse(t *testing.T) {
	store := createFreshStore(t)
	user := createTestPatient(t, store)

	refresh := &models.SessionToken{
		ID:            uuid.New().String(),
		TokenHash:     "rotate-me",
		TokenCategory: models.TokenCategoryRefresh,
		Status:        models.TokenStatusActive,
		UserID:        user.ID,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, store.CreateToken(refresh))

	// First rotation wins
	rotated, err := store.RotateRefreshToken("rotate-me", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusRevoked, rotated.Status)
	require.NotNil(t, rotated.LastUsedAt)

	// Every replay of the same token fails
	_, err = store.RotateRefreshToken("rotate-me", time.Now())
	assert.ErrorIs(t, err, ErrRefreshTokenUsed)

	// Unknown token is reported distinctly
	_, err = store.RotateRefreshToken("never-existed", time.Now())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRevokeTokensByUserID(t *testing.T) {
	store := createFreshStore(t)
	user := createTestPatient(t, store)

	for i := 0; i < 3; i++ {
		token := &models.SessionToken{
			ID:            uuid.New().String(),
			TokenHash:     fmt.Sprintf("hash-%d", i),
			TokenCategory: models.TokenCategoryAccess,
			Status:        models.TokenStatusActive,
			UserID:        user.ID,
			ExpiresAt:     time.Now().Add(time.Hour),
		}
		require.NoError(t, store.CreateToken(token))
	}

	require.NoError(t, store.RevokeTokensByUserID(user.ID))

	tokens, err := store.GetTokensByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	for _, token := range tokens {
		assert.Equal(t, models.TokenStatusRevoked, token.Status)
	}
}

func TestDeleteExpiredTokens(t *testing.T) {
	store := createFreshStore(t)
	user := createTestPatient(t, store)

	expired := &models.SessionToken{
		ID:            uuid.New().String(),
		TokenHash:     "stale",
		TokenCategory: models.TokenCategoryAccess,
		Status:        models.TokenStatusActive,
		UserID:        user.ID,
		ExpiresAt:     time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.CreateToken(expired))

	require.NoError(t, store.DeleteExpiredTokens())

	_, err := store.GetTokenByHash("stale")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRedeemGrantSuccessWritesAccessLog(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)
	max := 3
	grant := createTestGrant(t, store, patient.ID, &max, time.Hour)

	clinicianID := uuid.New().String()
	redeemed, err := store.RedeemGrant(grant.ID, time.Now(),
		func(g *models.ShareGrant, _ RecordResolver) (*models.AccessLog, error) {
			return &models.AccessLog{
				ID:          uuid.New().String(),
				GrantID:     g.ID,
				ClinicianID: clinicianID,
				PatientID:   g.PatientID,
				RecordIDs:   g.RecordIDs,
				IPAddress:   "192.0.2.1",
				AccessedAt:  time.Now(),
			}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1, redeemed.RedemptionCount)

	logs, _, err := store.GetAccessLogsByGrantPaginated(grant.ID, NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, clinicianID, logs[0].ClinicianID)
	assert.Equal(t, patient.ID, logs[0].PatientID)
}

func TestRedeemGrantAuditFailureRollsBack(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)
	grant := createTestGrant(t, store, patient.ID, nil, time.Hour)

	_, err := store.RedeemGrant(grant.ID, time.Now(),
		func(g *models.ShareGrant, _ RecordResolver) (*models.AccessLog, error) {
			return nil, fmt.Errorf("audit sink unavailable")
		})
	require.Error(t, err)

	// No access log and no counted redemption survive the rollback
	reloaded, err := store.GetGrant(grant.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.RedemptionCount)

	logs, _, err := store.GetAccessLogsByGrantPaginated(grant.ID, NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestRedeemGrantRespectsMaxRedemptions(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)
	max := 2
	grant := createTestGrant(t, store, patient.ID, &max, time.Hour)

	buildLog := func(g *models.ShareGrant, _ RecordResolver) (*models.AccessLog, error) {
		return &models.AccessLog{
			ID:          uuid.New().String(),
			GrantID:     g.ID,
			ClinicianID: uuid.New().String(),
			PatientID:   g.PatientID,
			RecordIDs:   g.RecordIDs,
			AccessedAt:  time.Now(),
		}, nil
	}

	// Attempt well past the cap; exactly max succeed and the count never
	// exceeds the bound.
	succeeded := 0
	for i := 0; i < 10; i++ {
		_, err := store.RedeemGrant(grant.ID, time.Now(), buildLog)
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrGrantExhausted)
	}
	assert.Equal(t, max, succeeded)

	reloaded, err := store.GetGrant(grant.ID)
	require.NoError(t, err)
	assert.Equal(t, max, reloaded.RedemptionCount)

	logs, _, err := store.GetAccessLogsByGrantPaginated(grant.ID, NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	assert.Len(t, logs, max)
}

func TestRedeemGrantConcurrentBound(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)
	max := 3
	grant := createTestGrant(t, store, patient.ID, &max, time.Hour)

	buildLog := func(g *models.ShareGrant, _ RecordResolver) (*models.AccessLog, error) {
		return &models.AccessLog{
			ID:          uuid.New().String(),
			GrantID:     g.ID,
			ClinicianID: uuid.New().String(),
			PatientID:   g.PatientID,
			RecordIDs:   g.RecordIDs,
			AccessedAt:  time.Now(),
		}, nil
	}

	// N goroutines race for k slots; exactly k win, everyone else is
	// turned away as exhausted, independent of interleaving.
	const attempts = 12
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RedeemGrant(grant.ID, time.Now(), buildLog)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrGrantExhausted)
	}
	assert.Equal(t, max, succeeded)

	reloaded, err := store.GetGrant(grant.ID)
	require.NoError(t, err)
	assert.Equal(t, max, reloaded.RedemptionCount)

	logs, _, err := store.GetAccessLogsByGrantPaginated(grant.ID, NewPaginationParams(1, 50, ""))
	require.NoError(t, err)
	assert.Len(t, logs, max)
}

func TestRedeemGrantResolverLoadsRecords(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)

	record := &models.Record{
		ID:         uuid.New().String(),
		PatientID:  patient.ID,
		Title:      "MRI scan",
		RecordType: "IMAGING",
	}
	require.NoError(t, store.CreateRecord(record))

	grant := &models.ShareGrant{
		ID:             uuid.New().String(),
		PatientID:      patient.ID,
		RecordIDs:      models.StringArray{record.ID},
		DeliveryMethod: models.DeliveryQR,
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	require.NoError(t, store.CreateGrant(grant))

	// The resolver runs on the transaction's own connection, so record
	// resolution completes even with the pool pinned at one connection.
	var resolved []models.Record
	_, err := store.RedeemGrant(grant.ID, time.Now(),
		func(g *models.ShareGrant, resolve RecordResolver) (*models.AccessLog, error) {
			var err error
			resolved, err = resolve(g.RecordIDs)
			if err != nil {
				return nil, err
			}
			return &models.AccessLog{
				ID:         uuid.New().String(),
				GrantID:    g.ID,
				PatientID:  g.PatientID,
				RecordIDs:  g.RecordIDs,
				AccessedAt: time.Now(),
			}, nil
		})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, record.ID, resolved[0].ID)
}

func TestRotateRefreshTokenConcurrentReplay(t *testing.T) {
	store := createFreshStore(t)
	user := createTestPatient(t, store)

	refresh := &models.SessionToken{
		ID:            uuid.New().String(),
		TokenHash:     "contended",
		TokenCategory: models.TokenCategoryRefresh,
		Status:        models.TokenStatusActive,
		UserID:        user.ID,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, store.CreateToken(refresh))

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RotateRefreshToken("contended", time.Now())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// Single use under contention: exactly one rotation wins.
	winners := 0
	for err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, ErrRefreshTokenUsed)
	}
	assert.Equal(t, 1, winners)
}

func TestRedeemGrantClassification(t *testing.T) {
	buildLog := func(g *models.ShareGrant, _ RecordResolver) (*models.AccessLog, error) {
		return &models.AccessLog{
			ID:         uuid.New().String(),
			GrantID:    g.ID,
			PatientID:  g.PatientID,
			RecordIDs:  g.RecordIDs,
			AccessedAt: time.Now(),
		}, nil
	}

	t.Run("unknown grant", func(t *testing.T) {
		store := createFreshStore(t)
		_, err := store.RedeemGrant(uuid.New().String(), time.Now(), buildLog)
		assert.ErrorIs(t, err, ErrGrantNotFound)
	})

	t.Run("revoked grant", func(t *testing.T) {
		store := createFreshStore(t)
		patient := createTestPatient(t, store)
		grant := createTestGrant(t, store, patient.ID, nil, time.Hour)
		require.NoError(t, store.RevokeGrant(grant.ID, patient.ID, time.Now()))

		_, err := store.RedeemGrant(grant.ID, time.Now(), buildLog)
		assert.ErrorIs(t, err, ErrGrantRevoked)
	})

	t.Run("expired grant", func(t *testing.T) {
		store := createFreshStore(t)
		patient := createTestPatient(t, store)
		grant := createTestGrant(t, store, patient.ID, nil, -time.Minute)

		_, err := store.RedeemGrant(grant.ID, time.Now(), buildLog)
		assert.ErrorIs(t, err, ErrGrantExpired)
	})

	t.Run("revoked wins over expired", func(t *testing.T) {
		store := createFreshStore(t)
		patient := createTestPatient(t, store)
		grant := createTestGrant(t, store, patient.ID, nil, time.Hour)
		require.NoError(t, store.RevokeGrant(grant.ID, patient.ID, time.Now()))

		// Redeem as of a time past expiry; revocation is still reported.
		_, err := store.RedeemGrant(grant.ID, grant.ExpiresAt.Add(time.Minute), buildLog)
		assert.ErrorIs(t, err, ErrGrantRevoked)
	})
}

func TestRevokeGrantIdempotent(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)
	grant := createTestGrant(t, store, patient.ID, nil, time.Hour)

	require.NoError(t, store.RevokeGrant(grant.ID, patient.ID, time.Now()))
	// Second revoke reports success
	require.NoError(t, store.RevokeGrant(grant.ID, patient.ID, time.Now()))

	reloaded, err := store.GetGrant(grant.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Revoked)
	assert.NotNil(t, reloaded.RevokedAt)
}

func TestRevokeGrantRejectsNonOwner(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)
	other := createTestPatient(t, store)
	grant := createTestGrant(t, store, patient.ID, nil, time.Hour)

	err := store.RevokeGrant(grant.ID, other.ID, time.Now())
	assert.ErrorIs(t, err, ErrGrantNotFound)

	reloaded, err := store.GetGrant(grant.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Revoked)
}

func TestListGrantsByPatientPaginated(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)
	other := createTestPatient(t, store)

	for i := 0; i < 5; i++ {
		createTestGrant(t, store, patient.ID, nil, time.Hour)
	}
	createTestGrant(t, store, other.ID, nil, time.Hour)

	grants, pagination, err := store.ListGrantsByPatientPaginated(
		patient.ID, NewPaginationParams(1, 3, ""))
	require.NoError(t, err)
	assert.Len(t, grants, 3)
	assert.Equal(t, int64(5), pagination.Total)
	assert.Equal(t, 2, pagination.TotalPages)
}

func TestDeleteDeadGrants(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)

	live := createTestGrant(t, store, patient.ID, nil, time.Hour)
	expired := createTestGrant(t, store, patient.ID, nil, -48*time.Hour)
	revoked := createTestGrant(t, store, patient.ID, nil, time.Hour)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.db.Model(&models.ShareGrant{}).
		Where("id = ?", revoked.ID).
		Updates(map[string]any{"revoked": true, "revoked_at": &past}).Error)

	deleted, err := store.DeleteDeadGrants(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = store.GetGrant(live.ID)
	assert.NoError(t, err)
	_, err = store.GetGrant(expired.ID)
	assert.ErrorIs(t, err, ErrGrantNotFound)
}

func TestRecordOwnershipAndSoftDelete(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)
	other := createTestPatient(t, store)

	var ids []string
	for i := 0; i < 3; i++ {
		record := &models.Record{
			ID:         uuid.New().String(),
			PatientID:  patient.ID,
			Title:      fmt.Sprintf("Blood panel %d", i),
			RecordType: "LAB_RESULT",
		}
		require.NoError(t, store.CreateRecord(record))
		ids = append(ids, record.ID)
	}

	count, err := store.CountRecordsOwned(patient.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// A non-owner owns none of them
	count, err = store.CountRecordsOwned(other.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Soft-deleted records drop out of lookups
	require.NoError(t, store.SoftDeleteRecord(ids[0], patient.ID))

	records, err := store.GetRecordsByIDs(ids)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	count, err = store.CountRecordsOwned(patient.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Deleting twice, or someone else's record, reports not found
	assert.ErrorIs(t, store.SoftDeleteRecord(ids[0], patient.ID), ErrRecordNotFound)
	assert.ErrorIs(t, store.SoftDeleteRecord(ids[1], other.ID), ErrRecordNotFound)
}

func TestConsumeOTPSingleUse(t *testing.T) {
	store := createFreshStore(t)
	user := createTestPatient(t, store)

	otp := &models.OTPCode{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Code:      "482916",
		Purpose:   models.OTPPurposeLogin,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, store.CreateOTP(otp))

	now := time.Now()
	require.NoError(t, store.ConsumeOTP(user.ID, "482916", models.OTPPurposeLogin, now))
	assert.ErrorIs(t,
		store.ConsumeOTP(user.ID, "482916", models.OTPPurposeLogin, now),
		ErrOTPUsed)
}

func TestConsumeOTPRejectsExpiredAndWrongCode(t *testing.T) {
	store := createFreshStore(t)
	user := createTestPatient(t, store)

	otp := &models.OTPCode{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Code:      "111111",
		Purpose:   models.OTPPurposeLogin,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.CreateOTP(otp))

	now := time.Now()
	assert.ErrorIs(t,
		store.ConsumeOTP(user.ID, "111111", models.OTPPurposeLogin, now),
		ErrOTPUsed)
	assert.ErrorIs(t,
		store.ConsumeOTP(user.ID, "999999", models.OTPPurposeLogin, now),
		ErrOTPUsed)
}

func TestCreateOTPInvalidatesPrevious(t *testing.T) {
	store := createFreshStore(t)
	user := createTestPatient(t, store)

	first := &models.OTPCode{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Code:      "111111",
		Purpose:   models.OTPPurposeLogin,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, store.CreateOTP(first))

	second := &models.OTPCode{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Code:      "222222",
		Purpose:   models.OTPPurposeLogin,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, store.CreateOTP(second))

	now := time.Now()
	assert.ErrorIs(t,
		store.ConsumeOTP(user.ID, "111111", models.OTPPurposeLogin, now),
		ErrOTPUsed)
	assert.NoError(t,
		store.ConsumeOTP(user.ID, "222222", models.OTPPurposeLogin, now))
}

func TestAuditLogFiltersAndStats(t *testing.T) {
	store := createFreshStore(t)

	entries := []*models.AuditLog{
		{
			ID:        uuid.New().String(),
			EventType: models.EventGrantCreated,
			Severity:  models.SeverityInfo,
			Action:    "create grant",
			Success:   true,
			EventTime: time.Now(),
		},
		{
			ID:        uuid.New().String(),
			EventType: models.EventGrantRedeemed,
			Severity:  models.SeverityInfo,
			Action:    "redeem grant",
			Success:   true,
			EventTime: time.Now(),
		},
		{
			ID:        uuid.New().String(),
			EventType: models.EventGrantDenied,
			Severity:  models.SeverityWarning,
			Action:    "redeem grant",
			Success:   false,
			EventTime: time.Now(),
		},
	}
	require.NoError(t, store.CreateAuditLogBatch(entries))

	logs, pagination, err := store.GetAuditLogsPaginated(
		NewPaginationParams(1, 10, ""),
		AuditLogFilters{EventType: models.EventGrantRedeemed},
	)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, int64(1), pagination.Total)

	failed := false
	logs, _, err = store.GetAuditLogsPaginated(
		NewPaginationParams(1, 10, ""),
		AuditLogFilters{Success: &failed},
	)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.EventGrantDenied, logs[0].EventType)

	stats, err := store.GetAuditLogStats(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalEvents)
	assert.Equal(t, int64(2), stats.SuccessCount)
	assert.Equal(t, int64(1), stats.FailureCount)
	assert.Equal(t, int64(1), stats.EventsByType[models.EventGrantCreated])
	assert.Equal(t, int64(1), stats.EventsBySeverity[models.SeverityWarning])
}

func TestAccessLogsByPatientAndClinician(t *testing.T) {
	store := createFreshStore(t)
	patient := createTestPatient(t, store)
	clinicianID := uuid.New().String()

	for i := 0; i < 3; i++ {
		entry := &models.AccessLog{
			ID:          uuid.New().String(),
			GrantID:     uuid.New().String(),
			ClinicianID: clinicianID,
			PatientID:   patient.ID,
			RecordIDs:   models.StringArray{uuid.New().String()},
			AccessedAt:  time.Now(),
		}
		require.NoError(t, store.CreateAccessLog(entry))
	}

	byPatient, _, err := store.GetAccessLogsByPatientPaginated(
		patient.ID, NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	assert.Len(t, byPatient, 3)

	byClinician, _, err := store.GetAccessLogsByClinicianPaginated(
		clinicianID, NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	assert.Len(t, byClinician, 3)
}

func TestDriverFactory(t *testing.T) {
	tests := []struct {
		name        string
		driver      string
		dsn         string
		expectError bool
	}{
		{
			name:        "SQLite valid",
			driver:      "sqlite",
			dsn:         ":memory:",
			expectError: false,
		},
		{
			name:        "Unsupported driver",
			driver:      "mysql",
			dsn:         "user:pass@tcp(localhost:3306)/dbname",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialector, err := GetDialector(tt.driver, tt.dsn)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, dialector)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, dialector)
			}
		})
	}
}

func TestRegisterDriver(t *testing.T) {
	customDriverCalled := false
	RegisterDriver("custom", func(dsn string) gorm.Dialector {
		customDriverCalled = true
		return nil
	})

	dialector, err := GetDialector("custom", "test-dsn")
	assert.NoError(t, err)
	assert.True(t, customDriverCalled)
	assert.Nil(t, dialector)
}
