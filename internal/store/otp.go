package store

import (
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
)

// CreateOTP persists a one-time code, invalidating any earlier unused
// codes for the same user and purpose first.
func (s *Store) CreateOTP(otp *models.OTPCode) error {
	if err := s.db.Model(&models.OTPCode{}).
		Where("user_id = ? AND purpose = ? AND used = ?", otp.UserID, otp.Purpose, false).
		Update("used", true).Error; err != nil {
		return err
	}
	return s.db.Create(otp).Error
}

// ConsumeOTP marks a matching unexpired code used. The conditional UPDATE
// makes each code single-use even under concurrent verification attempts.
func (s *Store) ConsumeOTP(userID, code, purpose string, now time.Time) error {
	res := s.db.Model(&models.OTPCode{}).
		Where(
			"user_id = ? AND code = ? AND purpose = ? AND used = ? AND expires_at > ?",
			userID, code, purpose, false, now,
		).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOTPUsed
	}
	return nil
}

// DeleteExpiredOTPs removes codes past their expiry.
func (s *Store) DeleteExpiredOTPs() error {
	return s.db.Where("expires_at < ?", time.Now()).
		Delete(&models.OTPCode{}).Error
}
