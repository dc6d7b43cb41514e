package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/metrics"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// OTPSender delivers one-time codes to users. The production deployment
// plugs in its mail gateway here.
type OTPSender interface {
	Send(ctx context.Context, user *models.User, code, purpose string) error
}

// LogOTPSender writes codes to the application log. Development only.
type LogOTPSender struct{}

func (LogOTPSender) Send(ctx context.Context, user *models.User, code, purpose string) error {
	log.Printf("[OTP] purpose=%s user=%s code=%s", purpose, user.Email, code)
	return nil
}

// AuthService handles registration, password login, and OTP verification.
// Login is two-step: a correct password yields an OTP challenge, and only
// OTP verification yields a credential pair.
type AuthService struct {
	store        *store.Store
	config       *config.Config
	tokenService *TokenService
	otpSender    OTPSender
	auditService *AuditService
	metrics      metrics.Recorder
}

func NewAuthService(
	s *store.Store,
	cfg *config.Config,
	tokenService *TokenService,
	otpSender OTPSender,
	auditService *AuditService,
	m metrics.Recorder,
) *AuthService {
	return &AuthService{
		store:        s,
		config:       cfg,
		tokenService: tokenService,
		otpSender:    otpSender,
		auditService: auditService,
		metrics:      m,
	}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email          string
	Password       string
	FullName       string
	Role           string
	Specialization string
	LicenseNumber  string
}

// Register creates an inactive account and sends a verification OTP.
// The account stays inactive until the OTP is verified.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if input.Role != models.RolePatient && input.Role != models.RoleClinician {
		return nil, ErrForbidden
	}

	if _, err := s.store.GetUserByEmail(input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrStorageUnavailable
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:             uuid.New().String(),
		Email:          input.Email,
		PasswordHash:   string(hash),
		FullName:       input.FullName,
		Role:           input.Role,
		Active:         false,
		Specialization: input.Specialization,
		LicenseNumber:  input.LicenseNumber,
	}
	if err := s.store.CreateUser(user); err != nil {
		return nil, ErrStorageUnavailable
	}

	if err := s.issueOTP(ctx, user, models.OTPPurposeVerifyEmail); err != nil {
		return nil, err
	}

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventAuthenticationSuccess,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ActorEmail:   user.Email,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		Action:       "register",
		Success:      true,
	})
	return user, nil
}

// Login verifies the password and, if correct, issues a login OTP. It does
// not return credentials: VerifyOTP completes the login. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	start := time.Now()

	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		// Burn comparable time so missing accounts are not detectable
		// through response latency.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(password),
		)
		s.recordAuthFailure(ctx, email, "unknown email", start)
		return ErrInvalidCredentials
	}

	if !user.CheckPassword(password) {
		s.recordAuthFailure(ctx, email, "wrong password", start)
		return ErrInvalidCredentials
	}

	purpose := models.OTPPurposeLogin
	if !user.Active {
		// Unverified account: resend the activation code instead
		purpose = models.OTPPurposeVerifyEmail
	}

	if err := s.issueOTP(ctx, user, purpose); err != nil {
		return err
	}

	s.metrics.RecordAuthAttempt(true, time.Since(start))
	return nil
}

// VerifyOTP consumes a pending code and completes the login, issuing a
// credential pair. Verifying an activation code also flips the account
// active.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*CredentialPair, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		s.metrics.RecordOTPVerification(false)
		return nil, ErrInvalidOTP
	}

	now := time.Now()
	activated := false
	if err := s.store.ConsumeOTP(user.ID, code, models.OTPPurposeLogin, now); err != nil {
		// Not a login code; it may be the activation code
		if err := s.store.ConsumeOTP(user.ID, code, models.OTPPurposeVerifyEmail, now); err != nil {
			s.metrics.RecordOTPVerification(false)
			s.auditService.Log(ctx, AuditLogEntry{
				EventType:    models.EventAuthenticationFailure,
				Severity:     models.SeverityWarning,
				ActorUserID:  user.ID,
				ActorEmail:   user.Email,
				ResourceType: models.ResourceUser,
				ResourceID:   user.ID,
				Action:       "verify otp",
				Success:      false,
				ErrorMessage: "invalid or expired code",
			})
			return nil, ErrInvalidOTP
		}
		activated = true
	}

	if activated && !user.Active {
		user.Active = true
		if err := s.store.UpdateUser(user); err != nil {
			return nil, ErrStorageUnavailable
		}
	}
	if !user.Active {
		return nil, ErrUserInactive
	}

	s.metrics.RecordOTPVerification(true)
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventOTPVerified,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ActorEmail:   user.Email,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		Action:       "verify otp",
		Success:      true,
	})

	return s.tokenService.IssuePair(ctx, user)
}

// RequestPasswordReset issues a reset code to the account's email.
// Unknown emails are not reported back to the caller, so the endpoint
// cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil
		}
		return ErrStorageUnavailable
	}
	return s.issueOTP(ctx, user, models.OTPPurposePasswordReset)
}

// ResetPassword consumes a pending reset code and replaces the password.
// Every live session of the account is revoked: a reset usually means the
// old password is suspect, and so is anything minted under it.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return ErrInvalidOTP
	}

	if err := s.store.ConsumeOTP(user.ID, code, models.OTPPurposePasswordReset, time.Now()); err != nil {
		s.auditService.Log(ctx, AuditLogEntry{
			EventType:    models.EventAuthenticationFailure,
			Severity:     models.SeverityWarning,
			ActorUserID:  user.ID,
			ActorEmail:   user.Email,
			ResourceType: models.ResourceUser,
			ResourceID:   user.ID,
			Action:       "reset password",
			Success:      false,
			ErrorMessage: "invalid or expired reset code",
		})
		return ErrInvalidOTP
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	if err := s.store.UpdateUser(user); err != nil {
		return ErrStorageUnavailable
	}
	if err := s.store.RevokeTokensByUserID(user.ID); err != nil {
		return ErrStorageUnavailable
	}

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventPasswordReset,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ActorEmail:   user.Email,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		Action:       "reset password",
		Success:      true,
	})
	return nil
}

// ListUsers returns all accounts, newest first. Admin surface.
func (s *AuthService) ListUsers(
	params store.PaginationParams,
) ([]models.User, store.PaginationResult, error) {
	users, pagination, err := s.store.ListUsersPaginated(params)
	if err != nil {
		return nil, store.PaginationResult{}, ErrStorageUnavailable
	}
	return users, pagination, nil
}

// GetUserByID looks up a user for middleware and handlers.
func (s *AuthService) GetUserByID(id string) (*models.User, error) {
	user, err := s.store.GetUserByID(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) issueOTP(ctx context.Context, user *models.User, purpose string) error {
	code, err := util.RandomDigits(s.config.OTPLength)
	if err != nil {
		return err
	}

	otp := &models.OTPCode{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.config.OTPExpiration),
	}
	if err := s.store.CreateOTP(otp); err != nil {
		return ErrStorageUnavailable
	}

	if err := s.otpSender.Send(ctx, user, code, purpose); err != nil {
		log.Printf("[Auth] Failed to deliver OTP to %s: %v", user.Email, err)
		return err
	}

	s.metrics.RecordOTPIssued()
	return nil
}

func (s *AuthService) recordAuthFailure(ctx context.Context, email, reason string, start time.Time) {
	s.metrics.RecordAuthAttempt(false, time.Since(start))
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventAuthenticationFailure,
		Severity:     models.SeverityWarning,
		ActorEmail:   email,
		ResourceType: models.ResourceUser,
		Action:       "login",
		Success:      false,
		ErrorMessage: reason,
	})
}
