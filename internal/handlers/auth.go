package handlers

import (
	"net/http"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/middleware"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService  *services.AuthService
	tokenService *services.TokenService
}

func NewAuthHandler(as *services.AuthService, ts *services.TokenService) *AuthHandler {
	return &AuthHandler{
		authService:  as,
		tokenService: ts,
	}
}

type registerRequest struct {
	Email          string `json:"email"            binding:"required,email"`
	Password       string `json:"password"         binding:"required,min=12"`
	FullName       string `json:"full_name"        binding:"required"`
	Role           string `json:"role"             binding:"required,oneof=PATIENT CLINICIAN"`
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"license_number"`
}

// Register creates an inactive account and mails a verification code.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		FullName:       req.FullName,
		Role:           req.Role,
		Specialization: req.Specialization,
		LicenseNumber:  req.LicenseNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id": user.ID,
		"email":   user.Email,
		"message": "Verification code sent. Verify to activate the account.",
	})
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is step one of the two-step login: a correct password triggers a
// one-time code. No credentials are returned here.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.authService.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification code sent",
	})
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code"  binding:"required"`
}

// VerifyOTP is step two: the code is exchanged for a credential pair.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	pair, err := h.authService.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh token into a new credential pair. A consumed
// or revoked token ends the whole session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	pair, err := h.tokenService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestPasswordReset mails a reset code. The response is the same
// whether or not the email belongs to an account.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If the account exists, a reset code has been sent",
	})
}

type passwordResetConfirm struct {
	Email       string `json:"email"        binding:"required,email"`
	Code        string `json:"code"         binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=12"`
}

// ResetPassword exchanges a reset code for a new password. All the
// account's sessions are revoked.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req passwordResetConfirm
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password updated. Log in with the new password.",
	})
}

// Logout revokes every live token of the calling user.
func (h *AuthHandler) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.tokenService.Logout(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out",
	})
}

// Me returns the calling user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      user.Role,
	})
}
