package handlers

import (
	"errors"
	"net/http"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP status codes and the shared
// {error, error_description} body shape.
func respondError(c *gin.Context, err error) {
	status, code := classifyError(err)
	c.JSON(status, gin.H{
		"error":             code,
		"error_description": err.Error(),
	})
}

func classifyError(err error) (status int, code string) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidOTP):
		return http.StatusUnauthorized, "invalid_grant"
	case errors.Is(err, services.ErrSessionExpired):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, services.ErrUserInactive):
		return http.StatusForbidden, "account_inactive"
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_range"
	case errors.Is(err, services.ErrEmptySelection):
		return http.StatusBadRequest, "empty_selection"
	case errors.Is(err, services.ErrInvalidPayload):
		// Malformed, forged, and cross-method payloads all land here so a
		// probe cannot distinguish "bad signature" from "no such grant"
		return http.StatusNotFound, "invalid_payload"
	case errors.Is(err, services.ErrGrantNotFound):
		return http.StatusNotFound, "grant_not_found"
	case errors.Is(err, services.ErrGrantExpired):
		return http.StatusGone, "grant_expired"
	case errors.Is(err, services.ErrGrantRevoked):
		return http.StatusGone, "grant_revoked"
	case errors.Is(err, services.ErrGrantExhausted):
		return http.StatusConflict, "grant_exhausted"
	case errors.Is(err, services.ErrRecordNotFound):
		return http.StatusNotFound, "record_not_found"
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, services.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

// respondBadRequest reports a malformed request body or parameter.
func respondBadRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":             "invalid_request",
		"error_description": description,
	})
}
