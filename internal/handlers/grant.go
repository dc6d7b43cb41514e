package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/middleware"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"

	"github.com/gin-gonic/gin"
)

type GrantHandler struct {
	grantService *services.GrantService
	auditService *services.AuditService
}

func NewGrantHandler(gs *services.GrantService, as *services.AuditService) *GrantHandler {
	return &GrantHandler{
		grantService: gs,
		auditService: as,
	}
}

type createGrantRequest struct {
	RecordIDs      []string `json:"record_ids"      binding:"required"`
	ExpiresIn      string   `json:"expires_in"`      // Go duration string, e.g. "24h"
	MaxRedemptions *int     `json:"max_redemptions"`
	DeliveryMethod string   `json:"delivery_method" binding:"required,oneof=QR URL"`
}

// Create shares a set of the caller's records as a new grant.
func (h *GrantHandler) Create(c *gin.Context) {
	var req createGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	var expiresIn time.Duration
	if req.ExpiresIn != "" {
		var err error
		expiresIn, err = time.ParseDuration(req.ExpiresIn)
		if err != nil {
			respondBadRequest(c, "expires_in must be a duration like 24h or 30m")
			return
		}
	}

	result, err := h.grantService.CreateGrant(c.Request.Context(), middleware.CurrentUser(c), services.CreateGrantInput{
		RecordIDs:      req.RecordIDs,
		ExpiresIn:      expiresIn,
		MaxRedemptions: req.MaxRedemptions,
		DeliveryMethod: req.DeliveryMethod,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List returns the caller's grants, newest first.
func (h *GrantHandler) List(c *gin.Context) {
	grants, pagination, err := h.grantService.ListGrants(
		middleware.CurrentUser(c), paginationFromQuery(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"grants":     grants,
		"pagination": pagination,
	})
}

// Get returns one of the caller's grants with its delivery payload, so
// the owner can bring the QR code or share link back up later.
func (h *GrantHandler) Get(c *gin.Context) {
	result, err := h.grantService.GetGrant(middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Revoke marks a grant revoked. Repeating the call is harmless.
func (h *GrantHandler) Revoke(c *gin.Context) {
	err := h.grantService.RevokeGrant(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Grant revoked",
	})
}

// Accesses lists the redemptions of one grant so its owner can see who
// viewed what before deciding to revoke.
func (h *GrantHandler) Accesses(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	// Ownership check first; the access log itself is not owner-scoped
	if _, err := h.grantService.GetGrant(owner, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	entries, pagination, err := h.auditService.GetGrantAccessHistory(
		c.Param("id"), paginationFromQuery(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accesses":   entries,
		"pagination": pagination,
	})
}

// paginationFromQuery reads page/page_size/search query parameters,
// falling back to the store defaults on garbage.
func paginationFromQuery(c *gin.Context) store.PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return store.NewPaginationParams(page, pageSize, c.Query("search"))
}
