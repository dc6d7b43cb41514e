package handlers

import (
	"net/http"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/middleware"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(as *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: as}
}

// Logs lists system audit events with filtering. Admin only; route-level
// RequireRole enforces that.
func (h *AuditHandler) Logs(c *gin.Context) {
	filters := store.AuditLogFilters{
		EventType:    models.EventType(c.Query("event_type")),
		ActorUserID:  c.Query("actor_user_id"),
		ResourceType: models.ResourceType(c.Query("resource_type")),
		ResourceID:   c.Query("resource_id"),
		Severity:     models.EventSeverity(c.Query("severity")),
		ActorIP:      c.Query("actor_ip"),
		Search:       c.Query("search"),
	}
	if success := c.Query("success"); success != "" {
		value := success == "true"
		filters.Success = &value
	}
	if start, err := time.Parse(time.RFC3339, c.Query("start_time")); err == nil {
		filters.StartTime = start
	}
	if end, err := time.Parse(time.RFC3339, c.Query("end_time")); err == nil {
		filters.EndTime = end
	}

	logs, pagination, err := h.auditService.GetAuditLogs(paginationFromQuery(c), filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": pagination,
	})
}

// Stats aggregates audit events over a window, defaulting to the last day.
func (h *AuditHandler) Stats(c *gin.Context) {
	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if parsed, err := time.Parse(time.RFC3339, c.Query("start_time")); err == nil {
		start = parsed
	}
	if parsed, err := time.Parse(time.RFC3339, c.Query("end_time")); err == nil {
		end = parsed
	}

	stats, err := h.auditService.GetAuditLogStats(start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// MyAccessHistory shows a patient every clinician view of their records.
func (h *AuditHandler) MyAccessHistory(c *gin.Context) {
	user := middleware.CurrentUser(c)

	entries, pagination, err := h.auditService.GetPatientAccessHistory(
		user.ID, paginationFromQuery(c),
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

// MyRedemptions shows a clinician their own redemption history.
func (h *AuditHandler) MyRedemptions(c *gin.Context) {
	user := middleware.CurrentUser(c)

	entries, pagination, err := h.auditService.GetClinicianAccessHistory(
		user.ID, paginationFromQuery(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redemptions": entries,
		"pagination":  pagination,
	})
}
