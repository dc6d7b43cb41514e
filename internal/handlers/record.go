package handlers

import (
	"net/http"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/middleware"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"

	"github.com/gin-gonic/gin"
)

type RecordHandler struct {
	recordService *services.RecordService
}

func NewRecordHandler(rs *services.RecordService) *RecordHandler {
	return &RecordHandler{recordService: rs}
}

type createRecordRequest struct {
	Title      string `json:"title"       binding:"required"`
	RecordType string `json:"record_type"`
}

// Create files a new health record for the caller.
func (h *RecordHandler) Create(c *gin.Context) {
	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	record, err := h.recordService.CreateRecord(c.Request.Context(), middleware.CurrentUser(c), services.CreateRecordInput{
		Title:      req.Title,
		RecordType: req.RecordType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// List returns the caller's live records.
func (h *RecordHandler) List(c *gin.Context) {
	records, pagination, err := h.recordService.ListRecords(
		middleware.CurrentUser(c), paginationFromQuery(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":    records,
		"pagination": pagination,
	})
}

// Get returns one of the caller's records.
func (h *RecordHandler) Get(c *gin.Context) {
	record, err := h.recordService.GetRecord(middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// Delete soft-deletes a record. Grants referencing it stay valid but stop
// returning it.
func (h *RecordHandler) Delete(c *gin.Context) {
	err := h.recordService.DeleteRecord(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Record deleted",
	})
}
