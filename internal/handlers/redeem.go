package handlers

import (
	"net/http"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/middleware"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"

	"github.com/gin-gonic/gin"
)

type RedeemHandler struct {
	redemptionService *services.RedemptionService
}

func NewRedeemHandler(rs *services.RedemptionService) *RedeemHandler {
	return &RedeemHandler{redemptionService: rs}
}

type redeemRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// RedeemQR exchanges a scanned QR payload for the shared records.
func (h *RedeemHandler) RedeemQR(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := h.redemptionService.RedeemQR(
		c.Request.Context(), middleware.CurrentUser(c), req.Payload,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RedeemShareLink resolves the payload embedded in a share link. The
// payload rides in the path, exactly as the link was issued.
func (h *RedeemHandler) RedeemShareLink(c *gin.Context) {
	result, err := h.redemptionService.RedeemURL(
		c.Request.Context(), middleware.CurrentUser(c), c.Param("payload"),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
