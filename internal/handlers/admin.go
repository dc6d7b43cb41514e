package handlers

import (
	"net/http"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	authService *services.AuthService
}

func NewAdminHandler(as *services.AuthService) *AdminHandler {
	return &AdminHandler{authService: as}
}

// Users lists all accounts for the admin console. Supports the usual
// page/page_size/search query parameters; search matches email and name.
func (h *AdminHandler) Users(c *gin.Context) {
	users, pagination, err := h.authService.ListUsers(paginationFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":      users,
		"pagination": pagination,
	})
}
