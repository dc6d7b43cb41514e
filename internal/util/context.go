package util

import (
	"context"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"

	"github.com/gin-gonic/gin"
)

// IPMiddleware extracts client IP and stores it in the context
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		c.Set("client_ip", c.ClientIP())
		c.Next()
	}
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	// Try to extract from Gin context first
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}

	// Try to get from context value (set by middleware)
	if ip, ok := ctx.Value("client_ip").(string); ok {
		return ip
	}

	return ""
}

// GetUserAgentFromContext extracts the User-Agent header from the context
func GetUserAgentFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.Request.UserAgent()
	}
	return ""
}

// GetEmailFromContext extracts the email of the authenticated user in context
func GetEmailFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if userVal, exists := ginCtx.Get("user"); exists {
			if user, ok := userVal.(*models.User); ok {
				return user.Email
			}
		}
	}
	return ""
}
