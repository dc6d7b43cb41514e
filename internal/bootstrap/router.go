package bootstrap

import (
	"log"
	"net/http"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/metrics"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/middleware"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	h handlerSet,
	tokenService *services.TokenService,
	authService *services.AuthService,
	m metrics.Recorder,
) (*gin.Engine, error) {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(m))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	r.GET("/healthz", createHealthCheckHandler(db))
	setupMetricsEndpoint(r, cfg)

	limiters, err := setupRateLimiting(cfg)
	if err != nil {
		return nil, err
	}

	requireAuth := middleware.RequireAuth(tokenService, authService)
	patientOnly := middleware.RequireRole(models.RolePatient)
	clinicianOnly := middleware.RequireRole(models.RoleClinician)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", limiters.login, h.Auth.Register)
		auth.POST("/login", limiters.login, h.Auth.Login)
		auth.POST("/verify-otp", limiters.login, h.Auth.VerifyOTP)
		auth.POST("/token/refresh", limiters.refresh, h.Auth.Refresh)
		auth.POST("/password-reset/request", limiters.login, h.Auth.RequestPasswordReset)
		auth.POST("/password-reset/confirm", limiters.login, h.Auth.ResetPassword)
		auth.POST("/logout", requireAuth, h.Auth.Logout)
		auth.GET("/me", requireAuth, h.Auth.Me)
	}

	records := r.Group("/api/records", requireAuth, patientOnly)
	{
		records.POST("", h.Record.Create)
		records.GET("", h.Record.List)
		records.GET("/:id", h.Record.Get)
		records.DELETE("/:id", h.Record.Delete)
	}

	grants := r.Group("/api/grants", requireAuth, patientOnly)
	{
		grants.POST("", h.Grant.Create)
		grants.GET("", h.Grant.List)
		grants.GET("/:id", h.Grant.Get)
		grants.DELETE("/:id", h.Grant.Revoke)
		grants.GET("/:id/accesses", h.Grant.Accesses)
	}

	r.POST("/api/redeem/qr", limiters.redeem, requireAuth, clinicianOnly, h.Redeem.RedeemQR)
	r.GET("/share/:payload", limiters.redeem, requireAuth, clinicianOnly, h.Redeem.RedeemShareLink)

	r.GET("/api/me/access-history", requireAuth, patientOnly, h.Audit.MyAccessHistory)
	r.GET("/api/me/redemptions", requireAuth, clinicianOnly, h.Audit.MyRedemptions)

	audit := r.Group("/api/audit", requireAuth, adminOnly)
	{
		audit.GET("/logs", h.Audit.Logs)
		audit.GET("/stats", h.Audit.Stats)
	}

	r.GET("/api/admin/users", requireAuth, adminOnly, h.Admin.Users)

	logServerStartup(cfg)
	return r, nil
}

func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
}

// createHealthCheckHandler reports liveness plus database reachability
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// setupMetricsEndpoint configures the Prometheus scrape endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET("/metrics", middleware.MetricsAuth(cfg.MetricsToken), gin.WrapH(promhttp.Handler()))
	default:
		log.Printf("Prometheus metrics enabled at /metrics (unauthenticated)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func logServerStartup(cfg *config.Config) {
	log.Printf("Server listening on %s (base URL %s)", cfg.ServerAddr, cfg.BaseURL)
}
