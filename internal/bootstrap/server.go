package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/cache"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/metrics"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"

	"github.com/appleboy/graceful"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// startWithGracefulShutdown starts the server and its background jobs,
// blocking until shutdown completes
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addAuditServiceShutdownJob(m, app.AuditService)
	addAuditLogCleanupJob(m, app.Config, app.AuditService)
	addExpiryCleanupJob(m, app.TokenService, app.GrantService, app.DB)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.GaugeCache)

	<-m.Done()
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addAuditServiceShutdownJob flushes buffered audit events before exit
func addAuditServiceShutdownJob(m *graceful.Manager, auditService *services.AuditService) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down audit service: %v", err)
			return err
		}
		return nil
	})
}

// addAuditLogCleanupJob ages out old audit logs daily. Access logs are
// never touched by this job.
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
) {
	if !cfg.EnableAuditLogging || cfg.AuditLogRetention <= 0 {
		return
	}

	cleanup := func() {
		if deleted, err := auditService.CleanupOldLogs(cfg.AuditLogRetention); err != nil {
			log.Printf("Failed to cleanup old audit logs: %v", err)
		} else if deleted > 0 {
			log.Printf("Cleaned up %d old audit logs", deleted)
		}
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		cleanup()
		for {
			select {
			case <-ticker.C:
				cleanup()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addExpiryCleanupJob hourly removes expired tokens and OTP codes, and
// garbage-collects grants past their retention window
func addExpiryCleanupJob(
	m *graceful.Manager,
	tokenService *services.TokenService,
	grantService *services.GrantService,
	db *store.Store,
) {
	cleanup := func() {
		if err := tokenService.CleanupExpired(); err != nil {
			log.Printf("Failed to cleanup expired tokens: %v", err)
		}
		if err := db.DeleteExpiredOTPs(); err != nil {
			log.Printf("Failed to cleanup expired OTP codes: %v", err)
		}
		if deleted, err := grantService.CleanupDeadGrants(); err != nil {
			log.Printf("Failed to cleanup dead grants: %v", err)
		} else if deleted > 0 {
			log.Printf("Garbage-collected %d dead grants", deleted)
		}
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		cleanup()
		for {
			select {
			case <-ticker.C:
				cleanup()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// errorLogger rate-limits repeated gauge query error logs
type errorLogger struct {
	lastErrorTimes  map[string]time.Time
	rateLimitWindow time.Duration
}

func newErrorLogger() *errorLogger {
	return &errorLogger{
		lastErrorTimes:  make(map[string]time.Time),
		rateLimitWindow: 5 * time.Minute,
	}
}

func (e *errorLogger) logIfNeeded(operation string, err error) {
	now := time.Now()
	lastTime, exists := e.lastErrorTimes[operation]

	if !exists || now.Sub(lastTime) >= e.rateLimitWindow {
		log.Printf("Database query failed for %s: %v (further errors will be suppressed for %v)",
			operation, err, e.rateLimitWindow)
		e.lastErrorTimes[operation] = now
	}
}

var gaugeErrorLogger = newErrorLogger()

// addMetricsGaugeUpdateJob periodically refreshes the active-token and
// active-grant gauges through the read-through cache
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder metrics.Recorder,
	gaugeCache cache.Cache[int64],
) {
	if !cfg.MetricsEnabled {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeUpdateInterval)
		defer ticker.Stop()

		wrapper := metrics.NewCacheWrapper(db, gaugeCache)

		updateGauges(ctx, wrapper, recorder, cfg.MetricsGaugeUpdateInterval)
		for {
			select {
			case <-ticker.C:
				updateGauges(ctx, wrapper, recorder, cfg.MetricsGaugeUpdateInterval)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// updateGauges refreshes the gauge metrics. The cache TTL matches the
// update interval so repeated gauges within one tick share a query.
func updateGauges(
	ctx context.Context,
	wrapper *metrics.CacheWrapper,
	m metrics.Recorder,
	cacheTTL time.Duration,
) {
	for _, category := range []string{"access", "refresh"} {
		count, err := wrapper.GetActiveTokensCount(ctx, category, cacheTTL)
		if err != nil {
			m.RecordDatabaseQueryError("count_" + category + "_tokens")
			gaugeErrorLogger.logIfNeeded("count_"+category+"_tokens", err)
			continue
		}
		m.SetActiveTokensCount(category, int(count))
	}

	grants, err := wrapper.GetActiveGrantsCount(ctx, cacheTTL)
	if err != nil {
		m.RecordDatabaseQueryError("count_active_grants")
		gaugeErrorLogger.logIfNeeded("count_active_grants", err)
		return
	}
	m.SetActiveGrantsCount(int(grants))
}
