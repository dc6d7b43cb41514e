package bootstrap

import (
	"net/http"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/cache"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/metrics"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/payload"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"

	"github.com/gin-gonic/gin"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB              *store.Store
	MetricsRecorder metrics.Recorder
	GaugeCache      cache.Cache[int64]
	RecordCache     cache.Cache[models.Record]

	// Services
	AuditService      *services.AuditService
	TokenService      *services.TokenService
	AuthService       *services.AuthService
	GrantService      *services.GrantService
	RedemptionService *services.RedemptionService
	RecordService     *services.RecordService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	validateConfiguration(cfg)

	if err := app.initializeInfrastructure(); err != nil {
		return err
	}
	app.initializeBusinessLayer()
	if err := app.initializeHTTPLayer(); err != nil {
		return err
	}

	app.startWithGracefulShutdown()
	return nil
}

// initializeInfrastructure sets up database, metrics, and caches
func (app *Application) initializeInfrastructure() error {
	var err error

	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	app.MetricsRecorder = metrics.Init(app.Config.MetricsEnabled)
	app.GaugeCache = cache.NewMemoryCache[int64]()
	app.RecordCache = cache.NewMemoryCache[models.Record]()

	return nil
}

// initializeBusinessLayer wires the services
func (app *Application) initializeBusinessLayer() {
	// Audit first: every other service logs through it
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Config.EnableAuditLogging,
		app.Config.AuditLogBufferSize,
		app.MetricsRecorder,
	)

	codec := payload.NewCodec(app.Config.PayloadSecret)

	app.TokenService,
		app.AuthService,
		app.GrantService,
		app.RedemptionService,
		app.RecordService = initializeServices(
		app.Config,
		app.DB,
		codec,
		app.RecordCache,
		app.AuditService,
		app.MetricsRecorder,
	)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	app.HandlerSet = initializeHandlers(
		app.Config,
		app.AuthService,
		app.TokenService,
		app.GrantService,
		app.RedemptionService,
		app.RecordService,
		app.AuditService,
	)

	router, err := setupRouter(
		app.Config,
		app.DB,
		app.HandlerSet,
		app.TokenService,
		app.AuthService,
		app.MetricsRecorder,
	)
	if err != nil {
		return err
	}
	app.Router = router

	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}
