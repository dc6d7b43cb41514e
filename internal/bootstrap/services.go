package bootstrap

import (
	"github.com/tpri2322-commits/patient-digi-health-book/internal/cache"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/metrics"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/payload"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/token"
)

// initializeServices creates all business services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	codec *payload.Codec,
	recordCache cache.Cache[models.Record],
	auditService *services.AuditService,
	m metrics.Recorder,
) (
	*services.TokenService,
	*services.AuthService,
	*services.GrantService,
	*services.RedemptionService,
	*services.RecordService,
) {
	provider := token.NewLocalTokenProvider(cfg)
	tokenService := services.NewTokenService(db, cfg, provider, auditService, m)

	// OTP codes go to the application log until a mail provider is wired
	authService := services.NewAuthService(db, cfg, tokenService, services.LogOTPSender{}, auditService, m)

	grantService := services.NewGrantService(db, cfg, codec, auditService, m)
	redemptionService := services.NewRedemptionService(db, cfg, codec, recordCache, auditService, m)
	recordService := services.NewRecordService(db)

	return tokenService, authService, grantService, redemptionService, recordService
}
