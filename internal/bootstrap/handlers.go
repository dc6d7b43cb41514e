package bootstrap

import (
	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/handlers"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"
)

// handlerSet groups all HTTP handlers
type handlerSet struct {
	Auth   *handlers.AuthHandler
	Grant  *handlers.GrantHandler
	Redeem *handlers.RedeemHandler
	Record *handlers.RecordHandler
	Audit  *handlers.AuditHandler
	Admin  *handlers.AdminHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	authService *services.AuthService,
	tokenService *services.TokenService,
	grantService *services.GrantService,
	redemptionService *services.RedemptionService,
	recordService *services.RecordService,
	auditService *services.AuditService,
) handlerSet {
	return handlerSet{
		Auth:   handlers.NewAuthHandler(authService, tokenService),
		Grant:  handlers.NewGrantHandler(grantService, auditService),
		Redeem: handlers.NewRedeemHandler(redemptionService),
		Record: handlers.NewRecordHandler(recordService),
		Audit:  handlers.NewAuditHandler(auditService),
		Admin:  handlers.NewAdminHandler(authService),
	}
}
