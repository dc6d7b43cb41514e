package bootstrap

import (
	"log"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
)

// validateConfiguration warns loudly about insecure defaults. The server
// still starts so local development stays frictionless.
func validateConfiguration(cfg *config.Config) {
	if cfg.JWTSecret == "your-256-bit-secret-change-in-production" {
		if cfg.IsProduction {
			log.Fatal("JWT_SECRET must be changed in production")
		}
		log.Println("WARNING: using the default JWT_SECRET, do not deploy this")
	}
	if cfg.PayloadSecret == "payload-secret-change-in-production" {
		if cfg.IsProduction {
			log.Fatal("PAYLOAD_SECRET must be changed in production")
		}
		log.Println("WARNING: using the default PAYLOAD_SECRET, do not deploy this")
	}
	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN is required for the postgres driver")
	}
	if cfg.GrantMaxExpiry <= 0 {
		log.Fatal("GRANT_MAX_EXPIRY must be positive")
	}
	if cfg.OTPLength < 4 || cfg.OTPLength > 10 {
		log.Fatalf("OTP_LENGTH must be between 4 and 10, got %d", cfg.OTPLength)
	}
}
