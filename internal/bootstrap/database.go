package bootstrap

import (
	"fmt"
	"log"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"
)

// initializeDatabase opens the store and runs migrations
func initializeDatabase(cfg *config.Config) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database (%s): %w", cfg.DatabaseDriver, err)
	}
	log.Printf("Database initialized (driver=%s)", cfg.DatabaseDriver)
	return db, nil
}
