package internal

import (
	"fmt"

	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/postgres"
	repo "github.com/flexprice/installments/internal/repository/postgres"
)

// MigrateSchema creates or updates the installment plan and payment tables
func MigrateSchema() error {
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := repo.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Infow("schema migration completed", "driver", cfg.Postgres.Driver)
	return nil
}
