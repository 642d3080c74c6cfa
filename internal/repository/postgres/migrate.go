package postgres

import (
	ierr "github.com/flexprice/installments/internal/errors"
	"gorm.io/gorm"
)

// Migrate creates or updates the ledger tables for the active dialect
func Migrate(db *gorm.DB) error {
	if db == nil {
		return ierr.NewError("nil database connection").Mark(ierr.ErrInternal)
	}
	if err := db.AutoMigrate(&InstallmentPlanRow{}, &PaymentRow{}); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to migrate the database schema").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
