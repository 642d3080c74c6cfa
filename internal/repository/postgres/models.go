package postgres

import (
	"time"

	"github.com/flexprice/installments/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InstallmentPlanRow stores one plan document per subscriber
type InstallmentPlanRow struct {
	SubscriberID string `gorm:"column:subscriber_id;primaryKey;size:64"`
	// Enabled mirrors the document flag so the scanner can filter in SQL
	Enabled   bool           `gorm:"column:enabled;not null;index"`
	Document  datatypes.JSON `gorm:"column:document;not null"`
	Version   int64          `gorm:"column:version;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

func (InstallmentPlanRow) TableName() string {
	return string(types.TableNameInstallmentPlans)
}

type PaymentRow struct {
	ID                string          `gorm:"column:id;primaryKey;size:64"`
	SubscriberID      string          `gorm:"column:subscriber_id;not null;size:64;index:idx_payment_subscriber_date,priority:1"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(20,8);not null"`
	PaymentDate       time.Time       `gorm:"column:payment_date;not null;index:idx_payment_subscriber_date,priority:2"`
	Mode              string          `gorm:"column:mode;not null;size:32"`
	Reference         string          `gorm:"column:reference;size:255"`
	InstallmentNumber *int            `gorm:"column:installment_number"`
	LedgerStatus      string          `gorm:"column:ledger_status;not null;size:32"`
	Status            string          `gorm:"column:status;not null;size:32"`
	CreatedAt         time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;not null"`
	CreatedBy         string          `gorm:"column:created_by;size:64"`
	UpdatedBy         string          `gorm:"column:updated_by;size:64"`
}

func (PaymentRow) TableName() string {
	return string(types.TableNamePayments)
}
