package types

import (
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// VarianceTolerance is the largest collected/planned mismatch that is not carried forward
var VarianceTolerance = decimal.NewFromFloat(0.5)

const (
	// DueSoonWindowDays is how far ahead unpaid installments raise a due soon alert
	DueSoonWindowDays = 3
	// DueSoonHighPriorityDays is the window inside which a due soon alert is high priority
	DueSoonHighPriorityDays = 2
)

type DueAlertType string

const (
	DueAlertTypeOverdue DueAlertType = "installment_overdue"
	DueAlertTypeDueSoon DueAlertType = "installment_due_soon"
)

type DueAlertPriority string

const (
	DueAlertPriorityHigh   DueAlertPriority = "high"
	DueAlertPriorityMedium DueAlertPriority = "medium"
)

type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "cash"
	PaymentModeCard         PaymentMode = "card"
	PaymentModeBankTransfer PaymentMode = "bank_transfer"
	PaymentModeUPI          PaymentMode = "upi"
	PaymentModeOther        PaymentMode = "other"
)

func (m PaymentMode) Validate() error {
	allowed := []PaymentMode{
		PaymentModeCash,
		PaymentModeCard,
		PaymentModeBankTransfer,
		PaymentModeUPI,
		PaymentModeOther,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewErrorf("invalid payment mode: %s", m).
			WithHint("Please provide a valid payment mode").
			WithReportableDetails(map[string]interface{}{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LedgerStatus records what the installment ledger did with a collected payment
type LedgerStatus string

const (
	LedgerStatusApplied          LedgerStatus = "applied"
	LedgerStatusSkippedFullyPaid LedgerStatus = "skipped_fully_paid"
	LedgerStatusSkippedDisabled  LedgerStatus = "skipped_disabled"
	LedgerStatusSkippedNoPlan    LedgerStatus = "skipped_no_plan"
)
