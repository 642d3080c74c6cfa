package payment

import (
	"time"

	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	"github.com/shopspring/decimal"
)

// Payment is one collected payment from a subscriber. It is stored whether or not the
// installment ledger could apply it; LedgerStatus records the outcome.
type Payment struct {
	ID           string            `json:"id"`
	SubscriberID string            `json:"subscriber_id"`
	Amount       decimal.Decimal   `json:"amount"`
	PaymentDate  time.Time         `json:"payment_date"`
	Mode         types.PaymentMode `json:"mode"`
	Reference    string            `json:"reference,omitempty"`

	// InstallmentNumber is set when the payment settled an installment
	InstallmentNumber *int               `json:"installment_number,omitempty"`
	LedgerStatus      types.LedgerStatus `json:"ledger_status"`
	types.BaseModel
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if p.SubscriberID == "" {
		return ierr.NewError("subscriber_id is required").
			WithHint("Payment must belong to a subscriber").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("payment amount must be greater than zero").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]interface{}{
				"amount": p.Amount.String(),
			}).
			Mark(ierr.ErrInvalidAmount)
	}
	if p.PaymentDate.IsZero() {
		return ierr.NewError("payment_date is required").
			WithHint("Please provide the date the payment was collected").
			Mark(ierr.ErrValidation)
	}
	return p.Mode.Validate()
}
