package dto

import (
	"context"
	"time"

	"github.com/flexprice/installments/internal/domain/installment"
	"github.com/flexprice/installments/internal/domain/payment"
	"github.com/flexprice/installments/internal/types"
	"github.com/flexprice/installments/internal/validator"
	"github.com/shopspring/decimal"
)

type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	// PaymentDate defaults to today when omitted
	PaymentDate *types.Date       `json:"payment_date,omitempty"`
	Mode        types.PaymentMode `json:"mode" validate:"required"`
	Reference   string            `json:"reference,omitempty" validate:"max=255"`
}

// Validate checks the request shape. The amount is checked by the payment itself so a
// non-positive amount is reported as an invalid amount rather than a generic validation error.
func (r *RecordPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Mode.Validate()
}

// ToPayment builds the payment record. today is used when no payment date was given.
func (r *RecordPaymentRequest) ToPayment(ctx context.Context, subscriberID string, today time.Time) *payment.Payment {
	paymentDate := today
	if r.PaymentDate != nil && !r.PaymentDate.IsZero() {
		paymentDate = r.PaymentDate.Time
	}
	return &payment.Payment{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		SubscriberID: subscriberID,
		Amount:       r.Amount,
		PaymentDate:  types.StartOfDay(paymentDate),
		Mode:         r.Mode,
		Reference:    r.Reference,
		BaseModel:    types.GetDefaultBaseModel(types.GetUserID(ctx)),
	}
}

type RecordPaymentResponse struct {
	Payment *PaymentResponse `json:"payment"`
	// Adjustment is present when the payment settled an installment
	Adjustment *installment.Adjustment  `json:"adjustment,omitempty"`
	Plan       *InstallmentPlanResponse `json:"installment_plan,omitempty"`
}

type PaymentResponse struct {
	*payment.Payment
}

type ListPaymentsResponse struct {
	Items []*PaymentResponse `json:"items"`
	Total int                `json:"total"`
}
