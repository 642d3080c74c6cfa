package installment

import (
	"sort"
	"time"

	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Plan is the installment schedule owned by one subscriber.
// Installments are always kept sorted by Number.
type Plan struct {
	SubscriberID    string           `json:"subscriber_id"`
	Enabled         bool             `json:"enabled"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	NumInstallments int              `json:"num_installments"`
	DownPayment     *decimal.Decimal `json:"down_payment,omitempty"`
	Installments    []Installment    `json:"installments"`

	// Version is the optimistic concurrency token of the stored document
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Installment is one scheduled partial payment
type Installment struct {
	Number     int              `json:"number"`
	Amount     decimal.Decimal  `json:"amount"`
	DueDate    time.Time        `json:"due_date"`
	Paid       bool             `json:"paid"`
	PaidDate   *time.Time       `json:"paid_date,omitempty"`
	PaymentID  *string          `json:"payment_id,omitempty"`
	PaidAmount *decimal.Decimal `json:"paid_amount,omitempty"`
}

// CollectedAmount is what a paid installment contributes to the paid total
func (i Installment) CollectedAmount() decimal.Decimal {
	if i.PaidAmount != nil {
		return *i.PaidAmount
	}
	return i.Amount
}

// NewPlan builds a validated plan. The installments are copied and sorted by number.
func NewPlan(
	subscriberID string,
	enabled bool,
	totalAmount decimal.Decimal,
	numInstallments int,
	downPayment *decimal.Decimal,
	installments []Installment,
) (*Plan, error) {
	p := &Plan{
		SubscriberID:    subscriberID,
		Enabled:         enabled,
		TotalAmount:     totalAmount,
		NumInstallments: numInstallments,
		DownPayment:     copyDecimal(downPayment),
		Installments:    copyInstallments(installments),
	}
	for i := range p.Installments {
		p.Installments[i].DueDate = types.StartOfDay(p.Installments[i].DueDate)
	}
	p.sortInstallments()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) sortInstallments() {
	sort.SliceStable(p.Installments, func(i, j int) bool {
		return p.Installments[i].Number < p.Installments[j].Number
	})
}

// Validate checks the structural invariants of the plan
func (p *Plan) Validate() error {
	if p.SubscriberID == "" {
		return ierr.NewError("subscriber_id is required").
			WithHint("Installment plan must belong to a subscriber").
			Mark(ierr.ErrValidation)
	}

	if p.TotalAmount.IsNegative() {
		return ierr.NewError("total_amount must not be negative").
			WithHint("Total amount must be zero or greater").
			WithReportableDetails(map[string]interface{}{
				"total_amount": p.TotalAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if p.DownPayment != nil && p.DownPayment.IsNegative() {
		return ierr.NewError("down_payment must not be negative").
			WithHint("Down payment must be zero or greater").
			Mark(ierr.ErrValidation)
	}

	if p.NumInstallments != len(p.Installments) {
		return ierr.NewError("num_installments does not match installments").
			WithHint("Number of installments must match the installment list").
			WithReportableDetails(map[string]interface{}{
				"num_installments": p.NumInstallments,
				"installments":     len(p.Installments),
			}).
			Mark(ierr.ErrValidation)
	}

	var prevDue time.Time
	for idx, inst := range p.Installments {
		// sorted by number, so contiguous from 1 means number == position+1
		if inst.Number != idx+1 {
			return ierr.NewErrorf("installment numbers must be unique and contiguous from 1, found %d at position %d", inst.Number, idx+1).
				WithHint("Installment numbers must run 1..n without gaps or duplicates").
				WithReportableDetails(map[string]interface{}{
					"numbers": lo.Map(p.Installments, func(i Installment, _ int) int { return i.Number }),
				}).
				Mark(ierr.ErrValidation)
		}

		if inst.Amount.IsNegative() {
			return ierr.NewErrorf("installment %d amount must not be negative", inst.Number).
				WithHint("Installment amounts must be zero or greater").
				WithReportableDetails(map[string]interface{}{
					"number": inst.Number,
					"amount": inst.Amount.String(),
				}).
				Mark(ierr.ErrValidation)
		}

		if inst.DueDate.IsZero() {
			return ierr.NewErrorf("installment %d is missing due_date", inst.Number).
				WithHint("Every installment needs a due date").
				Mark(ierr.ErrValidation)
		}

		if idx > 0 && inst.DueDate.Before(prevDue) {
			return ierr.NewErrorf("installment %d is due before installment %d", inst.Number, inst.Number-1).
				WithHint("Installment due dates must not decrease as the installment number increases").
				WithReportableDetails(map[string]interface{}{
					"number":   inst.Number,
					"due_date": inst.DueDate.Format(types.DateFormat),
				}).
				Mark(ierr.ErrValidation)
		}
		prevDue = inst.DueDate

		if inst.Paid && (inst.PaidDate == nil || inst.PaymentID == nil || *inst.PaymentID == "") {
			return ierr.NewErrorf("paid installment %d must have paid_date and payment_id", inst.Number).
				WithHint("Paid installments must reference the payment that settled them").
				Mark(ierr.ErrValidation)
		}

		if !inst.Paid && inst.PaidAmount != nil {
			return ierr.NewErrorf("unpaid installment %d must not carry paid_amount", inst.Number).
				WithHint("Only paid installments can have a paid amount").
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}

// Clone returns a deep copy of the plan
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.DownPayment = copyDecimal(p.DownPayment)
	c.Installments = copyInstallments(p.Installments)
	return &c
}

// firstUnpaidFrom returns the position of the lowest numbered unpaid installment at or
// after position from, or -1
func (p *Plan) firstUnpaidFrom(from int) int {
	for i := from; i < len(p.Installments); i++ {
		if !p.Installments[i].Paid {
			return i
		}
	}
	return -1
}

// IsFullyPaid reports whether every installment is paid
func (p *Plan) IsFullyPaid() bool {
	return p.firstUnpaidFrom(0) == -1
}

// ScheduledTotal is the live sum of planned amounts. It can drift from TotalAmount
// after carry-forward adjustments.
func (p *Plan) ScheduledTotal() decimal.Decimal {
	return lo.Reduce(p.Installments, func(acc decimal.Decimal, i Installment, _ int) decimal.Decimal {
		return acc.Add(i.Amount)
	}, decimal.Zero)
}

func copyInstallments(in []Installment) []Installment {
	if in == nil {
		return nil
	}
	out := make([]Installment, len(in))
	for i, inst := range in {
		out[i] = inst
		out[i].PaidAmount = copyDecimal(inst.PaidAmount)
		if inst.PaidDate != nil {
			out[i].PaidDate = lo.ToPtr(*inst.PaidDate)
		}
		if inst.PaymentID != nil {
			out[i].PaymentID = lo.ToPtr(*inst.PaymentID)
		}
	}
	return out
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
