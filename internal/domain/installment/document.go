package installment

import (
	"encoding/json"
	"time"

	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Document is the persisted shape of a plan, one per subscriber
type Document struct {
	Enabled         bool                  `json:"enabled"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	NumInstallments *int                  `json:"num_installments"`
	DownPayment     *decimal.Decimal      `json:"down_payment"`
	Installments    []InstallmentDocument `json:"installments"`
}

type InstallmentDocument struct {
	Number     int              `json:"number"`
	Amount     decimal.Decimal  `json:"amount"`
	DueDate    types.Date       `json:"due_date"`
	Paid       bool             `json:"paid"`
	PaidDate   *types.Date      `json:"paid_date"`
	PaymentID  *string          `json:"payment_id"`
	PaidAmount *decimal.Decimal `json:"paid_amount"`
}

// ToDocument converts a plan to its persisted shape
func (p *Plan) ToDocument() *Document {
	doc := &Document{
		Enabled:         p.Enabled,
		TotalAmount:     p.TotalAmount,
		NumInstallments: lo.ToPtr(p.NumInstallments),
		DownPayment:     copyDecimal(p.DownPayment),
		Installments:    make([]InstallmentDocument, len(p.Installments)),
	}
	for i, inst := range p.Installments {
		doc.Installments[i] = inst.ToDocument()
	}
	return doc
}

// ToDocument converts one installment to its persisted shape
func (i Installment) ToDocument() InstallmentDocument {
	d := InstallmentDocument{
		Number:     i.Number,
		Amount:     i.Amount,
		DueDate:    types.NewDate(i.DueDate),
		Paid:       i.Paid,
		PaymentID:  i.PaymentID,
		PaidAmount: copyDecimal(i.PaidAmount),
	}
	if i.PaidDate != nil {
		d.PaidDate = lo.ToPtr(types.NewDate(*i.PaidDate))
	}
	return d
}

// MarshalDocument encodes the plan document
func MarshalDocument(p *Plan) ([]byte, error) {
	b, err := json.Marshal(p.ToDocument())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode installment plan").
			Mark(ierr.ErrInternal)
	}
	return b, nil
}

// ParseDocument decodes a stored document into a validated plan.
//
// Legacy documents are upgraded explicitly: a missing num_installments is derived from the
// list, and a list where every number is missing is numbered in stored order. Documents that
// still violate the plan invariants are rejected.
func ParseDocument(subscriberID string, raw []byte) (*Plan, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stored installment plan is malformed").
			WithReportableDetails(map[string]interface{}{
				"subscriber_id": subscriberID,
			}).
			Mark(ierr.ErrValidation)
	}
	return doc.ToPlan(subscriberID)
}

// ToPlan upgrades and validates the document
func (d *Document) ToPlan(subscriberID string) (*Plan, error) {
	num := len(d.Installments)
	if d.NumInstallments != nil {
		num = *d.NumInstallments
	}

	unnumbered := len(d.Installments) > 0 && lo.EveryBy(d.Installments, func(i InstallmentDocument) bool {
		return i.Number == 0
	})

	installments := make([]Installment, len(d.Installments))
	for idx, doc := range d.Installments {
		inst := Installment{
			Number:     doc.Number,
			Amount:     doc.Amount,
			DueDate:    doc.DueDate.Time,
			Paid:       doc.Paid,
			PaymentID:  doc.PaymentID,
			PaidAmount: copyDecimal(doc.PaidAmount),
		}
		if unnumbered {
			inst.Number = idx + 1
		}
		if doc.PaidDate != nil && !doc.PaidDate.IsZero() {
			inst.PaidDate = lo.ToPtr(doc.PaidDate.Time)
		}
		installments[idx] = inst
	}

	return NewPlan(subscriberID, d.Enabled, d.TotalAmount, num, d.DownPayment, installments)
}

// ScheduleInput describes an evenly split schedule for BuildSchedule
type ScheduleInput struct {
	TotalAmount     decimal.Decimal
	NumInstallments int
	FirstDueDate    time.Time
	// IntervalMonths between consecutive due dates, defaults to 1
	IntervalMonths int
	DownPayment    *decimal.Decimal
	// Precision is the number of decimal places amounts are rounded to
	Precision int32
}

// BuildSchedule splits the total into installments due every IntervalMonths. When a down
// payment is given it becomes installment #1 and the rest is split evenly. Rounding residue
// goes to the last installment so the planned amounts sum exactly to the total.
func BuildSchedule(in ScheduleInput) ([]Installment, error) {
	if in.NumInstallments <= 0 {
		return nil, ierr.NewError("num_installments must be positive").
			WithHint("At least one installment is required").
			Mark(ierr.ErrValidation)
	}
	if in.TotalAmount.IsNegative() {
		return nil, ierr.NewError("total_amount must not be negative").
			WithHint("Total amount must be zero or greater").
			Mark(ierr.ErrValidation)
	}
	interval := in.IntervalMonths
	if interval <= 0 {
		interval = 1
	}

	remaining := in.TotalAmount
	slots := in.NumInstallments
	out := make([]Installment, 0, in.NumInstallments)
	first := types.StartOfDay(in.FirstDueDate)

	if in.DownPayment != nil {
		if in.DownPayment.GreaterThan(in.TotalAmount) || in.DownPayment.IsNegative() {
			return nil, ierr.NewError("down_payment must be between zero and total_amount").
				WithHint("Down payment cannot exceed the total amount").
				Mark(ierr.ErrValidation)
		}
		out = append(out, Installment{Number: 1, Amount: *in.DownPayment, DueDate: first})
		remaining = remaining.Sub(*in.DownPayment)
		slots--
	}

	if slots == 0 {
		if !remaining.IsZero() {
			return nil, ierr.NewError("down payment must equal total for a single installment plan").
				WithHint("A single installment plan with a down payment must be paid in full upfront").
				Mark(ierr.ErrValidation)
		}
		return out, nil
	}

	each := remaining.Div(decimal.NewFromInt(int64(slots))).RoundDown(in.Precision)
	offset := len(out)
	for i := 0; i < slots; i++ {
		amount := each
		if i == slots-1 {
			amount = remaining.Sub(each.Mul(decimal.NewFromInt(int64(slots - 1))))
		}
		out = append(out, Installment{
			Number:  offset + i + 1,
			Amount:  amount,
			DueDate: addMonthsClamped(first, (offset+i)*interval),
		})
	}
	return out, nil
}

// addMonthsClamped moves t by months, pinning the day to the end of a shorter
// target month (Jan 31 + 1 month is Feb 29 in a leap year, not Mar 2).
// Offsets are always taken from the first due date so the day never drifts.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
