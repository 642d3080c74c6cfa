package installment

import (
	"sort"
	"time"

	"github.com/flexprice/installments/internal/types"
	"github.com/shopspring/decimal"
)

// Summary holds the derived aggregates of one plan snapshot. The same values back the
// subscriber facing summary and the due date scanner.
type Summary struct {
	SubscriberID       string          `json:"subscriber_id"`
	AsOf               time.Time       `json:"as_of"`
	TotalCount         int             `json:"total_count"`
	PaidCount          int             `json:"paid_count"`
	ProgressPercentage int64           `json:"progress_percentage"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	RemainingAmount    decimal.Decimal `json:"remaining_amount"`
	NextDue            *Installment    `json:"next_due,omitempty"`
	Overdue            []Installment   `json:"overdue"`
}

var hundred = decimal.NewFromInt(100)

// Analyze derives progress, paid/remaining totals, the next due installment and the overdue
// list as of the given day. The plan is only read. A nil plan yields an empty summary.
func Analyze(plan *Plan, asOf time.Time) *Summary {
	asOf = types.StartOfDay(asOf)
	if plan == nil {
		return &Summary{
			AsOf:            asOf,
			TotalAmount:     decimal.Zero,
			PaidAmount:      decimal.Zero,
			RemainingAmount: decimal.Zero,
			Overdue:         []Installment{},
		}
	}
	s := &Summary{
		SubscriberID: plan.SubscriberID,
		AsOf:         asOf,
		TotalCount:   len(plan.Installments),
		TotalAmount:  plan.TotalAmount,
		PaidAmount:   decimal.Zero,
		Overdue:      []Installment{},
	}

	for _, inst := range plan.Installments {
		if inst.Paid {
			s.PaidCount++
			s.PaidAmount = s.PaidAmount.Add(inst.CollectedAmount())
		}
	}

	s.ProgressPercentage = ProgressPercentage(s.PaidCount, s.TotalCount)

	// measured against the original total, so this may go negative after a dropped variance
	s.RemainingAmount = plan.TotalAmount.Sub(s.PaidAmount)

	unpaid := unpaidByDueDate(plan)
	if len(unpaid) > 0 {
		next := unpaid[0]
		s.NextDue = &next
	}
	for _, inst := range unpaid {
		if types.StartOfDay(inst.DueDate).Before(asOf) {
			s.Overdue = append(s.Overdue, inst)
		}
	}

	return s
}

// ProgressPercentage is the count based share of paid installments rounded half away from zero
func ProgressPercentage(paidCount, totalCount int) int64 {
	if totalCount == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(paidCount)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(totalCount))).
		Round(0).
		IntPart()
}

// DueWithin returns unpaid installments due between asOf and asOf+days inclusive, ordered by
// due date then number. Overdue installments are not included.
func DueWithin(plan *Plan, asOf time.Time, days int) []Installment {
	asOf = types.StartOfDay(asOf)
	out := []Installment{}
	for _, inst := range unpaidByDueDate(plan) {
		d := types.DaysBetween(asOf, inst.DueDate)
		if d >= 0 && d <= days {
			out = append(out, inst)
		}
	}
	return out
}

// unpaidByDueDate returns copies of the unpaid installments sorted by due date, ties by number
func unpaidByDueDate(plan *Plan) []Installment {
	if plan == nil {
		return nil
	}
	unpaid := make([]Installment, 0, len(plan.Installments))
	for _, inst := range copyInstallments(plan.Installments) {
		if !inst.Paid {
			unpaid = append(unpaid, inst)
		}
	}
	sort.SliceStable(unpaid, func(i, j int) bool {
		di, dj := types.StartOfDay(unpaid[i].DueDate), types.StartOfDay(unpaid[j].DueDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return unpaid[i].Number < unpaid[j].Number
	})
	return unpaid
}
