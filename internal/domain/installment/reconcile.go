package installment

import (
	"time"

	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Application is one collected payment to apply against a plan
type Application struct {
	Amount    decimal.Decimal
	Date      time.Time
	PaymentID string
}

// Adjustment describes what Reconcile did, for audit logging by the caller
type Adjustment struct {
	TargetNumber    int             `json:"target_number"`
	PlannedAmount   decimal.Decimal `json:"planned_amount"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
	Variance        decimal.Decimal `json:"variance"`

	// CarriedToNumber is set when the next unpaid installment absorbed the variance
	CarriedToNumber  *int            `json:"carried_to_number,omitempty"`
	NextAmountBefore decimal.Decimal `json:"next_amount_before"`
	NextAmountAfter  decimal.Decimal `json:"next_amount_after"`

	// ClampedRemainder is overpayment the next installment could not absorb (it hit zero)
	ClampedRemainder decimal.Decimal `json:"clamped_remainder"`
	// DroppedVariance is variance on the last unpaid installment, which nothing absorbs
	DroppedVariance decimal.Decimal `json:"dropped_variance"`
}

// WithinTolerance reports whether the variance was small enough to be ignored
func (a *Adjustment) WithinTolerance() bool {
	return a.Variance.Abs().LessThanOrEqual(types.VarianceTolerance)
}

// Clamped reports whether part of the variance was lost to the zero floor
func (a *Adjustment) Clamped() bool {
	return !a.ClampedRemainder.IsZero()
}

// Dropped reports whether a terminal variance was discarded
func (a *Adjustment) Dropped() bool {
	return !a.DroppedVariance.IsZero()
}

// Reconcile applies a collected payment to the first unpaid installment and carries any
// variance beyond the tolerance into the next unpaid installment only.
//
// The input plan is never modified. On error the original plan is returned unchanged
// along with the error, so callers can keep using it.
func Reconcile(plan *Plan, app Application) (*Plan, *Adjustment, error) {
	if plan == nil {
		return nil, nil, ierr.NewError("plan is nil").
			WithHint("An installment plan is required").
			Mark(ierr.ErrValidation)
	}

	if !plan.Enabled {
		return plan, nil, ierr.NewError("installment plan is disabled").
			WithHint("Installment billing is disabled for this subscriber").
			WithReportableDetails(map[string]interface{}{
				"subscriber_id": plan.SubscriberID,
			}).
			Mark(ierr.ErrPlanDisabled)
	}

	if !app.Amount.IsPositive() {
		return plan, nil, ierr.NewError("payment amount must be greater than zero").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]interface{}{
				"amount": app.Amount.String(),
			}).
			Mark(ierr.ErrInvalidAmount)
	}

	if app.PaymentID == "" || app.Date.IsZero() {
		return plan, nil, ierr.NewError("payment id and payment date are required").
			WithHint("A payment reference and date are required to settle an installment").
			Mark(ierr.ErrValidation)
	}

	// plans built by hand or read from legacy rows may be out of order;
	// the target must be the lowest numbered unpaid installment regardless
	updated := plan.Clone()
	updated.sortInstallments()
	if err := updated.Validate(); err != nil {
		return plan, nil, err
	}

	targetIdx := updated.firstUnpaidFrom(0)
	if targetIdx == -1 {
		return plan, nil, ierr.NewError("all installments are already paid").
			WithHint("This installment plan is already fully paid").
			WithReportableDetails(map[string]interface{}{
				"subscriber_id":    plan.SubscriberID,
				"num_installments": plan.NumInstallments,
			}).
			Mark(ierr.ErrPlanFullyPaid)
	}

	target := &updated.Installments[targetIdx]

	adj := &Adjustment{
		TargetNumber:     target.Number,
		PlannedAmount:    target.Amount,
		CollectedAmount:  app.Amount,
		Variance:         app.Amount.Sub(target.Amount),
		NextAmountBefore: decimal.Zero,
		NextAmountAfter:  decimal.Zero,
		ClampedRemainder: decimal.Zero,
		DroppedVariance:  decimal.Zero,
	}

	target.Paid = true
	target.PaidDate = lo.ToPtr(types.StartOfDay(app.Date))
	target.PaymentID = lo.ToPtr(app.PaymentID)
	target.PaidAmount = lo.ToPtr(app.Amount)

	if adj.WithinTolerance() {
		return updated, adj, nil
	}

	nextIdx := updated.firstUnpaidFrom(targetIdx + 1)
	if nextIdx == -1 {
		adj.DroppedVariance = adj.Variance
		return updated, adj, nil
	}

	next := &updated.Installments[nextIdx]
	adj.CarriedToNumber = lo.ToPtr(next.Number)
	adj.NextAmountBefore = next.Amount

	// overpayment reduces the next installment, underpayment increases it
	newAmount := next.Amount.Sub(adj.Variance)
	if newAmount.IsNegative() {
		adj.ClampedRemainder = newAmount.Neg()
		newAmount = decimal.Zero
	}
	next.Amount = newAmount
	adj.NextAmountAfter = newAmount

	return updated, adj, nil
}
