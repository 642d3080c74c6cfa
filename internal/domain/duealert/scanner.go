package duealert

import (
	"time"

	"github.com/flexprice/installments/internal/domain/installment"
	"github.com/flexprice/installments/internal/types"
)

// Scan produces alerts for every plan as of the given day. Overdue installments raise one high
// priority alert each. Unpaid installments due within the next few days raise a due soon alert
// whose priority depends on how close the due date is. Disabled plans are skipped.
//
// Scan is pure; running it twice with the same input yields the same alerts.
func Scan(asOf time.Time, plans []*installment.Plan) []*Alert {
	asOf = types.StartOfDay(asOf)
	alerts := make([]*Alert, 0)
	for _, plan := range plans {
		alerts = append(alerts, ScanPlan(asOf, plan)...)
	}
	return alerts
}

// ScanPlan produces the alerts for one plan
func ScanPlan(asOf time.Time, plan *installment.Plan) []*Alert {
	if plan == nil || !plan.Enabled {
		return nil
	}
	asOf = types.StartOfDay(asOf)

	summary := installment.Analyze(plan, asOf)
	alerts := make([]*Alert, 0, len(summary.Overdue))

	for _, inst := range summary.Overdue {
		alerts = append(alerts, newAlert(plan.SubscriberID, inst, asOf,
			types.DueAlertTypeOverdue, types.DueAlertPriorityHigh))
	}

	for _, inst := range installment.DueWithin(plan, asOf, types.DueSoonWindowDays) {
		priority := types.DueAlertPriorityMedium
		if types.DaysBetween(asOf, inst.DueDate) <= types.DueSoonHighPriorityDays {
			priority = types.DueAlertPriorityHigh
		}
		alerts = append(alerts, newAlert(plan.SubscriberID, inst, asOf,
			types.DueAlertTypeDueSoon, priority))
	}

	return alerts
}

func newAlert(
	subscriberID string,
	inst installment.Installment,
	asOf time.Time,
	alertType types.DueAlertType,
	priority types.DueAlertPriority,
) *Alert {
	return &Alert{
		DedupKey:          DedupKey(subscriberID, inst.Number, alertType, asOf),
		Type:              alertType,
		Priority:          priority,
		SubscriberID:      subscriberID,
		InstallmentNumber: inst.Number,
		Amount:            inst.Amount,
		DueDate:           types.NewDate(inst.DueDate),
		AsOf:              types.NewDate(asOf),
		DaysUntilDue:      types.DaysBetween(asOf, inst.DueDate),
	}
}
