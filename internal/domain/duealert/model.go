package duealert

import (
	"fmt"
	"time"

	"github.com/flexprice/installments/internal/types"
	"github.com/shopspring/decimal"
)

// Alert is a due or overdue notice for one installment, handed to the notification pipeline
type Alert struct {
	// DedupKey identifies the alert for downstream idempotent storage
	DedupKey          string                 `json:"dedup_key"`
	Type              types.DueAlertType     `json:"type"`
	Priority          types.DueAlertPriority `json:"priority"`
	SubscriberID      string                 `json:"subscriber_id"`
	InstallmentNumber int                    `json:"installment_number"`
	Amount            decimal.Decimal        `json:"amount"`
	DueDate           types.Date             `json:"due_date"`
	AsOf              types.Date             `json:"as_of"`
	// DaysUntilDue is negative for overdue installments
	DaysUntilDue int `json:"days_until_due"`
}

// DedupKey builds the stable key subscriber:number:type:asOf
func DedupKey(subscriberID string, number int, alertType types.DueAlertType, asOf time.Time) string {
	return fmt.Sprintf("%s:%d:%s:%s", subscriberID, number, alertType, asOf.Format(types.DateFormat))
}
