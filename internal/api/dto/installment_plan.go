package dto

import (
	"time"

	"github.com/flexprice/installments/internal/domain/installment"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	"github.com/flexprice/installments/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ReplaceInstallmentPlanRequest creates or replaces a subscriber's plan. Either an explicit
// installment list or a schedule to generate one must be given.
type ReplaceInstallmentPlanRequest struct {
	Enabled         *bool                             `json:"enabled,omitempty"`
	TotalAmount     decimal.Decimal                   `json:"total_amount" validate:"decimal_non_negative"`
	NumInstallments int                               `json:"num_installments" validate:"min=1,max=120"`
	DownPayment     *decimal.Decimal                  `json:"down_payment,omitempty" validate:"omitempty,decimal_non_negative"`
	Installments    []installment.InstallmentDocument `json:"installments,omitempty"`
	Schedule        *InstallmentScheduleRequest       `json:"schedule,omitempty"`
}

// InstallmentScheduleRequest generates an evenly split schedule
type InstallmentScheduleRequest struct {
	FirstDueDate   types.Date `json:"first_due_date"`
	IntervalMonths int        `json:"interval_months" validate:"omitempty,min=1,max=12"`
	Precision      int32      `json:"precision" validate:"min=0,max=8"`
}

func (r *ReplaceInstallmentPlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if len(r.Installments) > 0 && r.Schedule != nil {
		return ierr.NewError("installments and schedule are mutually exclusive").
			WithHint("Provide either an installment list or a schedule, not both").
			Mark(ierr.ErrValidation)
	}

	if len(r.Installments) == 0 && r.Schedule == nil {
		return ierr.NewError("installments or schedule is required").
			WithHint("Provide an installment list or a schedule to generate one").
			Mark(ierr.ErrValidation)
	}

	if r.Schedule != nil && r.Schedule.FirstDueDate.IsZero() {
		return ierr.NewError("schedule.first_due_date is required").
			WithHint("Please provide the due date of the first installment").
			Mark(ierr.ErrValidation)
	}

	return nil
}

// ToPlan builds the validated plan for the subscriber
func (r *ReplaceInstallmentPlanRequest) ToPlan(subscriberID string) (*installment.Plan, error) {
	enabled := lo.FromPtrOr(r.Enabled, true)

	if r.Schedule != nil {
		installments, err := installment.BuildSchedule(installment.ScheduleInput{
			TotalAmount:     r.TotalAmount,
			NumInstallments: r.NumInstallments,
			FirstDueDate:    r.Schedule.FirstDueDate.Time,
			IntervalMonths:  r.Schedule.IntervalMonths,
			DownPayment:     r.DownPayment,
			Precision:       r.Schedule.Precision,
		})
		if err != nil {
			return nil, err
		}
		return installment.NewPlan(subscriberID, enabled, r.TotalAmount, r.NumInstallments, r.DownPayment, installments)
	}

	doc := &installment.Document{
		Enabled:         enabled,
		TotalAmount:     r.TotalAmount,
		NumInstallments: lo.ToPtr(r.NumInstallments),
		DownPayment:     r.DownPayment,
		Installments:    r.Installments,
	}
	return doc.ToPlan(subscriberID)
}

type InstallmentPlanResponse struct {
	SubscriberID string `json:"subscriber_id"`
	*installment.Document
	// ScheduledTotal is the live sum of planned amounts, which drifts from total_amount
	// after carry forward adjustments
	ScheduledTotal decimal.Decimal `json:"scheduled_total"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func InstallmentPlanResponseFromDomain(p *installment.Plan) *InstallmentPlanResponse {
	if p == nil {
		return nil
	}
	return &InstallmentPlanResponse{
		SubscriberID:   p.SubscriberID,
		Document:       p.ToDocument(),
		ScheduledTotal: p.ScheduledTotal(),
		Version:        p.Version,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// InstallmentSummaryResponse is the subscriber facing progress view of a plan
type InstallmentSummaryResponse struct {
	SubscriberID       string                            `json:"subscriber_id"`
	AsOf               types.Date                        `json:"as_of"`
	Enabled            bool                              `json:"enabled"`
	TotalCount         int                               `json:"total_count"`
	PaidCount          int                               `json:"paid_count"`
	ProgressPercentage int64                             `json:"progress_percentage"`
	TotalAmount        decimal.Decimal                   `json:"total_amount"`
	PaidAmount         decimal.Decimal                   `json:"paid_amount"`
	RemainingAmount    decimal.Decimal                   `json:"remaining_amount"`
	NextDue            *installment.InstallmentDocument  `json:"next_due,omitempty"`
	Overdue            []installment.InstallmentDocument `json:"overdue"`
}

func InstallmentSummaryResponseFromDomain(p *installment.Plan, s *installment.Summary) *InstallmentSummaryResponse {
	resp := &InstallmentSummaryResponse{
		SubscriberID:       s.SubscriberID,
		AsOf:               types.NewDate(s.AsOf),
		Enabled:            p.Enabled,
		TotalCount:         s.TotalCount,
		PaidCount:          s.PaidCount,
		ProgressPercentage: s.ProgressPercentage,
		TotalAmount:        s.TotalAmount,
		PaidAmount:         s.PaidAmount,
		RemainingAmount:    s.RemainingAmount,
		Overdue: lo.Map(s.Overdue, func(i installment.Installment, _ int) installment.InstallmentDocument {
			return i.ToDocument()
		}),
	}
	if s.NextDue != nil {
		resp.NextDue = lo.ToPtr(s.NextDue.ToDocument())
	}
	return resp
}
