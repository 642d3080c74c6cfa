package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/installments/internal/api/dto"
	"github.com/flexprice/installments/internal/cache"
	"github.com/flexprice/installments/internal/domain/installment"
	"github.com/flexprice/installments/internal/domain/payment"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	"github.com/samber/lo"
)

const (
	adjustmentKindWithinTolerance = "within_tolerance"
	adjustmentKindCarried         = "carried"
	adjustmentKindClamped         = "clamped"
	adjustmentKindDropped         = "dropped"
)

type PaymentService interface {
	// RecordPayment stores the collected payment and applies it to the subscriber's plan
	// in one transaction
	RecordPayment(ctx context.Context, subscriberID string, req dto.RecordPaymentRequest) (*dto.RecordPaymentResponse, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)
}

type paymentService struct {
	ServiceParams
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
	}
}

// ledgerResult is the outcome of one read-reconcile-write attempt
type ledgerResult struct {
	payment    *payment.Payment
	plan       *installment.Plan
	adjustment *installment.Adjustment
}

func (s *paymentService) RecordPayment(ctx context.Context, subscriberID string, req dto.RecordPaymentRequest) (*dto.RecordPaymentResponse, error) {
	if err := validateSubscriberID(subscriberID); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToPayment(ctx, subscriberID, types.Today(s.Config.DueAlerts.Timezone))
	if err := p.Validate(); err != nil {
		return nil, err
	}

	log := s.Logger.WithContext(ctx)

	var result *ledgerResult
	operation := func() error {
		r, err := s.applyPayment(ctx, p)
		if err != nil {
			if ierr.IsWriteConflict(err) {
				s.Metrics.WriteConflictsTotal.Inc()
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.Metrics.WriteRetriesTotal.Inc()
		log.Warnw("installment plan write conflict, retrying",
			"subscriber_id", subscriberID,
			"payment_id", p.ID,
			"wait", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, s.retryPolicy(ctx), notify); err != nil {
		if ierr.IsWriteConflict(err) {
			log.Errorw("giving up on payment after repeated write conflicts",
				"subscriber_id", subscriberID,
				"payment_id", p.ID,
				"max_retries", s.Config.Ledger.WriteConflictMaxRetries,
			)
		}
		return nil, err
	}

	cache.InvalidateSummaries(ctx, s.Cache, subscriberID, s.Config.Cache.SummaryTTL)
	s.Metrics.PaymentsTotal.WithLabelValues(string(result.payment.LedgerStatus)).Inc()
	s.logAdjustment(ctx, result)

	return &dto.RecordPaymentResponse{
		Payment:    &dto.PaymentResponse{Payment: result.payment},
		Adjustment: result.adjustment,
		Plan:       dto.InstallmentPlanResponseFromDomain(result.plan),
	}, nil
}

func (s *paymentService) retryPolicy(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	if s.Config.Ledger.WriteConflictInitialInterval > 0 {
		exp.InitialInterval = s.Config.Ledger.WriteConflictInitialInterval
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(
		backoff.WithMaxRetries(exp, uint64(s.Config.Ledger.WriteConflictMaxRetries)),
		ctx,
	)
}

// applyPayment runs one attempt. The plan is read under the subscriber lock and written with a
// version check; the payment record is inserted in the same transaction. A missing, disabled or
// fully paid plan still stores the payment with the matching skipped ledger status.
func (s *paymentService) applyPayment(ctx context.Context, p *payment.Payment) (*ledgerResult, error) {
	record := *p
	result := &ledgerResult{payment: &record}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockSubscriberPlan(ctx, p.SubscriberID); err != nil {
			return err
		}

		record.InstallmentNumber = nil
		record.LedgerStatus = types.LedgerStatusApplied
		result.plan = nil
		result.adjustment = nil

		plan, err := s.InstallmentPlanRepo.Get(ctx, p.SubscriberID)
		switch {
		case ierr.IsPlanNotFound(err):
			record.LedgerStatus = types.LedgerStatusSkippedNoPlan
		case err != nil:
			return err
		default:
			updated, adj, err := installment.Reconcile(plan, installment.Application{
				Amount:    p.Amount,
				Date:      p.PaymentDate,
				PaymentID: p.ID,
			})
			switch {
			case ierr.IsPlanDisabled(err):
				record.LedgerStatus = types.LedgerStatusSkippedDisabled
				result.plan = plan
			case ierr.IsPlanFullyPaid(err):
				record.LedgerStatus = types.LedgerStatusSkippedFullyPaid
				result.plan = plan
			case err != nil:
				return err
			default:
				if err := s.InstallmentPlanRepo.Update(ctx, updated); err != nil {
					return err
				}
				record.InstallmentNumber = lo.ToPtr(adj.TargetNumber)
				result.plan = updated
				result.adjustment = adj
			}
		}

		return s.PaymentRepo.Create(ctx, &record)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// logAdjustment records the ledger outcome for audit. Lost variance is a warning.
func (s *paymentService) logAdjustment(ctx context.Context, r *ledgerResult) {
	log := s.Logger.WithContext(ctx)
	p := r.payment

	if r.adjustment == nil {
		log.Infow("payment recorded without applying to installment plan",
			"subscriber_id", p.SubscriberID,
			"payment_id", p.ID,
			"amount", p.Amount.String(),
			"ledger_status", p.LedgerStatus,
		)
		return
	}

	adj := r.adjustment
	fields := []interface{}{
		"subscriber_id", p.SubscriberID,
		"payment_id", p.ID,
		"installment_number", adj.TargetNumber,
		"planned_amount", adj.PlannedAmount.String(),
		"collected_amount", adj.CollectedAmount.String(),
		"variance", adj.Variance.String(),
	}

	switch {
	case adj.WithinTolerance():
		s.Metrics.AdjustmentsTotal.WithLabelValues(adjustmentKindWithinTolerance).Inc()
		log.Infow("payment applied to installment", fields...)
	case adj.Dropped():
		s.Metrics.AdjustmentsTotal.WithLabelValues(adjustmentKindDropped).Inc()
		log.Warnw("variance on last installment dropped",
			append(fields, "dropped_variance", adj.DroppedVariance.String())...)
	case adj.Clamped():
		s.Metrics.AdjustmentsTotal.WithLabelValues(adjustmentKindClamped).Inc()
		log.Warnw("overpayment exceeded next installment, remainder dropped",
			append(fields,
				"carried_to_number", lo.FromPtr(adj.CarriedToNumber),
				"next_amount_before", adj.NextAmountBefore.String(),
				"clamped_remainder", adj.ClampedRemainder.String(),
			)...)
	default:
		s.Metrics.AdjustmentsTotal.WithLabelValues(adjustmentKindCarried).Inc()
		log.Infow("payment variance carried to next installment",
			append(fields,
				"carried_to_number", lo.FromPtr(adj.CarriedToNumber),
				"next_amount_before", adj.NextAmountBefore.String(),
				"next_amount_after", adj.NextAmountAfter.String(),
			)...)
	}
}

func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := validateSubscriberID(filter.SubscriberID); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.ListBySubscriber(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListPaymentsResponse{
		Items: lo.Map(payments, func(p *payment.Payment, _ int) *dto.PaymentResponse {
			return &dto.PaymentResponse{Payment: p}
		}),
		Total: len(payments),
	}, nil
}
