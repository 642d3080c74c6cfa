package service

import (
	"context"
	"time"

	"github.com/flexprice/installments/internal/api/dto"
	"github.com/flexprice/installments/internal/cache"
	"github.com/flexprice/installments/internal/domain/installment"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
)

const cacheKeyTypeSummary = "installment_summary"

type InstallmentPlanService interface {
	GetPlan(ctx context.Context, subscriberID string) (*dto.InstallmentPlanResponse, error)
	ReplacePlan(ctx context.Context, subscriberID string, req dto.ReplaceInstallmentPlanRequest) (*dto.InstallmentPlanResponse, error)
	GetSummary(ctx context.Context, subscriberID string, asOf time.Time) (*dto.InstallmentSummaryResponse, error)
}

type installmentPlanService struct {
	ServiceParams
}

func NewInstallmentPlanService(params ServiceParams) InstallmentPlanService {
	return &installmentPlanService{
		ServiceParams: params,
	}
}

func (s *installmentPlanService) GetPlan(ctx context.Context, subscriberID string) (*dto.InstallmentPlanResponse, error) {
	if err := validateSubscriberID(subscriberID); err != nil {
		return nil, err
	}

	plan, err := s.InstallmentPlanRepo.Get(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	return dto.InstallmentPlanResponseFromDomain(plan), nil
}

// ReplacePlan swaps the subscriber's whole plan under the ledger lock so it cannot interleave
// with a payment being applied
func (s *installmentPlanService) ReplacePlan(ctx context.Context, subscriberID string, req dto.ReplaceInstallmentPlanRequest) (*dto.InstallmentPlanResponse, error) {
	if err := validateSubscriberID(subscriberID); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	plan, err := req.ToPlan(subscriberID)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockSubscriberPlan(ctx, subscriberID); err != nil {
			return err
		}
		return s.InstallmentPlanRepo.Save(ctx, plan)
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateSummaries(ctx, s.Cache, subscriberID, s.Config.Cache.SummaryTTL)

	s.Logger.WithContext(ctx).Infow("installment plan replaced",
		"subscriber_id", subscriberID,
		"enabled", plan.Enabled,
		"num_installments", plan.NumInstallments,
		"total_amount", plan.TotalAmount.String(),
		"version", plan.Version,
	)

	return dto.InstallmentPlanResponseFromDomain(plan), nil
}

// GetSummary returns the plan analytics as of the given day, served from cache when possible
func (s *installmentPlanService) GetSummary(ctx context.Context, subscriberID string, asOf time.Time) (*dto.InstallmentSummaryResponse, error) {
	if err := validateSubscriberID(subscriberID); err != nil {
		return nil, err
	}

	asOf = types.StartOfDay(asOf)
	// generation is read before the plan so a concurrent write retires what we cache below
	generation := cache.SummaryGeneration(ctx, s.Cache, subscriberID)
	key := cache.SummaryKey(subscriberID, generation, asOf.Format(types.DateFormat))

	if value, found := s.Cache.Get(ctx, key); found {
		if summary, ok := cache.UnmarshalCacheValue[dto.InstallmentSummaryResponse](value); ok {
			s.Metrics.CacheHitsTotal.WithLabelValues(cacheKeyTypeSummary).Inc()
			return summary, nil
		}
	}
	s.Metrics.CacheMissesTotal.WithLabelValues(cacheKeyTypeSummary).Inc()

	plan, err := s.InstallmentPlanRepo.Get(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	summary := dto.InstallmentSummaryResponseFromDomain(plan, installment.Analyze(plan, asOf))
	s.Cache.Set(ctx, key, summary, s.Config.Cache.SummaryTTL)
	return summary, nil
}

func validateSubscriberID(subscriberID string) error {
	if subscriberID == "" {
		return ierr.NewError("subscriber_id is required").
			WithHint("Please provide a valid subscriber ID").
			Mark(ierr.ErrValidation)
	}
	return nil
}
