package service

import (
	"context"
	"testing"

	"github.com/flexprice/installments/internal/api/dto"
	"github.com/flexprice/installments/internal/domain/installment"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type InstallmentPlanServiceSuite struct {
	ServiceTestSuite
	service InstallmentPlanService
}

func TestInstallmentPlanService(t *testing.T) {
	suite.Run(t, new(InstallmentPlanServiceSuite))
}

func (s *InstallmentPlanServiceSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.service = NewInstallmentPlanService(s.params)
}

func (s *InstallmentPlanServiceSuite) TestReplacePlan_FromSchedule() {
	resp, err := s.service.ReplacePlan(s.ctx, "sub_1", dto.ReplaceInstallmentPlanRequest{
		TotalAmount:     dec("1000"),
		NumInstallments: 3,
		DownPayment:     lo.ToPtr(dec("400")),
		Schedule: &dto.InstallmentScheduleRequest{
			FirstDueDate:   types.NewDate(day("2024-01-31")),
			IntervalMonths: 1,
			Precision:      2,
		},
	})
	s.Require().NoError(err)

	s.Equal("sub_1", resp.SubscriberID)
	s.Equal(int64(1), resp.Version)
	s.True(resp.Enabled)
	s.Require().Len(resp.Installments, 3)
	s.True(resp.Installments[0].Amount.Equal(dec("400")))
	s.True(resp.Installments[1].Amount.Equal(dec("300")))
	s.True(resp.Installments[2].Amount.Equal(dec("300")))
	s.True(resp.ScheduledTotal.Equal(dec("1000")))
	s.Equal(1, s.db.LockCount())
}

func (s *InstallmentPlanServiceSuite) TestReplacePlan_ExplicitListReplacesExisting() {
	s.storePlan("sub_1", true, "2024-01-10", "200", "100", "100")

	resp, err := s.service.ReplacePlan(s.ctx, "sub_1", dto.ReplaceInstallmentPlanRequest{
		Enabled:         lo.ToPtr(false),
		TotalAmount:     dec("150"),
		NumInstallments: 2,
		Installments: []installment.InstallmentDocument{
			{Number: 2, Amount: dec("75"), DueDate: types.NewDate(day("2024-03-01"))},
			{Number: 1, Amount: dec("75"), DueDate: types.NewDate(day("2024-02-01"))},
		},
	})
	s.Require().NoError(err)
	s.Equal(int64(2), resp.Version)
	s.False(resp.Enabled)
	s.Equal(1, resp.Installments[0].Number)

	stored, err := s.plans.Get(s.ctx, "sub_1")
	s.Require().NoError(err)
	s.True(stored.TotalAmount.Equal(dec("150")))
}

func (s *InstallmentPlanServiceSuite) TestReplacePlan_RejectsInvalidRequests() {
	tests := []struct {
		name string
		req  dto.ReplaceInstallmentPlanRequest
	}{
		{
			name: "neither list nor schedule",
			req:  dto.ReplaceInstallmentPlanRequest{TotalAmount: dec("100"), NumInstallments: 1},
		},
		{
			name: "both list and schedule",
			req: dto.ReplaceInstallmentPlanRequest{
				TotalAmount:     dec("100"),
				NumInstallments: 1,
				Installments:    []installment.InstallmentDocument{{Number: 1, Amount: dec("100"), DueDate: types.NewDate(day("2024-01-01"))}},
				Schedule:        &dto.InstallmentScheduleRequest{FirstDueDate: types.NewDate(day("2024-01-01"))},
			},
		},
		{
			name: "count mismatch",
			req: dto.ReplaceInstallmentPlanRequest{
				TotalAmount:     dec("100"),
				NumInstallments: 2,
				Installments:    []installment.InstallmentDocument{{Number: 1, Amount: dec("100"), DueDate: types.NewDate(day("2024-01-01"))}},
			},
		},
		{
			name: "negative total",
			req: dto.ReplaceInstallmentPlanRequest{
				TotalAmount:     dec("-1"),
				NumInstallments: 1,
				Schedule:        &dto.InstallmentScheduleRequest{FirstDueDate: types.NewDate(day("2024-01-01"))},
			},
		},
		{
			name: "decreasing due dates",
			req: dto.ReplaceInstallmentPlanRequest{
				TotalAmount:     dec("200"),
				NumInstallments: 2,
				Installments: []installment.InstallmentDocument{
					{Number: 1, Amount: dec("100"), DueDate: types.NewDate(day("2024-02-01"))},
					{Number: 2, Amount: dec("100"), DueDate: types.NewDate(day("2024-01-01"))},
				},
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.ReplacePlan(s.ctx, "sub_1", tt.req)
			s.Require().Error(err)
			s.True(ierr.IsValidation(err))
		})
	}

	_, err := s.plans.Get(s.ctx, "sub_1")
	s.True(ierr.IsPlanNotFound(err))
}

func (s *InstallmentPlanServiceSuite) TestGetPlan_NotFound() {
	_, err := s.service.GetPlan(s.ctx, "missing")
	s.Require().Error(err)
	s.True(ierr.IsPlanNotFound(err))
}

func (s *InstallmentPlanServiceSuite) TestGetSummary_CachesPerDay() {
	s.storePlan("sub_1", true, "2024-01-10", "300", "100", "100", "100")

	summary, err := s.service.GetSummary(s.ctx, "sub_1", day("2024-02-15"))
	s.Require().NoError(err)
	s.Equal("2024-02-15", summary.AsOf.String())
	s.Equal(3, summary.TotalCount)
	s.Equal(int64(0), summary.ProgressPercentage)
	s.True(summary.RemainingAmount.Equal(dec("300")))
	s.Require().NotNil(summary.NextDue)
	s.Equal(1, summary.NextDue.Number)
	s.Len(summary.Overdue, 2)

	_, err = s.service.GetSummary(s.ctx, "sub_1", day("2024-02-15"))
	s.Require().NoError(err)
	s.Equal(float64(1), promtestutil.ToFloat64(s.params.Metrics.CacheHitsTotal.WithLabelValues(cacheKeyTypeSummary)))
	s.Equal(float64(1), promtestutil.ToFloat64(s.params.Metrics.CacheMissesTotal.WithLabelValues(cacheKeyTypeSummary)))

	// a different day is a different key
	_, err = s.service.GetSummary(s.ctx, "sub_1", day("2024-02-16"))
	s.Require().NoError(err)
	s.Equal(float64(2), promtestutil.ToFloat64(s.params.Metrics.CacheMissesTotal.WithLabelValues(cacheKeyTypeSummary)))
}

func (s *InstallmentPlanServiceSuite) TestReplacePlan_InvalidatesCachedSummary() {
	s.storePlan("sub_1", true, "2024-01-10", "300", "100", "100", "100")

	before, err := s.service.GetSummary(s.ctx, "sub_1", day("2024-01-01"))
	s.Require().NoError(err)
	s.Equal(3, before.TotalCount)

	_, err = s.service.ReplacePlan(s.ctx, "sub_1", dto.ReplaceInstallmentPlanRequest{
		TotalAmount:     dec("100"),
		NumInstallments: 1,
		Schedule:        &dto.InstallmentScheduleRequest{FirstDueDate: types.NewDate(day("2024-01-10"))},
	})
	s.Require().NoError(err)

	after, err := s.service.GetSummary(s.ctx, "sub_1", day("2024-01-01"))
	s.Require().NoError(err)
	s.Equal(1, after.TotalCount)
}

// interleavingPlanRepo runs afterFirstGet once, after the first Get has read the plan
type interleavingPlanRepo struct {
	installment.Repository
	afterFirstGet func()
	done          bool
}

func (r *interleavingPlanRepo) Get(ctx context.Context, subscriberID string) (*installment.Plan, error) {
	plan, err := r.Repository.Get(ctx, subscriberID)
	if !r.done && r.afterFirstGet != nil {
		r.done = true
		r.afterFirstGet()
	}
	return plan, err
}

func (s *InstallmentPlanServiceSuite) TestGetSummary_PaymentDuringReadDoesNotLeaveStaleCache() {
	s.storePlan("sub_1", true, "2024-01-10", "300", "100", "100", "100")

	payments := NewPaymentService(s.params)
	params := s.params
	params.InstallmentPlanRepo = &interleavingPlanRepo{
		Repository: s.plans,
		afterFirstGet: func() {
			_, err := payments.RecordPayment(s.ctx, "sub_1", paymentRequest("100", "2024-01-10"))
			s.Require().NoError(err)
		},
	}
	service := NewInstallmentPlanService(params)

	// built from the plan read before the payment committed
	stale, err := service.GetSummary(s.ctx, "sub_1", day("2024-01-15"))
	s.Require().NoError(err)
	s.Equal(0, stale.PaidCount)

	fresh, err := service.GetSummary(s.ctx, "sub_1", day("2024-01-15"))
	s.Require().NoError(err)
	s.Equal(1, fresh.PaidCount)
	s.True(fresh.PaidAmount.Equal(dec("100")))
}
