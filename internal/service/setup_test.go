package service

import (
	"context"
	"time"

	"github.com/flexprice/installments/internal/api/dto"
	"github.com/flexprice/installments/internal/cache"
	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/domain/installment"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/metrics"
	"github.com/flexprice/installments/internal/pubsub/memory"
	"github.com/flexprice/installments/internal/sentry"
	"github.com/flexprice/installments/internal/testutil"
	"github.com/flexprice/installments/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// ServiceTestSuite wires services onto in-memory stores
type ServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	params ServiceParams

	db       *testutil.InMemoryDB
	plans    *testutil.InMemoryInstallmentPlanStore
	payments *testutil.InMemoryPaymentStore
}

func (s *ServiceTestSuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	cfg.Ledger.WriteConflictInitialInterval = time.Millisecond
	cfg.Ledger.WriteConflictMaxRetries = 3
	cfg.Cache.Enabled = true
	cfg.Cache.Type = string(cache.CacheTypeInMemory)
	cfg.DueAlerts.PageSize = 2
	cfg.DueAlerts.MaxWorkers = 4
	cfg.Sentry.Enabled = false

	log := logger.GetLogger()

	s.ctx = context.Background()
	s.db = testutil.NewInMemoryDB()
	s.plans = testutil.NewInMemoryInstallmentPlanStore()
	s.payments = testutil.NewInMemoryPaymentStore()
	s.params = NewServiceParams(
		log,
		cfg,
		s.db,
		sentry.NewSentryService(cfg, log),
		metrics.NewMetrics(),
		cache.NewCache(cfg, log, nil),
		s.plans,
		s.payments,
		memory.NewPubSub(log),
	)
}

func (s *ServiceTestSuite) TearDownTest() {
	s.Require().NoError(s.params.AlertPublisher.Close())
}

// replaceRequest builds a monthly schedule request
func replaceRequest(total string, n int, firstDue string) dto.ReplaceInstallmentPlanRequest {
	return dto.ReplaceInstallmentPlanRequest{
		TotalAmount:     dec(total),
		NumInstallments: n,
		Schedule: &dto.InstallmentScheduleRequest{
			FirstDueDate: types.NewDate(day(firstDue)),
			Precision:    2,
		},
	}
}

func paymentRequest(amount, date string) dto.RecordPaymentRequest {
	return dto.RecordPaymentRequest{
		Amount:      dec(amount),
		PaymentDate: lo.ToPtr(types.NewDate(day(date))),
		Mode:        types.PaymentModeCash,
	}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func day(v string) time.Time {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		panic(err)
	}
	return t
}

// storePlan saves an enabled plan with monthly installments due from firstDue
func (s *ServiceTestSuite) storePlan(subscriberID string, enabled bool, firstDue string, total string, amounts ...string) *installment.Plan {
	installments := make([]installment.Installment, len(amounts))
	for i, a := range amounts {
		installments[i] = installment.Installment{
			Number:  i + 1,
			Amount:  dec(a),
			DueDate: day(firstDue).AddDate(0, i, 0),
		}
	}
	plan, err := installment.NewPlan(subscriberID, enabled, dec(total), len(amounts), nil, installments)
	s.Require().NoError(err)
	s.Require().NoError(s.plans.Save(s.ctx, plan))
	return plan
}
