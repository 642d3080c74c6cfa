package service

import (
	"context"

	"github.com/flexprice/installments/internal/cache"
	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/domain/installment"
	"github.com/flexprice/installments/internal/domain/payment"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/metrics"
	"github.com/flexprice/installments/internal/postgres"
	"github.com/flexprice/installments/internal/pubsub"
	"github.com/flexprice/installments/internal/sentry"
	"github.com/flexprice/installments/internal/types"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	DB      postgres.IClient
	Sentry  *sentry.Service
	Metrics *metrics.Metrics
	Cache   cache.Cache

	// Repositories
	InstallmentPlanRepo installment.Repository
	PaymentRepo         payment.Repository

	// Publishers
	AlertPublisher pubsub.PubSub
}

// NewServiceParams creates a new ServiceParams
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	metrics *metrics.Metrics,
	cache cache.Cache,
	installmentPlanRepo installment.Repository,
	paymentRepo payment.Repository,
	alertPublisher pubsub.PubSub,
) ServiceParams {
	return ServiceParams{
		Logger:              logger,
		Config:              config,
		DB:                  db,
		Sentry:              sentry,
		Metrics:             metrics,
		Cache:               cache,
		InstallmentPlanRepo: installmentPlanRepo,
		PaymentRepo:         paymentRepo,
		AlertPublisher:      alertPublisher,
	}
}

// lockSubscriberPlan takes the subscriber's ledger lock. Must be called inside WithTx.
func (p ServiceParams) lockSubscriberPlan(ctx context.Context, subscriberID string) error {
	timeout := p.Config.Ledger.LockTimeout
	return p.DB.LockKey(ctx, types.LockRequest{
		Key: types.GenerateLockKey(types.LockScopeSubscriberPlan, map[string]interface{}{
			"subscriber_id": subscriberID,
		}),
		Timeout: &timeout,
	})
}
