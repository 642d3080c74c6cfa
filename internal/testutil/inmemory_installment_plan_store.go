package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/flexprice/installments/internal/domain/installment"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
)

// InMemoryInstallmentPlanStore implements installment.Repository with the same version
// check-and-set semantics as the database repository
type InMemoryInstallmentPlanStore struct {
	*InMemoryStore[*installment.Plan]

	// conflictsToInject makes the next N Update calls fail with a write conflict
	conflictsToInject atomic.Int32
	updateCalls       atomic.Int32
}

func NewInMemoryInstallmentPlanStore() *InMemoryInstallmentPlanStore {
	return &InMemoryInstallmentPlanStore{
		InMemoryStore: NewInMemoryStore[*installment.Plan](),
	}
}

// InjectWriteConflicts makes the next n Update calls fail as if another writer won the race
func (s *InMemoryInstallmentPlanStore) InjectWriteConflicts(n int) {
	s.conflictsToInject.Store(int32(n))
}

// UpdateCalls returns how many times Update was called
func (s *InMemoryInstallmentPlanStore) UpdateCalls() int {
	return int(s.updateCalls.Load())
}

func (s *InMemoryInstallmentPlanStore) Get(ctx context.Context, subscriberID string) (*installment.Plan, error) {
	plan, err := s.InMemoryStore.Get(ctx, subscriberID)
	if err != nil {
		return nil, ierr.WithError(ierr.WithError(err).Mark(ierr.ErrNotFound)).
			WithHintf("No installment plan found for subscriber %s", subscriberID).
			WithReportableDetails(map[string]interface{}{
				"subscriber_id": subscriberID,
			}).
			Mark(ierr.ErrPlanNotFound)
	}
	return plan.Clone(), nil
}

func (s *InMemoryInstallmentPlanStore) Save(ctx context.Context, plan *installment.Plan) error {
	if plan == nil {
		return ierr.NewError("installment plan cannot be nil").
			WithHint("Installment plan cannot be nil").
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	stored := s.InMemoryStore.Upsert(ctx, plan.SubscriberID, func(current *installment.Plan, exists bool) *installment.Plan {
		next := plan.Clone()
		next.Version = 1
		next.CreatedAt = now
		if exists {
			next.Version = current.Version + 1
			next.CreatedAt = current.CreatedAt
		}
		next.UpdatedAt = now
		return next
	})

	plan.Version = stored.Version
	plan.CreatedAt = stored.CreatedAt
	plan.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *InMemoryInstallmentPlanStore) Update(ctx context.Context, plan *installment.Plan) error {
	s.updateCalls.Add(1)
	if plan == nil {
		return ierr.NewError("installment plan cannot be nil").
			WithHint("Installment plan cannot be nil").
			Mark(ierr.ErrValidation)
	}

	conflict := ierr.NewError("installment plan version changed").
		WithHint("The installment plan was modified concurrently, please retry").
		WithReportableDetails(map[string]interface{}{
			"subscriber_id":    plan.SubscriberID,
			"expected_version": plan.Version,
		}).
		Mark(ierr.ErrWriteConflict)

	if s.conflictsToInject.Load() > 0 {
		s.conflictsToInject.Add(-1)
		return conflict
	}

	next := plan.Clone()
	next.Version = plan.Version + 1
	next.UpdatedAt = time.Now().UTC()

	ok, err := s.InMemoryStore.CompareAndSwap(ctx, plan.SubscriberID, func(current *installment.Plan) bool {
		return current.Version == plan.Version
	}, next)
	if err != nil {
		return err
	}
	if !ok {
		return conflict
	}

	plan.Version = next.Version
	plan.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *InMemoryInstallmentPlanStore) List(ctx context.Context, filter *types.InstallmentPlanFilter) ([]*installment.Plan, error) {
	if filter == nil {
		filter = types.NewInstallmentPlanFilter()
	}

	page := &types.QueryFilter{Limit: filter.Limit, Offset: filter.Offset}
	if filter.AfterSubscriberID != "" {
		page.Offset = nil
	}

	plans, err := s.InMemoryStore.List(ctx, page, func(_ context.Context, p *installment.Plan, _ interface{}) bool {
		if filter.EnabledOnly && !p.Enabled {
			return false
		}
		return filter.AfterSubscriberID == "" || p.SubscriberID > filter.AfterSubscriberID
	}, func(i, j *installment.Plan) bool {
		return i.SubscriberID < j.SubscriberID
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list installment plans").
			Mark(ierr.ErrDatabase)
	}

	out := make([]*installment.Plan, len(plans))
	for i, p := range plans {
		out[i] = p.Clone()
	}
	return out, nil
}
