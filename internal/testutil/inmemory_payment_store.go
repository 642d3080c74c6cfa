package testutil

import (
	"context"

	"github.com/flexprice/installments/internal/domain/payment"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	"github.com/samber/lo"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	if p == nil {
		return nil
	}
	c := *p
	if p.InstallmentNumber != nil {
		c.InstallmentNumber = lo.ToPtr(*p.InstallmentNumber)
	}
	return &c
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, p.ID, copyPayment(p)); err != nil {
		return ierr.WithError(err).
			WithHint("A payment with this id already exists").
			WithReportableDetails(map[string]interface{}{
				"payment_id": p.ID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Payment %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(p), nil
}

func (s *InMemoryPaymentStore) ListBySubscriber(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}

	payments, err := s.InMemoryStore.List(ctx, filter.QueryFilter, func(_ context.Context, p *payment.Payment, _ interface{}) bool {
		return p.SubscriberID == filter.SubscriberID
	}, func(i, j *payment.Payment) bool {
		if !i.PaymentDate.Equal(j.PaymentDate) {
			return i.PaymentDate.After(j.PaymentDate)
		}
		return i.CreatedAt.After(j.CreatedAt)
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	return lo.Map(payments, func(p *payment.Payment, _ int) *payment.Payment { return copyPayment(p) }), nil
}
