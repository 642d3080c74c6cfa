package payment

import (
	"context"

	"github.com/flexprice/installments/internal/types"
)

// Repository defines the interface for payment record persistence
type Repository interface {
	// Create inserts a payment record. It joins the transaction on ctx when there is one.
	Create(ctx context.Context, payment *Payment) error

	// Get fetches a payment record by its ID
	Get(ctx context.Context, id string) (*Payment, error)

	// ListBySubscriber returns the subscriber's payments, newest payment date first
	ListBySubscriber(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
}
