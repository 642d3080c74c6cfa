package installment

import (
	"context"

	"github.com/flexprice/installments/internal/types"
)

// Repository persists one plan document per subscriber
type Repository interface {
	// Get returns the plan for the subscriber or an error marked ErrPlanNotFound and ErrNotFound
	Get(ctx context.Context, subscriberID string) (*Plan, error)

	// Save creates or replaces the whole plan. The stored version is bumped and written
	// back to plan.Version.
	Save(ctx context.Context, plan *Plan) error

	// Update writes the plan only if the stored version still equals plan.Version.
	// On success plan.Version is incremented; otherwise an error marked ErrWriteConflict
	// is returned and nothing is written.
	Update(ctx context.Context, plan *Plan) error

	// List pages through plans ordered by subscriber id
	List(ctx context.Context, filter *types.InstallmentPlanFilter) ([]*Plan, error)
}
