package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/flexprice/installments/internal/domain/installment"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/logger"
	db "github.com/flexprice/installments/internal/postgres"
	"github.com/flexprice/installments/internal/sentry"
	"github.com/flexprice/installments/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type installmentPlanRepository struct {
	client db.IClient
	logger *logger.Logger
}

// NewInstallmentPlanRepository creates a new installment plan repository
func NewInstallmentPlanRepository(client db.IClient, logger *logger.Logger) installment.Repository {
	return &installmentPlanRepository{
		client: client,
		logger: logger,
	}
}

func (r *installmentPlanRepository) Get(ctx context.Context, subscriberID string) (*installment.Plan, error) {
	span := sentry.StartSpan(ctx, sentry.OpRepository, "installment_plan", "get", map[string]interface{}{
		"subscriber_id": subscriberID,
	})
	defer sentry.FinishSpan(span)

	var row InstallmentPlanRow
	err := r.client.Querier(ctx).
		Where("subscriber_id = ?", subscriberID).
		Take(&row).Error
	if err != nil {
		sentry.SetSpanError(span, err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(ierr.WithError(err).Mark(ierr.ErrNotFound)).
				WithHintf("No installment plan found for subscriber %s", subscriberID).
				WithReportableDetails(map[string]interface{}{
					"subscriber_id": subscriberID,
				}).
				Mark(ierr.ErrPlanNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get installment plan").
			WithReportableDetails(map[string]interface{}{
				"subscriber_id": subscriberID,
			}).
			Mark(ierr.ErrDatabase)
	}

	plan, err := fromRow(&row)
	if err != nil {
		sentry.SetSpanError(span, err)
		return nil, err
	}

	sentry.SetSpanSuccess(span)
	return plan, nil
}

func (r *installmentPlanRepository) Save(ctx context.Context, plan *installment.Plan) error {
	r.logger.Debugw("saving installment plan", "subscriber_id", plan.SubscriberID)

	span := sentry.StartSpan(ctx, sentry.OpRepository, "installment_plan", "save", map[string]interface{}{
		"subscriber_id": plan.SubscriberID,
	})
	defer sentry.FinishSpan(span)

	doc, err := installment.MarshalDocument(plan)
	if err != nil {
		sentry.SetSpanError(span, err)
		return err
	}

	err = r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)
		now := time.Now().UTC()

		var existing InstallmentPlanRow
		err := q.Where("subscriber_id = ?", plan.SubscriberID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := &InstallmentPlanRow{
				SubscriberID: plan.SubscriberID,
				Enabled:      plan.Enabled,
				Document:     datatypes.JSON(doc),
				Version:      1,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := q.Create(row).Error; err != nil {
				return err
			}
			plan.Version = row.Version
			plan.CreatedAt = row.CreatedAt
			plan.UpdatedAt = row.UpdatedAt
			return nil
		case err != nil:
			return err
		}

		res := q.Model(&InstallmentPlanRow{}).
			Where("subscriber_id = ? AND version = ?", plan.SubscriberID, existing.Version).
			Updates(map[string]interface{}{
				"enabled":    plan.Enabled,
				"document":   datatypes.JSON(doc),
				"version":    existing.Version + 1,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errWriteConflict(plan.SubscriberID, existing.Version)
		}
		plan.Version = existing.Version + 1
		plan.CreatedAt = existing.CreatedAt
		plan.UpdatedAt = now
		return nil
	})
	if err != nil {
		sentry.SetSpanError(span, err)
		if ierr.IsWriteConflict(err) {
			return err
		}
		if isDuplicateKey(err) {
			return errWriteConflict(plan.SubscriberID, 0)
		}
		return ierr.WithError(err).
			WithHint("Failed to save installment plan").
			WithReportableDetails(map[string]interface{}{
				"subscriber_id": plan.SubscriberID,
			}).
			Mark(ierr.ErrDatabase)
	}

	sentry.SetSpanSuccess(span)
	return nil
}

func (r *installmentPlanRepository) Update(ctx context.Context, plan *installment.Plan) error {
	r.logger.Debugw("updating installment plan",
		"subscriber_id", plan.SubscriberID,
		"expected_version", plan.Version,
	)

	span := sentry.StartSpan(ctx, sentry.OpRepository, "installment_plan", "update", map[string]interface{}{
		"subscriber_id": plan.SubscriberID,
		"version":       plan.Version,
	})
	defer sentry.FinishSpan(span)

	doc, err := installment.MarshalDocument(plan)
	if err != nil {
		sentry.SetSpanError(span, err)
		return err
	}

	now := time.Now().UTC()
	res := r.client.Querier(ctx).
		Model(&InstallmentPlanRow{}).
		Where("subscriber_id = ? AND version = ?", plan.SubscriberID, plan.Version).
		Updates(map[string]interface{}{
			"enabled":    plan.Enabled,
			"document":   datatypes.JSON(doc),
			"version":    plan.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		sentry.SetSpanError(span, res.Error)
		return ierr.WithError(res.Error).
			WithHint("Failed to update installment plan").
			WithReportableDetails(map[string]interface{}{
				"subscriber_id": plan.SubscriberID,
			}).
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		err := errWriteConflict(plan.SubscriberID, plan.Version)
		sentry.SetSpanError(span, err)
		return err
	}

	plan.Version++
	plan.UpdatedAt = now
	sentry.SetSpanSuccess(span)
	return nil
}

func (r *installmentPlanRepository) List(ctx context.Context, filter *types.InstallmentPlanFilter) ([]*installment.Plan, error) {
	if filter == nil {
		filter = types.NewInstallmentPlanFilter()
	}

	span := sentry.StartSpan(ctx, sentry.OpRepository, "installment_plan", "list", map[string]interface{}{
		"after_subscriber_id": filter.AfterSubscriberID,
		"limit":               filter.GetLimit(),
	})
	defer sentry.FinishSpan(span)

	if err := filter.Validate(); err != nil {
		sentry.SetSpanError(span, err)
		return nil, err
	}

	limit := filter.GetLimit()
	after := filter.AfterSubscriberID
	offset := 0
	if after == "" {
		offset = filter.GetOffset()
	}

	// corrupt documents are skipped, so keep reading until the page is full or rows run out;
	// a short page always means the listing is exhausted
	plans := make([]*installment.Plan, 0, limit)
	for len(plans) < limit {
		q := r.client.Querier(ctx).Model(&InstallmentPlanRow{})
		if filter.EnabledOnly {
			q = q.Where("enabled = ?", true)
		}
		if after != "" {
			q = q.Where("subscriber_id > ?", after)
		} else if offset > 0 {
			q = q.Offset(offset)
		}

		batch := limit - len(plans)
		var rows []InstallmentPlanRow
		if err := q.Order("subscriber_id ASC").Limit(batch).Find(&rows).Error; err != nil {
			sentry.SetSpanError(span, err)
			return nil, ierr.WithError(err).
				WithHint("Failed to list installment plans").
				Mark(ierr.ErrDatabase)
		}

		for i := range rows {
			plan, err := fromRow(&rows[i])
			if err != nil {
				r.logger.Warnw("skipping invalid installment plan document",
					"subscriber_id", rows[i].SubscriberID,
					"error", err,
				)
				continue
			}
			plans = append(plans, plan)
		}

		if len(rows) < batch {
			break
		}
		after = rows[len(rows)-1].SubscriberID
	}

	sentry.SetSpanSuccess(span)
	return plans, nil
}

func fromRow(row *InstallmentPlanRow) (*installment.Plan, error) {
	plan, err := installment.ParseDocument(row.SubscriberID, row.Document)
	if err != nil {
		return nil, err
	}
	plan.Version = row.Version
	plan.CreatedAt = row.CreatedAt
	plan.UpdatedAt = row.UpdatedAt
	return plan, nil
}

func errWriteConflict(subscriberID string, version int64) error {
	return ierr.NewError("installment plan version changed").
		WithHint("The installment plan was modified concurrently, please retry").
		WithReportableDetails(map[string]interface{}{
			"subscriber_id":    subscriberID,
			"expected_version": version,
		}).
		Mark(ierr.ErrWriteConflict)
}
