package postgres

import (
	"context"
	"errors"

	"github.com/flexprice/installments/internal/domain/payment"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/logger"
	db "github.com/flexprice/installments/internal/postgres"
	"github.com/flexprice/installments/internal/sentry"
	"github.com/flexprice/installments/internal/types"
	"gorm.io/gorm"
)

type paymentRepository struct {
	client db.IClient
	logger *logger.Logger
}

// NewPaymentRepository creates a new payment record repository
func NewPaymentRepository(client db.IClient, logger *logger.Logger) payment.Repository {
	return &paymentRepository{
		client: client,
		logger: logger,
	}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	r.logger.Debugw("creating payment record",
		"payment_id", p.ID,
		"subscriber_id", p.SubscriberID,
		"ledger_status", p.LedgerStatus,
	)

	span := sentry.StartSpan(ctx, sentry.OpRepository, "payment", "create", map[string]interface{}{
		"payment_id":    p.ID,
		"subscriber_id": p.SubscriberID,
	})
	defer sentry.FinishSpan(span)

	row := toPaymentRow(p)
	if err := r.client.Querier(ctx).Create(row).Error; err != nil {
		sentry.SetSpanError(span, err)
		if isDuplicateKey(err) {
			return ierr.WithError(err).
				WithHint("A payment with this id already exists").
				WithReportableDetails(map[string]interface{}{
					"payment_id": p.ID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record payment").
			WithReportableDetails(map[string]interface{}{
				"payment_id":    p.ID,
				"subscriber_id": p.SubscriberID,
			}).
			Mark(ierr.ErrDatabase)
	}

	sentry.SetSpanSuccess(span)
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	span := sentry.StartSpan(ctx, sentry.OpRepository, "payment", "get", map[string]interface{}{
		"payment_id": id,
	})
	defer sentry.FinishSpan(span)

	var row PaymentRow
	if err := r.client.Querier(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		sentry.SetSpanError(span, err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHintf("Payment %s was not found", id).
				WithReportableDetails(map[string]interface{}{
					"payment_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}

	sentry.SetSpanSuccess(span)
	return fromPaymentRow(&row), nil
}

func (r *paymentRepository) ListBySubscriber(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}

	span := sentry.StartSpan(ctx, sentry.OpRepository, "payment", "list_by_subscriber", map[string]interface{}{
		"subscriber_id": filter.SubscriberID,
	})
	defer sentry.FinishSpan(span)

	if err := filter.Validate(); err != nil {
		sentry.SetSpanError(span, err)
		return nil, err
	}

	var rows []PaymentRow
	err := r.client.Querier(ctx).
		Where("subscriber_id = ?", filter.SubscriberID).
		Order("payment_date DESC").
		Order("created_at DESC").
		Limit(filter.GetLimit()).
		Offset(filter.GetOffset()).
		Find(&rows).Error
	if err != nil {
		sentry.SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			WithReportableDetails(map[string]interface{}{
				"subscriber_id": filter.SubscriberID,
			}).
			Mark(ierr.ErrDatabase)
	}

	out := make([]*payment.Payment, len(rows))
	for i := range rows {
		out[i] = fromPaymentRow(&rows[i])
	}

	sentry.SetSpanSuccess(span)
	return out, nil
}

func toPaymentRow(p *payment.Payment) *PaymentRow {
	return &PaymentRow{
		ID:                p.ID,
		SubscriberID:      p.SubscriberID,
		Amount:            p.Amount,
		PaymentDate:       p.PaymentDate,
		Mode:              string(p.Mode),
		Reference:         p.Reference,
		InstallmentNumber: p.InstallmentNumber,
		LedgerStatus:      string(p.LedgerStatus),
		Status:            string(p.Status),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		CreatedBy:         p.CreatedBy,
		UpdatedBy:         p.UpdatedBy,
	}
}

func fromPaymentRow(row *PaymentRow) *payment.Payment {
	return &payment.Payment{
		ID:                row.ID,
		SubscriberID:      row.SubscriberID,
		Amount:            row.Amount,
		PaymentDate:       row.PaymentDate.UTC(),
		Mode:              types.PaymentMode(row.Mode),
		Reference:         row.Reference,
		InstallmentNumber: row.InstallmentNumber,
		LedgerStatus:      types.LedgerStatus(row.LedgerStatus),
		BaseModel: types.BaseModel{
			Status:    types.Status(row.Status),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
			CreatedBy: row.CreatedBy,
			UpdatedBy: row.UpdatedBy,
		},
	}
}
