package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/installments/internal/api/dto"
	"github.com/flexprice/installments/internal/domain/duealert"
	"github.com/flexprice/installments/internal/domain/installment"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/pubsub"
	"github.com/flexprice/installments/internal/types"
	"github.com/sourcegraph/conc/pool"
)

// Metadata keys set on every published alert message
const (
	MetadataSubscriberID = "subscriber_id"
	MetadataAlertType    = "alert_type"
	MetadataPriority     = "priority"
	MetadataEventID      = "event_id"
)

type DueAlertService interface {
	// RunScan scans every enabled plan as of the requested day and publishes the alerts
	RunScan(ctx context.Context, req dto.RunDueAlertScanRequest) (*dto.DueAlertScanResponse, error)
}

type dueAlertService struct {
	ServiceParams
}

func NewDueAlertService(params ServiceParams) DueAlertService {
	return &dueAlertService{
		ServiceParams: params,
	}
}

func (s *dueAlertService) RunScan(ctx context.Context, req dto.RunDueAlertScanRequest) (*dto.DueAlertScanResponse, error) {
	asOf := types.Today(s.Config.DueAlerts.Timezone)
	if req.AsOf != nil && !req.AsOf.IsZero() {
		asOf = types.StartOfDay(req.AsOf.Time)
	}

	span, ctx := s.Sentry.StartMonitoringSpan(ctx, "due_alerts.scan", map[string]interface{}{
		"as_of": asOf.Format(types.DateFormat),
	})
	if span != nil {
		defer span.Finish()
	}

	start := time.Now()
	defer func() {
		s.Metrics.DueAlertScanDuration.Observe(time.Since(start).Seconds())
	}()

	log := s.Logger.WithContext(ctx)
	resp := &dto.DueAlertScanResponse{
		AsOf:   types.NewDate(asOf),
		Alerts: make([]*duealert.Alert, 0),
	}

	filter := types.NewInstallmentPlanFilter()
	filter.EnabledOnly = true
	pageSize := s.Config.DueAlerts.PageSize
	filter.Limit = &pageSize

	for {
		plans, err := s.InstallmentPlanRepo.List(ctx, filter)
		if err != nil {
			s.Sentry.CaptureException(err)
			return nil, ierr.WithError(err).
				WithHint("Failed to load installment plans for the due alert scan").
				Mark(ierr.ErrDatabase)
		}
		if len(plans) == 0 {
			break
		}

		alerts := s.scanPage(asOf, plans)
		resp.PlansScanned += len(plans)
		resp.Alerts = append(resp.Alerts, alerts...)

		for _, alert := range alerts {
			if err := s.publish(ctx, alert); err != nil {
				resp.PublishFailures++
				s.Metrics.DueAlertPublishErrors.Inc()
				s.Sentry.CaptureException(err, map[string]string{"subscriber_id": alert.SubscriberID})
				log.Errorw("failed to publish due alert",
					"dedup_key", alert.DedupKey,
					"subscriber_id", alert.SubscriberID,
					"error", err,
				)
				continue
			}
			resp.AlertsPublished++
			s.Metrics.DueAlertsTotal.WithLabelValues(string(alert.Type), string(alert.Priority)).Inc()
		}

		if len(plans) < filter.GetLimit() {
			break
		}
		filter.AfterSubscriberID = plans[len(plans)-1].SubscriberID
	}

	log.Infow("due alert scan completed",
		"as_of", resp.AsOf.String(),
		"plans_scanned", resp.PlansScanned,
		"alerts_published", resp.AlertsPublished,
		"publish_failures", resp.PublishFailures,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return resp, nil
}

// scanPage fans the page out over a bounded worker pool. Alerts come back in page order.
func (s *dueAlertService) scanPage(asOf time.Time, plans []*installment.Plan) []*duealert.Alert {
	p := pool.New().WithMaxGoroutines(s.Config.DueAlerts.MaxWorkers)

	perPlan := make([][]*duealert.Alert, len(plans))
	for i, plan := range plans {
		i, plan := i, plan
		p.Go(func() {
			perPlan[i] = duealert.ScanPlan(asOf, plan)
		})
	}
	p.Wait()

	out := make([]*duealert.Alert, 0)
	for _, alerts := range perPlan {
		out = append(out, alerts...)
	}
	return out
}

// publish sends one alert. The dedup key is the message id so redelivered scans are
// recognizable downstream.
func (s *dueAlertService) publish(ctx context.Context, alert *duealert.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode due alert").
			Mark(ierr.ErrInternal)
	}

	msg := message.NewMessage(alert.DedupKey, payload)
	msg.Metadata.Set(MetadataSubscriberID, alert.SubscriberID)
	msg.Metadata.Set(MetadataAlertType, string(alert.Type))
	msg.Metadata.Set(MetadataPriority, string(alert.Priority))
	msg.Metadata.Set(MetadataEventID, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DUE_ALERT))
	msg.Metadata.Set(pubsub.MetadataPartitionKey, alert.SubscriberID)

	return s.AlertPublisher.Publish(ctx, s.Config.DueAlerts.Topic, msg)
}
