package main

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/installments/internal/api/dto"
	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/pubsub"
	"github.com/flexprice/installments/internal/service"
	"github.com/flexprice/installments/internal/types"
	robfigcron "github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

// startScheduler runs the due alert scan on the configured cron schedule
func startScheduler(lc fx.Lifecycle, cfg *config.Configuration, dueAlertService service.DueAlertService, log *logger.Logger) error {
	if cfg.Deployment.Mode == types.ModeAPI || !cfg.DueAlerts.Enabled || cfg.DueAlerts.Schedule == "" {
		log.Infow("due alert scheduler disabled")
		return nil
	}

	loc, err := time.LoadLocation(types.ResolveTimezone(cfg.DueAlerts.Timezone))
	if err != nil {
		loc = time.UTC
	}

	scheduler := robfigcron.New(
		robfigcron.WithLocation(loc),
		robfigcron.WithChain(robfigcron.SkipIfStillRunning(robfigcron.DiscardLogger)),
	)

	_, err = scheduler.AddFunc(cfg.DueAlerts.Schedule, func() {
		resp, err := dueAlertService.RunScan(context.Background(), dto.RunDueAlertScanRequest{})
		if err != nil {
			log.Errorw("scheduled due alert scan failed", "error", err)
			return
		}
		log.Infow("scheduled due alert scan finished",
			"as_of", resp.AsOf.String(),
			"alerts_published", resp.AlertsPublished,
		)
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting due alert scheduler", "schedule", cfg.DueAlerts.Schedule, "timezone", loc.String())
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := scheduler.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

// startAlertLogSubscriber logs alerts published on the in-process bus, standing in for the
// notification pipeline when no broker is configured
func startAlertLogSubscriber(lc fx.Lifecycle, cfg *config.Configuration, ps pubsub.PubSub, log *logger.Logger) {
	if cfg.DueAlerts.Publisher != "memory" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			messages, err := ps.Subscribe(ctx, cfg.DueAlerts.Topic)
			if err != nil {
				cancel()
				return err
			}
			go consumeAlerts(messages, log)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func consumeAlerts(messages <-chan *message.Message, log *logger.Logger) {
	for msg := range messages {
		log.Infow("installment due alert",
			"dedup_key", msg.UUID,
			"subscriber_id", msg.Metadata.Get(service.MetadataSubscriberID),
			"type", msg.Metadata.Get(service.MetadataAlertType),
			"priority", msg.Metadata.Get(service.MetadataPriority),
		)
		msg.Ack()
	}
}
