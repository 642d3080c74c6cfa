package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/flexprice/installments/internal/api"
	"github.com/flexprice/installments/internal/api/cron"
	"github.com/flexprice/installments/internal/api/dto"
	v1 "github.com/flexprice/installments/internal/api/v1"
	"github.com/flexprice/installments/internal/cache"
	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/metrics"
	"github.com/flexprice/installments/internal/postgres"
	"github.com/flexprice/installments/internal/pubsub"
	pubsubKafka "github.com/flexprice/installments/internal/pubsub/kafka"
	"github.com/flexprice/installments/internal/pubsub/memory"
	"github.com/flexprice/installments/internal/redis"
	repo "github.com/flexprice/installments/internal/repository/postgres"
	"github.com/flexprice/installments/internal/sentry"
	"github.com/flexprice/installments/internal/service"
	"github.com/flexprice/installments/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const alertConsumerGroup = "installments-alert-log"

var scanOnce = flag.Bool("scan-once", false, "Run the due alert scan once and exit")
var scanDate = flag.String("date", "", "Day to scan (YYYY-MM-DD), defaults to today. Only used with -scan-once")

func main() {
	flag.Parse()

	opts := []fx.Option{
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			sentry.NewSentryService,
			metrics.NewMetrics,
			provideDB,
			postgres.NewClient,
			provideRedis,
			cache.NewCache,
			provideAlertPublisher,

			repo.NewInstallmentPlanRepository,
			repo.NewPaymentRepository,

			service.NewServiceParams,
			service.NewInstallmentPlanService,
			service.NewPaymentService,
			service.NewDueAlertService,
		),
	}

	if *scanOnce {
		opts = append(opts, fx.Invoke(runScanOnce))
	} else {
		opts = append(opts,
			fx.Provide(
				v1.NewInstallmentPlanHandler,
				v1.NewPaymentHandler,
				cron.NewDueAlertCronHandler,
				provideHandlers,
				api.NewRouter,
			),
			fx.Invoke(startServer, startScheduler, startAlertLogSubscriber),
		)
	}

	fx.New(opts...).Run()
}

// provideDB opens the database and applies the schema when auto_migrate is set
func provideDB(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*gorm.DB, error) {
	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Postgres.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			return nil, err
		}
		log.Infow("database schema migrated")
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

// provideRedis connects only when the redis cache is configured
func provideRedis(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*redis.Client, error) {
	if !cfg.Cache.Enabled || cache.CacheType(cfg.Cache.Type) != cache.CacheTypeRedis {
		return nil, nil
	}

	client, err := redis.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideAlertPublisher(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (pubsub.PubSub, error) {
	var ps pubsub.PubSub
	switch cfg.DueAlerts.Publisher {
	case "kafka":
		kafkaPubSub, err := pubsubKafka.NewPubSubFromConfig(cfg, log, alertConsumerGroup)
		if err != nil {
			return nil, err
		}
		ps = kafkaPubSub
	default:
		ps = memory.NewPubSub(log)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})
	return ps, nil
}

func provideHandlers(
	installmentPlan *v1.InstallmentPlanHandler,
	payment *v1.PaymentHandler,
	cronDueAlert *cron.DueAlertCronHandler,
) api.Handlers {
	return api.Handlers{
		InstallmentPlan: installmentPlan,
		Payment:         payment,
		CronDueAlert:    cronDueAlert,
	}
}

func startServer(lc fx.Lifecycle, cfg *config.Configuration, router *gin.Engine, log *logger.Logger, sentryService *sentry.Service) {
	if cfg.Deployment.Mode == types.ModeScheduler {
		log.Infow("http server disabled in scheduler mode")
		return
	}
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting http server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("http server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down http server")
			sentryService.Flush(2 * time.Second)
			return srv.Shutdown(ctx)
		},
	})
}

func runScanOnce(lc fx.Lifecycle, shutdowner fx.Shutdowner, dueAlertService service.DueAlertService, log *logger.Logger) error {
	req := dto.RunDueAlertScanRequest{}
	if *scanDate != "" {
		asOf, err := types.ParseDate(*scanDate)
		if err != nil {
			return err
		}
		d := types.NewDate(asOf)
		req.AsOf = &d
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				resp, err := dueAlertService.RunScan(context.Background(), req)
				if err != nil {
					log.Errorw("due alert scan failed", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				log.Infow("due alert scan finished",
					"as_of", resp.AsOf.String(),
					"plans_scanned", resp.PlansScanned,
					"alerts_published", resp.AlertsPublished,
					"publish_failures", resp.PublishFailures,
				)
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
	})
	return nil
}
