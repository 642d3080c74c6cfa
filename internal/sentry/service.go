package sentry

import (
	"context"
	"time"

	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/logger"
	"github.com/getsentry/sentry-go"
)

// Service reports errors and background job spans to Sentry when configured
type Service struct {
	cfg     *config.Configuration
	logger  *logger.Logger
	enabled bool
}

// NewSentryService initializes the global Sentry client. A disabled or failed init leaves
// the service as a no-op.
func NewSentryService(cfg *config.Configuration, log *logger.Logger) *Service {
	s := &Service{cfg: cfg, logger: log}

	if !cfg.Sentry.Enabled {
		return s
	}

	if cfg.Sentry.DSN == "" {
		log.Warnw("sentry is enabled but no dsn is configured, error reporting disabled")
		return s
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		EnableTracing:    cfg.Sentry.SampleRate > 0,
		TracesSampleRate: cfg.Sentry.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		log.Errorw("failed to initialize sentry", "error", err)
		return s
	}

	s.enabled = true
	log.Infow("sentry initialized", "environment", cfg.Sentry.Environment)
	return s
}

func (s *Service) IsEnabled() bool {
	return s != nil && s.enabled
}

// CaptureException reports err with the given tags
func (s *Service) CaptureException(err error, tags ...map[string]string) {
	if !s.IsEnabled() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for _, t := range tags {
			scope.SetTags(t)
		}
		sentry.CaptureException(err)
	})
}

// StartMonitoringSpan starts a transaction for a background operation such as the due alert
// scan. The returned span is nil when Sentry is disabled.
func (s *Service) StartMonitoringSpan(ctx context.Context, operation string, params map[string]interface{}) (*sentry.Span, context.Context) {
	if !s.IsEnabled() {
		return nil, ctx
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
		ctx = sentry.SetHubOnContext(ctx, hub)
	}

	span := sentry.StartSpan(ctx, operation, sentry.WithTransactionName(operation))
	for k, v := range params {
		span.SetData(k, v)
	}
	return span, span.Context()
}

// Flush waits for queued events before shutdown
func (s *Service) Flush(timeout time.Duration) {
	if !s.IsEnabled() {
		return
	}
	sentry.Flush(timeout)
}
