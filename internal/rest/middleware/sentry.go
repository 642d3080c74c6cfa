package middleware

import (
	"time"

	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/types"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware returns a middleware that captures panics and performance data.
// It is a pass-through when sentry is not configured.
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled || cfg.Sentry.DSN == "" {
		return func(c *gin.Context) { c.Next() }
	}

	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
}

// SentryRequestContextMiddleware copies the request ids and the subscriber onto the sentry
// scope. Must run after RequestIDMiddleware.
func SentryRequestContextMiddleware(c *gin.Context) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	scope := hub.Scope()
	tags := map[string]string{
		"request_id":    types.GetRequestID(ctx),
		"tenant_id":     types.GetTenantID(ctx),
		"subscriber_id": c.Param("subscriber_id"),
	}
	for k, v := range tags {
		if v != "" {
			scope.SetTag(k, v)
		}
	}
	if userID := types.GetUserID(ctx); userID != "" {
		scope.SetUser(sentry.User{ID: userID})
	}
	c.Next()
}
