package sentry

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// Span operations for the storage layers
const (
	OpRepository = "db.repository"
	OpCache      = "db.cache"
)

// StartSpan starts a child span named <component>.<operation> under the transaction on ctx.
// Returns nil when there is no sentry hub on the context.
func StartSpan(ctx context.Context, op, component, operation string, params map[string]interface{}) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	name := component + "." + operation
	span := sentry.StartSpan(ctx, op)
	span.Description = name
	span.SetData("component", component)
	span.SetData("operation", operation)
	for k, v := range params {
		span.SetData(k, v)
	}
	return span
}

func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}

func SetSpanError(span *sentry.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.Status = sentry.SpanStatusInternalError
	span.SetData("error", err.Error())
}

func SetSpanSuccess(span *sentry.Span) {
	if span != nil {
		span.Status = sentry.SpanStatusOK
	}
}
