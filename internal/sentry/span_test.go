package sentry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpan_NoHub(t *testing.T) {
	span := StartSpan(context.Background(), OpCache, "redis", "get", nil)
	assert.Nil(t, span)

	// nil spans are accepted everywhere
	SetSpanError(span, errors.New("boom"))
	SetSpanSuccess(span)
	FinishSpan(span)
}

func TestStartSpan_WithHub(t *testing.T) {
	client, err := sentry.NewClient(sentry.ClientOptions{})
	require.NoError(t, err)
	ctx := sentry.SetHubOnContext(context.Background(), sentry.NewHub(client, sentry.NewScope()))

	span := StartSpan(ctx, OpRepository, "payment", "create", map[string]interface{}{"payment_id": "pay_1"})
	require.NotNil(t, span)
	assert.Equal(t, OpRepository, span.Op)
	assert.Equal(t, "payment.create", span.Description)
	assert.Equal(t, "pay_1", span.Data["payment_id"])

	SetSpanError(span, errors.New("boom"))
	assert.Equal(t, sentry.SpanStatusInternalError, span.Status)
	FinishSpan(span)
}
