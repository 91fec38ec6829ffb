package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
)

func TestInit_EmptyDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{})
	assert.NoError(t, err)
	assert.NotPanics(t, shutdown)
}

func TestSampler(t *testing.T) {
	sample := sampler(0.25)

	health := &sentry.Span{Name: "GET /health"}
	assert.Equal(t, 0.0, sample(sentry.SamplingContext{Span: health}))

	outbox := &sentry.Span{Name: "GET /bridge/outbox"}
	assert.Equal(t, 0.0, sample(sentry.SamplingContext{Span: outbox}))

	orders := &sentry.Span{Name: "GET /orders"}
	assert.Equal(t, 0.25, sample(sentry.SamplingContext{Span: orders}))

	child := &sentry.Span{Name: "remote.POST", ParentSpanID: sentry.SpanID{1}, Sampled: sentry.SampledTrue}
	assert.Equal(t, 1.0, sample(sentry.SamplingContext{Span: child}))
}

func TestStartSpan_WithoutClient(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "OrderService.GetOrders", SpanAttributes{
		Path:    "demo/order/search/1",
		Page:    1,
		OrderID: 7,
	})
	assert.NotNil(t, ctx)

	assert.NotPanics(t, func() {
		span.SetError(errors.New("boom"))
		span.End()
	})

	assert.NotPanics(t, func() {
		Breadcrumb("bridge.inbox", "api:token", map[string]any{"id": "x1"})
	})
}
