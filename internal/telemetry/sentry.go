// Package telemetry wraps Sentry tracing for the order desk daemon.
package telemetry

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	serverName   = "orderdeskd"
	flushTimeout = 5 * time.Second
)

// untraced lists transactions that are never sampled: health probes and the
// outbox stream, which lives as long as the host page.
var untraced = map[string]bool{
	"GET /health":        true,
	"GET /bridge/outbox": true,
}

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init starts Sentry and returns a function that flushes pending events.
// With an empty DSN, or when the client cannot start, both are no-ops.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:           cfg.DSN,
		Environment:   cfg.Environment,
		EnableTracing: true,
		Debug:         cfg.Debug,
		ServerName:    serverName,
		TracesSampler: sampler(cfg.TracesSampleRate),
	})
	if err != nil {
		log.Printf("sentry: failed to initialize (continuing without tracing): %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampler drops untraced transactions and lets child spans follow their
// parent's decision.
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if untraced[ctx.Span.Name] {
			return 0
		}
		if ctx.Span.ParentSpanID != (sentry.SpanID{}) {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes tags a span with what the order desk was doing.
type SpanAttributes struct {
	Path      string
	Domain    string
	Page      int
	OrderID   int64
	Operation string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if a.Path != "" {
		span.SetTag("api_path", a.Path)
	}
	if a.Domain != "" {
		span.SetTag("search_domain", a.Domain)
	}
	if a.OrderID != 0 {
		span.SetTag("order_id", strconv.FormatInt(a.OrderID, 10))
	}
	if a.Page > 0 {
		span.SetData("page", a.Page)
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// Span is a started Sentry span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	s.inner.Finish()
}

// SetError marks the span failed and reports err on the span's hub.
func (s *Span) SetError(err error) {
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// StartSpan starts a child of the span in ctx, or a new transaction when
// ctx carries none (worker ticks, the CLI).
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

// Breadcrumb records a bridge or lifecycle event on the global scope.
func Breadcrumb(category, message string, data map[string]any) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Data:      data,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	})
}
