package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/webhookhub/webhookhub/internal/metrics"

type IngestOpts struct {
	Source    string
	Duplicate bool
}

type DeliveryOpts struct {
	Retryable bool
}

// WebhookHubMetrics records the relay's domain meters. Instruments are
// registered against the global meter provider, so a process without the
// OTel SDK configured gets no-op instruments for free.
type WebhookHubMetrics interface {
	EventIngested(ctx context.Context, opts IngestOpts)
	DeliveryAttempted(ctx context.Context)
	DeliverySucceeded(ctx context.Context)
	DeliveryFailed(ctx context.Context, opts DeliveryOpts)
	DeliveryDead(ctx context.Context)
	PublishFailure(ctx context.Context)
	DeliveryLatency(ctx context.Context, latency time.Duration)
}

type webhookHubMetrics struct {
	eventsIngested      metric.Int64Counter
	deliveriesAttempted metric.Int64Counter
	deliveriesSucceeded metric.Int64Counter
	deliveriesFailed    metric.Int64Counter
	deliveriesDead      metric.Int64Counter
	publishFailures     metric.Int64Counter
	deliveryLatency     metric.Float64Histogram
}

var _ WebhookHubMetrics = (*webhookHubMetrics)(nil)

var (
	once     sync.Once
	instance *webhookHubMetrics
	initErr  error
)

// New returns the process-wide metrics recorder. Instruments are created
// once against whatever meter provider is installed at first call.
func New() (WebhookHubMetrics, error) {
	once.Do(func() {
		instance, initErr = newWebhookHubMetrics()
	})
	return instance, initErr
}

func newWebhookHubMetrics() (*webhookHubMetrics, error) {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &webhookHubMetrics{}
	var err error

	if m.eventsIngested, err = meter.Int64Counter("webhookhub.events.ingested",
		metric.WithDescription("Events accepted by the ingest endpoint"),
	); err != nil {
		return nil, err
	}
	if m.deliveriesAttempted, err = meter.Int64Counter("webhookhub.deliveries.attempted",
		metric.WithDescription("Delivery attempts made against destination endpoints"),
	); err != nil {
		return nil, err
	}
	if m.deliveriesSucceeded, err = meter.Int64Counter("webhookhub.deliveries.succeeded",
		metric.WithDescription("Delivery attempts that received a 2xx response"),
	); err != nil {
		return nil, err
	}
	if m.deliveriesFailed, err = meter.Int64Counter("webhookhub.deliveries.failed",
		metric.WithDescription("Delivery attempts that failed"),
	); err != nil {
		return nil, err
	}
	if m.deliveriesDead, err = meter.Int64Counter("webhookhub.deliveries.dead",
		metric.WithDescription("Deliveries parked as DEAD after exhausting attempts"),
	); err != nil {
		return nil, err
	}
	if m.publishFailures, err = meter.Int64Counter("webhookhub.publish.failures",
		metric.WithDescription("Broker publishes that failed after the database commit"),
	); err != nil {
		return nil, err
	}
	if m.deliveryLatency, err = meter.Float64Histogram("webhookhub.delivery.latency",
		metric.WithDescription("Latency of delivery attempts"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *webhookHubMetrics) EventIngested(ctx context.Context, opts IngestOpts) {
	m.eventsIngested.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", opts.Source),
		attribute.Bool("duplicate", opts.Duplicate),
	))
}

func (m *webhookHubMetrics) DeliveryAttempted(ctx context.Context) {
	m.deliveriesAttempted.Add(ctx, 1)
}

func (m *webhookHubMetrics) DeliverySucceeded(ctx context.Context) {
	m.deliveriesSucceeded.Add(ctx, 1)
}

func (m *webhookHubMetrics) DeliveryFailed(ctx context.Context, opts DeliveryOpts) {
	m.deliveriesFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("retryable", opts.Retryable),
	))
}

func (m *webhookHubMetrics) DeliveryDead(ctx context.Context) {
	m.deliveriesDead.Add(ctx, 1)
}

func (m *webhookHubMetrics) PublishFailure(ctx context.Context) {
	m.publishFailures.Add(ctx, 1)
}

func (m *webhookHubMetrics) DeliveryLatency(ctx context.Context, latency time.Duration) {
	m.deliveryLatency.Record(ctx, latency.Seconds())
}
