package monitor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationScope = "github.com/hamed0406/hostwatch/internal/monitor"

const (
	roleTarget    = "target"
	roleReference = "reference"
)

// Metrics records monitor activity as OpenTelemetry instruments. A nil
// *Metrics records nothing.
type Metrics struct {
	probes         metric.Int64Counter
	notifications  metric.Int64Counter
	outages        metric.Int64Counter
	outageDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	probes, err := meter.Int64Counter("hostwatch.probes",
		metric.WithDescription("Reachability checks performed"),
	)
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("hostwatch.notifications",
		metric.WithDescription("Notifications handed to the sink"),
	)
	if err != nil {
		return nil, err
	}
	outages, err := meter.Int64Counter("hostwatch.outages",
		metric.WithDescription("Confirmed target outages"),
	)
	if err != nil {
		return nil, err
	}
	outageDuration, err := meter.Float64Histogram("hostwatch.outage.duration",
		metric.WithDescription("Accumulated offline time of recovered outages"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		probes:         probes,
		notifications:  notifications,
		outages:        outages,
		outageDuration: outageDuration,
	}, nil
}

func defaultMetrics() *Metrics {
	m, err := NewMetrics(otel.Meter(instrumentationScope))
	if err != nil {
		return nil
	}
	return m
}

func (m *Metrics) probe(ctx context.Context, role string, up bool) {
	if m == nil {
		return
	}
	m.probes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.Bool("up", up),
	))
}

func (m *Metrics) notification(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) outageStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.outages.Add(ctx, 1)
}

func (m *Metrics) outageEnded(ctx context.Context, offline time.Duration) {
	if m == nil {
		return
	}
	m.outageDuration.Record(ctx, offline.Seconds())
}
