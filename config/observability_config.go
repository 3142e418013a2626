package config

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/bookshare/lending/lending/oteladapters"
)

const (
	instrumentationName = "github.com/bookshare/lending"
	shutdownTimeout     = 5 * time.Second
)

// Observability holds in-process OpenTelemetry providers. Metrics are pulled on demand
// with MetricsSummary instead of being exported periodically.
type Observability struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Resource       *resource.Resource
	reader         *metric.ManualReader
}

// MetricSummary is the aggregated value of one metric stream.
// Counters report their sum, histograms their observation count and sum, gauges their last value.
type MetricSummary struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Count      uint64            `json:"count,omitempty"`
	Value      float64           `json:"value"`
}

// NewObservability creates tracer and meter providers for serviceName and registers them globally.
func NewObservability(ctx context.Context, serviceName string, version string) (*Observability, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, err
	}

	reader := metric.NewManualReader()
	meterProvider := metric.NewMeterProvider(metric.WithReader(reader), metric.WithResource(res))
	tracerProvider := trace.NewTracerProvider(trace.WithResource(res))

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Observability{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Resource:       res,
		reader:         reader,
	}, nil
}

// MetricsCollector returns a lending.MetricsCollector that records into the meter provider.
func (o *Observability) MetricsCollector() *oteladapters.MetricsCollector {
	return oteladapters.NewMetricsCollector(o.MeterProvider.Meter(instrumentationName))
}

// TracingCollector returns a lending.TracingCollector that starts spans from the tracer provider.
func (o *Observability) TracingCollector() *oteladapters.TracingCollector {
	return oteladapters.NewTracingCollector(o.TracerProvider.Tracer(instrumentationName))
}

// ContextualLogger returns a lending.ContextualLogger that passes the context of every call on to handler.
func (o *Observability) ContextualLogger(handler slog.Handler) *oteladapters.SlogBridgeLogger {
	return oteladapters.NewSlogBridgeLoggerWithHandler(handler)
}

// MetricsSummary collects all metrics recorded so far, sorted by name.
func (o *Observability) MetricsSummary(ctx context.Context) ([]MetricSummary, error) {
	var collected metricdata.ResourceMetrics
	if err := o.reader.Collect(ctx, &collected); err != nil {
		return nil, err
	}

	summaries := make([]MetricSummary, 0)

	for _, scopeMetrics := range collected.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			summaries = append(summaries, summarize(m)...)
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})

	return summaries, nil
}

// Shutdown flushes and stops both providers.
func (o *Observability) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(o.TracerProvider.Shutdown(ctx), o.MeterProvider.Shutdown(ctx))
}

func summarize(m metricdata.Metrics) []MetricSummary {
	summaries := make([]MetricSummary, 0)

	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		for _, point := range data.DataPoints {
			summaries = append(summaries, MetricSummary{
				Name: m.Name, Attributes: attributeMap(point.Attributes), Value: float64(point.Value),
			})
		}
	case metricdata.Histogram[float64]:
		for _, point := range data.DataPoints {
			summaries = append(summaries, MetricSummary{
				Name: m.Name, Attributes: attributeMap(point.Attributes), Count: point.Count, Value: point.Sum,
			})
		}
	case metricdata.Gauge[float64]:
		for _, point := range data.DataPoints {
			summaries = append(summaries, MetricSummary{
				Name: m.Name, Attributes: attributeMap(point.Attributes), Value: point.Value,
			})
		}
	}

	return summaries
}

func attributeMap(set attribute.Set) map[string]string {
	attrs := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	return attrs
}
