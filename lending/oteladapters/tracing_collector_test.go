package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookshare/lending/lending/oteladapters"
)

func givenTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("lending-test")), exporter
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expectedValue string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			assert.Equal(t, expectedValue, attr.Value.AsString(), "attribute %s", key)
			return
		}
	}

	assert.Failf(t, "attribute not found", "span %s has no attribute %s", span.Name, key)
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "lending.request_book", map[string]string{
		"book_id":   "0190a1b2-0000-7000-8000-0000000000b1",
		"caller_id": "0190a1b2-0000-7000-8000-000000000002",
	})
	collector.FinishSpan(spanCtx, "OK", map[string]string{"outcome": "ok"})

	// assert
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "lending.request_book", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "book_id", "0190a1b2-0000-7000-8000-0000000000b1")
	assertSpanHasAttribute(t, spans[0], "caller_id", "0190a1b2-0000-7000-8000-000000000002")
	assertSpanHasAttribute(t, spans[0], "outcome", "ok")
}

func Test_TracingCollector_FinishSpan_StatusMapping(t *testing.T) {
	testCases := []struct {
		status   string
		wantCode codes.Code
	}{
		{status: "OK", wantCode: codes.Ok},
		{status: "success", wantCode: codes.Ok},
		{status: "ERROR", wantCode: codes.Error},
		{status: "failed", wantCode: codes.Error},
		{status: "conflict", wantCode: codes.Error},
		{status: "degraded", wantCode: codes.Unset},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			// arrange
			collector, exporter := givenTracingCollector()
			_, spanCtx := collector.StartSpan(context.Background(), "lending.grant_request", nil)

			// act
			collector.FinishSpan(spanCtx, tc.status, nil)

			// assert
			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.wantCode, spans[0].Status.Code)

			if tc.wantCode == codes.Unset {
				assertSpanHasAttribute(t, spans[0], "status", tc.status)
			}
		})
	}
}

func Test_TracingCollector_NestsSpansFromContext(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	ctx, parent := collector.StartSpan(context.Background(), "lending.delist_book", nil)
	_, child := collector.StartSpan(ctx, "lending.store", nil)
	child.AddAttribute("action", "remove request entries")
	collector.FinishSpan(child, "OK", nil)
	collector.FinishSpan(parent, "OK", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Contains(t, spans[0].Attributes, attribute.String("action", "remove request entries"))
}

type foreignSpanContext struct{}

func (foreignSpanContext) SetStatus(string)            {}
func (foreignSpanContext) AddAttribute(string, string) {}

func Test_TracingCollector_FinishSpan_IgnoresForeignSpanContext(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	collector.FinishSpan(foreignSpanContext{}, "OK", map[string]string{"outcome": "ok"})

	// assert
	assert.Empty(t, exporter.GetSpans())
}
