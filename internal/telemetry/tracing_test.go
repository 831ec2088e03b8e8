package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracerProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return exp
}

func TestSpanHelpers(t *testing.T) {
	t.Run("attributes events and success", func(t *testing.T) {
		exp := setupTracerProvider(t)

		_, span := StartSpan(context.Background(), "payment.apply_event")
		AddSpanAttributes(span, attribute.String("order.id", "o1"))
		AddSpanEvent(span, "payment.duplicate", attribute.String("event", "payment.succeeded"))
		SetSpanSuccess(span)
		span.End()

		spans := exp.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}
		got := spans[0]
		if got.Status.Code != codes.Ok {
			t.Errorf("expected Ok status, got %v", got.Status.Code)
		}
		if len(got.Attributes) != 1 || got.Attributes[0].Value.AsString() != "o1" {
			t.Errorf("unexpected attributes: %v", got.Attributes)
		}
		if len(got.Events) != 1 || got.Events[0].Name != "payment.duplicate" {
			t.Errorf("unexpected events: %v", got.Events)
		}
	})

	t.Run("records errors", func(t *testing.T) {
		exp := setupTracerProvider(t)

		_, span := StartSpan(context.Background(), "checkout.place_order")
		RecordSpanError(span, errors.New("stock store unavailable"))
		span.End()

		got := exp.GetSpans()[0]
		if got.Status.Code != codes.Error || got.Status.Description != "stock store unavailable" {
			t.Errorf("unexpected status: %+v", got.Status)
		}
		if len(got.Events) != 1 || got.Events[0].Name != "exception" {
			t.Errorf("expected an exception event, got %v", got.Events)
		}
	})

	t.Run("nil span and nil error are ignored", func(t *testing.T) {
		AddSpanAttributes(nil, attribute.String("k", "v"))
		AddSpanEvent(nil, "event")
		RecordSpanError(nil, errors.New("ignored"))
		SetSpanSuccess(nil)

		exp := setupTracerProvider(t)
		_, span := StartSpan(context.Background(), "noop")
		RecordSpanError(span, nil)
		span.End()
		if got := exp.GetSpans()[0].Status.Code; got != codes.Unset {
			t.Errorf("expected unset status, got %v", got)
		}
	})
}

func TestTraceAndSpanID(t *testing.T) {
	setupTracerProvider(t)

	if TraceID(context.Background()) != "" || SpanID(context.Background()) != "" {
		t.Error("expected empty IDs without a span")
	}

	parentCtx, parent := StartSpan(context.Background(), "parent")
	defer parent.End()
	childCtx, child := StartSpan(parentCtx, "child")
	defer child.End()

	if TraceID(parentCtx) != TraceID(childCtx) {
		t.Error("expected nested spans to share a trace ID")
	}
	if SpanID(parentCtx) == SpanID(childCtx) {
		t.Error("expected nested spans to have distinct span IDs")
	}
	if len(TraceID(childCtx)) != 32 || len(SpanID(childCtx)) != 16 {
		t.Errorf("unexpected ID lengths: %s %s", TraceID(childCtx), SpanID(childCtx))
	}
}
