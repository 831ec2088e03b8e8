package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/dejobratic/storefront/internal/events"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *events.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *events.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderPlaced(ctx context.Context, orderID string) error {
	return e.publish(ctx, "EventBus.PublishOrderPlaced", events.TypeOrderPlaced, orderID, func(ctx context.Context) error {
		return e.bus.PublishOrderPlaced(ctx, orderID)
	})
}

func (e *ObservableEventBus) PublishPaymentApplied(ctx context.Context, orderID string, event string) error {
	return e.publish(ctx, "EventBus.PublishPaymentApplied", events.TypePaymentApplied, orderID, func(ctx context.Context) error {
		return e.bus.PublishPaymentApplied(ctx, orderID, event)
	}, attribute.String("payment.event", event))
}

func (e *ObservableEventBus) publish(ctx context.Context, spanName, eventType, orderID string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("event.type", eventType),
	)
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, eventType, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
