package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Checkout outcomes recorded on checkout_orders_total.
const (
	OutcomePlaced    = "placed"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

type Metrics struct {
	ordersTotal         metric.Int64Counter
	placementDuration   metric.Float64Histogram
	paymentEventsTotal  metric.Int64Counter
	reservationFailures metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersTotal, err = meter.Int64Counter(
		"checkout_orders_total",
		metric.WithDescription("Checkout submissions by outcome"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_orders_total counter: %w", err)
	}

	m.placementDuration, err = meter.Float64Histogram(
		"checkout_placement_duration_seconds",
		metric.WithDescription("Duration of order placement"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_placement_duration histogram: %w", err)
	}

	m.paymentEventsTotal, err = meter.Int64Counter(
		"payment_events_total",
		metric.WithDescription("Payment events applied by type and result"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_events_total counter: %w", err)
	}

	m.reservationFailures, err = meter.Int64Counter(
		"inventory_reservation_failures_total",
		metric.WithDescription("Reservations rejected for insufficient stock"),
		metric.WithUnit("{reservation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create inventory_reservation_failures_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordCheckout(ctx context.Context, outcome string, durationSeconds float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.ordersTotal.Add(ctx, 1, attrs)
	m.placementDuration.Record(ctx, durationSeconds, attrs)
}

func (m *Metrics) RecordReservationFailure(ctx context.Context, strategy string) {
	m.reservationFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
	))
}

// RecordPaymentEvent counts a settlement attempt. result is applied, duplicate or error.
func (m *Metrics) RecordPaymentEvent(ctx context.Context, event, result string) {
	m.paymentEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("result", result),
	))
}
