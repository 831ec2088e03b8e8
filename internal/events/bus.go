package events

import (
	"context"
	"log/slog"
)

// Event types published by the checkout service.
const (
	TypeOrderPlaced    = "order.placed"
	TypePaymentApplied = "payment.applied"
)

// LogBus writes lifecycle events to the structured log. It stands in for a broker
// until one is wired.
type LogBus struct {
	logger *slog.Logger
}

func NewLogBus(logger *slog.Logger) *LogBus {
	return &LogBus{logger: logger}
}

func (b *LogBus) PublishOrderPlaced(ctx context.Context, orderID string) error {
	b.logger.DebugContext(ctx, "event::"+TypeOrderPlaced, "order_id", orderID)
	return nil
}

func (b *LogBus) PublishPaymentApplied(ctx context.Context, orderID string, event string) error {
	b.logger.DebugContext(ctx, "event::"+TypePaymentApplied, "order_id", orderID, "payment_event", event)
	return nil
}
