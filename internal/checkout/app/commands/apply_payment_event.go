package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
)

const maxSettlementAttempts = 3

type ApplyPaymentEventCommand struct {
	OrderID       string
	Event         string
	TransactionID string
}

// SettlementResult is the order after the event; Duplicate means nothing changed.
type SettlementResult struct {
	Order     *domain.Order
	Duplicate bool
}

type ApplyPaymentEventHandler interface {
	Handle(ctx context.Context, cmd ApplyPaymentEventCommand) (*SettlementResult, error)
}

type ApplyPaymentEventCommandHandler struct {
	orders ports.OrderRepository
	events ports.EventBus
	logger *slog.Logger
	now    func() time.Time
}

func NewApplyPaymentEventCommandHandler(
	orders ports.OrderRepository,
	events ports.EventBus,
	logger *slog.Logger,
) *ApplyPaymentEventCommandHandler {
	return &ApplyPaymentEventCommandHandler{
		orders: orders,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle resolves the order before the event name, so an unknown order is reported
// as missing whatever the event says.
func (h *ApplyPaymentEventCommandHandler) Handle(ctx context.Context, cmd ApplyPaymentEventCommand) (*SettlementResult, error) {
	for attempt := 1; ; attempt++ {
		order, err := h.orders.GetByID(ctx, cmd.OrderID)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, cmd.OrderID)
			}
			return nil, fmt.Errorf("%w: load order: %w", domain.ErrPersistence, err)
		}

		event, err := domain.ParsePaymentEvent(cmd.Event)
		if err != nil {
			return nil, err
		}

		expected := order.Version
		changed, err := order.ApplyPayment(event, cmd.TransactionID, h.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return &SettlementResult{Order: order, Duplicate: true}, nil
		}

		err = h.orders.Update(ctx, *order, expected)
		if err == nil {
			order.Version = expected + 1
			h.publish(ctx, order.ID, event)
			return &SettlementResult{Order: order}, nil
		}

		switch {
		case errors.Is(err, ports.ErrConcurrentUpdate) && attempt < maxSettlementAttempts:
			h.logger.DebugContext(ctx, "payment event lost version race, retrying",
				"order_id", cmd.OrderID,
				"event", string(event),
				"attempt", attempt,
			)
			continue
		case errors.Is(err, ports.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, cmd.OrderID)
		default:
			return nil, fmt.Errorf("%w: update order: %w", domain.ErrPersistence, err)
		}
	}
}

func (h *ApplyPaymentEventCommandHandler) publish(ctx context.Context, orderID string, event domain.PaymentEvent) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishPaymentApplied(ctx, orderID, string(event)); err != nil {
		h.logger.WarnContext(ctx, "failed to publish payment.applied",
			"order_id", orderID,
			"event", string(event),
			"error", err,
		)
	}
}
