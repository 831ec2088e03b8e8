package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
)

// TransitionOrderCommand is a back-office status change.
type TransitionOrderCommand struct {
	OrderID string
	Action  string
}

type TransitionOrderCommandHandler struct {
	orders ports.OrderRepository
	now    func() time.Time
}

func NewTransitionOrderCommandHandler(orders ports.OrderRepository) *TransitionOrderCommandHandler {
	return &TransitionOrderCommandHandler{
		orders: orders,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle applies the action once against the current version. A concurrent change
// surfaces as ports.ErrConcurrentUpdate so the operator can re-read the order.
func (h *TransitionOrderCommandHandler) Handle(ctx context.Context, cmd TransitionOrderCommand) (*domain.Order, error) {
	action, err := domain.ParseOrderAction(cmd.Action)
	if err != nil {
		return nil, err
	}

	order, err := h.orders.GetByID(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, cmd.OrderID)
		}
		return nil, fmt.Errorf("%w: load order: %w", domain.ErrPersistence, err)
	}

	expected := order.Version
	before := order.Status
	if err := order.Transition(action, h.now()); err != nil {
		return nil, err
	}
	if order.Status == before {
		return order, nil
	}

	if err := h.orders.Update(ctx, *order, expected); err != nil {
		if errors.Is(err, ports.ErrConcurrentUpdate) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: update order: %w", domain.ErrPersistence, err)
	}
	order.Version = expected + 1
	return order, nil
}
