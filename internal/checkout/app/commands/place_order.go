package commands

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/app/inventory"
	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/google/uuid"
)

type PlaceOrderCommand struct {
	Cart         []domain.CartEntry
	Token        string
	SessionToken string
	Shipping     domain.ShippingDetails
	UserID       string
	// Session is cleared and given a fresh token after a successful placement. Optional.
	Session ports.CheckoutSession
}

type PlaceOrderResult struct {
	Order     *domain.Order
	Duplicate bool
	// NextToken replaces the consumed checkout token. Empty on failure.
	NextToken string
}

type PlaceOrderHandler interface {
	Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error)
}

// Reserver claims stock for a batch of lines and runs then in the same unit of work.
type Reserver interface {
	Reserve(ctx context.Context, lines []domain.Reservation, then inventory.FollowUp) error
}

type PlaceOrderCommandHandler struct {
	products ports.ProductRepository
	orders   ports.OrderRepository
	reserver Reserver
	events   ports.EventBus
	capture  ApplyPaymentEventHandler
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

type PlaceOrderOption func(*PlaceOrderCommandHandler)

// WithAutoCapture settles every new order with a synthetic payment.succeeded event.
func WithAutoCapture(settle ApplyPaymentEventHandler) PlaceOrderOption {
	return func(h *PlaceOrderCommandHandler) { h.capture = settle }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) PlaceOrderOption {
	return func(h *PlaceOrderCommandHandler) { h.now = now }
}

func NewPlaceOrderCommandHandler(
	products ports.ProductRepository,
	orders ports.OrderRepository,
	reserver Reserver,
	events ports.EventBus,
	logger *slog.Logger,
	opts ...PlaceOrderOption,
) *PlaceOrderCommandHandler {
	h := &PlaceOrderCommandHandler{
		products: products,
		orders:   orders,
		reserver: reserver,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error) {
	if len(cmd.Cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	if !tokensMatch(cmd.Token, cmd.SessionToken) {
		return nil, domain.ErrInvalidToken
	}

	existing, err := h.orders.GetByIdempotencyKey(ctx, cmd.Token)
	switch {
	case err == nil:
		return h.finalize(ctx, cmd, existing, true)
	case !errors.Is(err, ports.ErrNotFound):
		return nil, fmt.Errorf("%w: lookup idempotency key: %w", domain.ErrPersistence, err)
	}

	if err := cmd.Shipping.Validate(); err != nil {
		return nil, err
	}

	products, err := h.products.GetByIDs(ctx, domain.ProductIDs(cmd.Cart))
	if err != nil {
		return nil, fmt.Errorf("%w: load products: %w", domain.ErrPersistence, err)
	}

	draft, err := domain.BuildDraft(cmd.Cart, products)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(domain.OrderParams{
		ID:             h.newID(),
		UserID:         cmd.UserID,
		IdempotencyKey: cmd.Token,
		Shipping:       cmd.Shipping,
		Draft:          draft,
		Now:            h.now(),
	})

	err = h.reserver.Reserve(ctx, draft.Reservations(), func(ctx context.Context, stores ports.Stores) error {
		return stores.Orders.Create(ctx, order)
	})
	if err != nil {
		return h.placementFailed(ctx, cmd, err)
	}

	h.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"lines", len(order.Items),
		"total", order.TotalAmount.StringFixed(2),
	)

	if h.events != nil {
		if err := h.events.PublishOrderPlaced(ctx, order.ID); err != nil {
			h.logger.WarnContext(ctx, "failed to publish order.placed", "order_id", order.ID, "error", err)
		}
	}

	placed := &order
	if h.capture != nil {
		placed = h.autoCapture(ctx, placed)
	}

	return h.finalize(ctx, cmd, placed, false)
}

// placementFailed maps a reservation error. A lost race on the idempotency key means a
// concurrent submission with the same token won; its order is the result.
func (h *PlaceOrderCommandHandler) placementFailed(ctx context.Context, cmd PlaceOrderCommand, err error) (*PlaceOrderResult, error) {
	switch {
	case errors.Is(err, ports.ErrDuplicateIdempotencyKey):
		winner, lookupErr := h.orders.GetByIdempotencyKey(ctx, cmd.Token)
		if lookupErr != nil {
			return nil, fmt.Errorf("%w: load concurrent order: %w", domain.ErrPersistence, lookupErr)
		}
		return h.finalize(ctx, cmd, winner, true)
	case errors.Is(err, domain.ErrOutOfStock), errors.Is(err, domain.ErrValidationFailed):
		return nil, err
	case errors.Is(err, domain.ErrPersistence):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
}

func (h *PlaceOrderCommandHandler) autoCapture(ctx context.Context, order *domain.Order) *domain.Order {
	result, err := h.capture.Handle(ctx, ApplyPaymentEventCommand{
		OrderID:       order.ID,
		Event:         string(domain.EventPaymentSucceeded),
		TransactionID: "demo_" + h.newID(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "auto-capture failed, order left pending", "order_id", order.ID, "error", err)
		return order
	}
	return result.Order
}

// finalize rotates the checkout token so the consumed one cannot start a second order.
func (h *PlaceOrderCommandHandler) finalize(ctx context.Context, cmd PlaceOrderCommand, order *domain.Order, duplicate bool) (*PlaceOrderResult, error) {
	next := h.newID()
	if cmd.Session != nil {
		if err := cmd.Session.Complete(ctx, order.ID, next); err != nil {
			h.logger.WarnContext(ctx, "failed to reset checkout session", "order_id", order.ID, "error", err)
			next = ""
		}
	}
	return &PlaceOrderResult{Order: order, Duplicate: duplicate, NextToken: next}, nil
}

func tokensMatch(submitted, expected string) bool {
	if submitted == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) == 1
}
