package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/metrics"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservablePlaceOrderHandler struct {
	handler  PlaceOrderHandler
	logger   *slog.Logger
	metrics  *metrics.Metrics
	strategy string
}

func NewObservablePlaceOrderHandler(handler PlaceOrderHandler, logger *slog.Logger, metrics *metrics.Metrics, strategy string) *ObservablePlaceOrderHandler {
	return &ObservablePlaceOrderHandler{
		handler:  handler,
		logger:   logger,
		metrics:  metrics,
		strategy: strategy,
	}
}

func (o *ObservablePlaceOrderHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "PlaceOrderCommand.Handle")
	defer span.End()

	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() {
		o.metrics.RecordCheckout(ctx, outcome, time.Since(start).Seconds())
	}()

	telemetry.AddSpanAttributes(span,
		attribute.Int("cart.lines", len(cmd.Cart)),
		attribute.String("inventory.strategy", o.strategy),
	)

	result, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		if isRejection(err) {
			outcome = metrics.OutcomeRejected
			if errors.Is(err, domain.ErrOutOfStock) {
				o.metrics.RecordReservationFailure(ctx, o.strategy)
			}
			telemetry.AddSpanEvent(span, "checkout.rejected", attribute.String("reason", err.Error()))
			o.logger.InfoContext(ctx, "checkout rejected", "reason", err.Error())
			return nil, err
		}
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to place order", "error", err)
		return nil, err
	}

	outcome = metrics.OutcomePlaced
	if result.Duplicate {
		outcome = metrics.OutcomeDuplicate
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", result.Order.ID),
		attribute.String("order.status", string(result.Order.Status)),
		attribute.Bool("order.duplicate", result.Duplicate),
	)

	o.logger.InfoContext(ctx, "checkout completed",
		"order_id", result.Order.ID,
		"duplicate", result.Duplicate,
	)

	telemetry.SetSpanSuccess(span)
	return result, nil
}

// isRejection reports whether err is a business-rule outcome rather than a fault.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrEmptyCart) ||
		errors.Is(err, domain.ErrInvalidToken) ||
		errors.Is(err, domain.ErrOutOfStock) ||
		errors.Is(err, domain.ErrValidationFailed)
}
