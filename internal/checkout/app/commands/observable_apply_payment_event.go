package commands

import (
	"context"
	"log/slog"

	"github.com/dejobratic/storefront/internal/checkout/metrics"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableApplyPaymentEventHandler struct {
	handler ApplyPaymentEventHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableApplyPaymentEventHandler(handler ApplyPaymentEventHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableApplyPaymentEventHandler {
	return &ObservableApplyPaymentEventHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableApplyPaymentEventHandler) Handle(ctx context.Context, cmd ApplyPaymentEventCommand) (*SettlementResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ApplyPaymentEventCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", cmd.OrderID),
		attribute.String("payment.event", cmd.Event),
	)

	result, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		o.metrics.RecordPaymentEvent(ctx, cmd.Event, "error")
		telemetry.RecordSpanError(span, err)
		o.logger.WarnContext(ctx, "payment event rejected",
			"order_id", cmd.OrderID,
			"event", cmd.Event,
			"error", err,
		)
		return nil, err
	}

	status := "applied"
	if result.Duplicate {
		status = "duplicate"
	}
	o.metrics.RecordPaymentEvent(ctx, cmd.Event, status)

	telemetry.AddSpanAttributes(span,
		attribute.String("order.status", string(result.Order.Status)),
		attribute.String("payment.status", string(result.Order.Payment.Status)),
		attribute.Bool("payment.duplicate", result.Duplicate),
	)

	o.logger.InfoContext(ctx, "payment event processed",
		"order_id", cmd.OrderID,
		"event", cmd.Event,
		"order_status", string(result.Order.Status),
		"duplicate", result.Duplicate,
	)

	telemetry.SetSpanSuccess(span)
	return result, nil
}
