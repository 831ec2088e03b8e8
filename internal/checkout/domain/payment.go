package domain

import (
	"fmt"
	"time"
)

// PaymentEvent is a provider lifecycle notification.
type PaymentEvent string

const (
	EventPaymentSucceeded PaymentEvent = "payment.succeeded"
	EventPaymentFailed    PaymentEvent = "payment.failed"
	EventPaymentRefunded  PaymentEvent = "payment.refunded"
)

// ParsePaymentEvent accepts the wire names and their bare forms ("succeeded").
func ParsePaymentEvent(s string) (PaymentEvent, error) {
	switch s {
	case string(EventPaymentSucceeded), "succeeded":
		return EventPaymentSucceeded, nil
	case string(EventPaymentFailed), "failed":
		return EventPaymentFailed, nil
	case string(EventPaymentRefunded), "refunded":
		return EventPaymentRefunded, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
	}
}

// ApplyPayment folds event into the order. It reports false when the event was already
// applied and nothing changed.
//
// The payment sub-record always follows the event. The order status only moves when the
// lifecycle permits it: a shipped or delivered order keeps its status, and a cancelled
// order is not revived by a late success or failure.
func (o *Order) ApplyPayment(event PaymentEvent, transactionID string, now time.Time) (bool, error) {
	var target PaymentStatus
	switch event {
	case EventPaymentSucceeded:
		target = PaymentSucceeded
	case EventPaymentFailed:
		target = PaymentFailed
	case EventPaymentRefunded:
		target = PaymentRefunded
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	if o.Payment.Status == target {
		return false, nil
	}

	if o.Payment.Provider == "" {
		o.Payment.Provider = DemoPaymentProvider
	}
	o.Payment.Status = target
	if transactionID != "" {
		o.Payment.TransactionID = transactionID
	}

	now = now.UTC()
	frozen := o.IsShippedOrLater()

	switch event {
	case EventPaymentSucceeded:
		if !frozen && o.Status != StatusCancelled {
			o.Status = StatusPaid
		}
		if o.PaidAt == nil {
			paidAt := now
			o.PaidAt = &paidAt
		}
	case EventPaymentFailed:
		if !frozen && o.Status != StatusCancelled {
			o.Status = StatusPending
		}
	case EventPaymentRefunded:
		if !frozen {
			o.Status = StatusCancelled
		}
	}

	o.UpdatedAt = now
	return true, nil
}
