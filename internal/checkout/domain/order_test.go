package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewOrder(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	order := NewOrder(OrderParams{
		ID:             "o1",
		IdempotencyKey: "token",
		Shipping:       ShippingDetails{Name: "Ada", Email: "ada@example.com"},
		Draft:          Draft{Lines: []ResolvedLine{{LineItem: LineItem{ProductID: "a", Quantity: 1}}}},
		Now:            now,
	})

	if order.Status != StatusPending {
		t.Errorf("expected status %s, got %s", StatusPending, order.Status)
	}
	if order.Payment != (Payment{Provider: DemoPaymentProvider, Status: PaymentPending}) {
		t.Errorf("unexpected payment %+v", order.Payment)
	}
	if order.IdempotencyKey != "token" {
		t.Errorf("expected idempotency key to be the token, got %q", order.IdempotencyKey)
	}
	if order.Customer.Email != "ada@example.com" {
		t.Errorf("expected customer email from shipping, got %q", order.Customer.Email)
	}
	if order.Version != 1 {
		t.Errorf("expected version 1, got %d", order.Version)
	}
}

func TestTransition(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		from    OrderStatus
		action  OrderAction
		want    OrderStatus
		wantErr bool
	}{
		{"confirm pending", StatusPending, ActionConfirm, StatusConfirmed, false},
		{"confirm paid keeps paid", StatusPaid, ActionConfirm, StatusPaid, false},
		{"ship confirmed", StatusConfirmed, ActionShip, StatusShipped, false},
		{"ship paid", StatusPaid, ActionShip, StatusShipped, false},
		{"deliver shipped", StatusShipped, ActionDeliver, StatusDelivered, false},
		{"cancel paid", StatusPaid, ActionCancel, StatusCancelled, false},
		{"cannot ship pending", StatusPending, ActionShip, StatusPending, true},
		{"cannot cancel shipped", StatusShipped, ActionCancel, StatusShipped, true},
		{"cannot deliver cancelled", StatusCancelled, ActionDeliver, StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := Order{Status: tt.from}
			err := order.Transition(tt.action, now)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if order.Status != tt.want {
				t.Errorf("expected status %s, got %s", tt.want, order.Status)
			}
		})
	}

	t.Run("rejects unknown actions", func(t *testing.T) {
		if _, err := ParseOrderAction("refund"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})
}
