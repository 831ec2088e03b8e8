package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus captures the lifecycle of an order in the system.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusConfirmed OrderStatus = "Confirmed"
	StatusPaid      OrderStatus = "Paid"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
)

// PaymentStatus is the state of the payment sub-record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

const DemoPaymentProvider = "demo"

// LineItem is a frozen snapshot of a purchased product.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is UnitPrice × Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Payment records the provider-side state of an order's payment.
type Payment struct {
	Provider      string        `json:"provider"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
}

// Customer identifies who placed the order.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Order represents a placed checkout. Items and TotalAmount never change after creation.
type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id,omitempty"`
	IdempotencyKey string          `json:"-"`
	Customer       Customer        `json:"customer"`
	Shipping       ShippingDetails `json:"shipping"`
	Items          []LineItem      `json:"items"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         OrderStatus     `json:"status"`
	Payment        Payment         `json:"payment"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderParams carries everything NewOrder needs.
type OrderParams struct {
	ID             string
	UserID         string
	IdempotencyKey string
	Shipping       ShippingDetails
	Draft          Draft
	Now            time.Time
}

// NewOrder builds a pending order from a resolved draft.
func NewOrder(p OrderParams) Order {
	items := make([]LineItem, len(p.Draft.Lines))
	for i, line := range p.Draft.Lines {
		items[i] = line.LineItem
	}
	now := p.Now.UTC()
	return Order{
		ID:             p.ID,
		UserID:         p.UserID,
		IdempotencyKey: p.IdempotencyKey,
		Customer:       Customer{Name: p.Shipping.Name, Email: p.Shipping.Email},
		Shipping:       p.Shipping,
		Items:          items,
		TotalAmount:    p.Draft.Total,
		Status:         StatusPending,
		Payment:        Payment{Provider: DemoPaymentProvider, Status: PaymentPending},
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy so stores can hand out orders without aliasing.
func (o Order) Clone() Order {
	out := o
	out.Items = append([]LineItem(nil), o.Items...)
	if o.PaidAt != nil {
		paidAt := *o.PaidAt
		out.PaidAt = &paidAt
	}
	return out
}

// IsShippedOrLater reports whether the goods have left the warehouse.
func (o Order) IsShippedOrLater() bool {
	return o.Status == StatusShipped || o.Status == StatusDelivered
}

// OrderAction is an admin back-office transition.
type OrderAction string

const (
	ActionConfirm OrderAction = "confirm"
	ActionShip    OrderAction = "ship"
	ActionDeliver OrderAction = "deliver"
	ActionCancel  OrderAction = "cancel"
)

var actionRules = map[OrderAction]struct {
	target OrderStatus
	from   []OrderStatus
}{
	ActionConfirm: {StatusConfirmed, []OrderStatus{StatusPending, StatusPaid}},
	ActionShip:    {StatusShipped, []OrderStatus{StatusConfirmed, StatusPaid}},
	ActionDeliver: {StatusDelivered, []OrderStatus{StatusShipped}},
	ActionCancel:  {StatusCancelled, []OrderStatus{StatusPending, StatusConfirmed, StatusPaid}},
}

// ParseOrderAction maps a route segment to an OrderAction.
func ParseOrderAction(s string) (OrderAction, error) {
	action := OrderAction(s)
	if _, ok := actionRules[action]; !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, s)
	}
	return action, nil
}

// Transition applies an admin action. Confirm keeps a Paid order Paid.
func (o *Order) Transition(action OrderAction, now time.Time) error {
	rule, ok := actionRules[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	allowed := false
	for _, from := range rule.from {
		if o.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: cannot %s order in status %s", ErrInvalidTransition, action, o.Status)
	}
	if action == ActionConfirm && o.Status == StatusPaid {
		return nil
	}
	o.Status = rule.target
	o.UpdatedAt = now.UTC()
	return nil
}
