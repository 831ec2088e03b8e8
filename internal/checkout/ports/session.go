package ports

import "context"

// CheckoutSession is the caller-owned state a successful checkout resets.
type CheckoutSession interface {
	// Complete empties the cart, replaces the checkout token with nextToken and
	// grants the session read access to orderID.
	Complete(ctx context.Context, orderID, nextToken string) error
}
