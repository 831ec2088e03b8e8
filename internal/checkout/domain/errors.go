package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidToken      = errors.New("checkout token is invalid")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrValidationFailed  = errors.New("validation failed")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrUnknownEvent      = errors.New("unknown payment event")
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrPersistence marks store failures: unreachable backend or an aborted transaction.
	ErrPersistence = errors.New("persistence failure")
)

// OutOfStockError names the product that could not be reserved.
type OutOfStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %q requested %d, available %d", ErrOutOfStock, e.Name, e.Requested, e.Available)
	}
	return fmt.Sprintf("%s: product %s requested %d", ErrOutOfStock, e.ProductID, e.Requested)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}
