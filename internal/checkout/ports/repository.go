package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/storefront/internal/checkout/domain"
)

// ProductRepository exposes catalog reads and admin writes.
type ProductRepository interface {
	Save(ctx context.Context, product domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	// Delete removes a product, failing with ErrNotFound when it does not exist.
	Delete(ctx context.Context, id string) error
}

// StockStore is the per-product conditional counter behind inventory reservations.
type StockStore interface {
	// Decrement subtracts quantity only if stock >= quantity and the product is
	// available, as one atomic step. It reports false when the condition did not hold.
	Decrement(ctx context.Context, productID string, quantity int) (bool, error)
	Increment(ctx context.Context, productID string, quantity int) error
}

// OrderRepository exposes order persistence required by the application layer.
type OrderRepository interface {
	// Create fails with ErrDuplicateIdempotencyKey when another order holds the key.
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	// Update persists status and payment fields if the stored version equals
	// expectedVersion, bumping it by one.
	Update(ctx context.Context, order domain.Order, expectedVersion int) error
}

// Stores groups the repositories that take part in a unit of work.
type Stores struct {
	Stock  StockStore
	Orders OrderRepository
}

// Transactor runs fn inside one atomic unit of work. Returning an error from fn
// discards every write made through the provided stores.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// ListFilter narrows order list queries by status and pagination.
type ListFilter struct {
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category      string
	AvailableOnly bool
}

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

	// ErrConcurrentUpdate is returned when an update lost a version race.
	ErrConcurrentUpdate = errors.New("order was modified concurrently")
)
