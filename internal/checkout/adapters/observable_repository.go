package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// expected marks outcomes that are part of normal control flow, not span errors.
func expected(err error) bool {
	return errors.Is(err, ports.ErrNotFound) ||
		errors.Is(err, ports.ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ports.ErrConcurrentUpdate) ||
		errors.Is(err, domain.ErrOutOfStock)
}

func observe(ctx context.Context, metrics *database.Metrics, spanName, operation string, fn func(ctx context.Context, span trace.Span) error, attrs ...attribute.KeyValue) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span, attribute.String("operation", operation))
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	err := fn(ctx, span)
	duration := time.Since(start).Seconds()

	metrics.RecordQuery(ctx, operation, duration)

	if err != nil {
		if expected(err) {
			telemetry.AddSpanEvent(span, err.Error())
		} else {
			telemetry.RecordSpanError(span, err)
		}
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

type ObservableOrderRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableOrderRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableOrderRepository {
	return &ObservableOrderRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableOrderRepository) Create(ctx context.Context, order domain.Order) error {
	return observe(ctx, r.metrics, "OrderRepository.Create", "create_order", func(ctx context.Context, _ trace.Span) error {
		return r.repo.Create(ctx, order)
	}, attribute.String("order.id", order.ID))
}

func (r *ObservableOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order *domain.Order
	err := observe(ctx, r.metrics, "OrderRepository.GetByID", "get_order_by_id", func(ctx context.Context, _ trace.Span) error {
		var err error
		order, err = r.repo.GetByID(ctx, id)
		return err
	}, attribute.String("order.id", id))
	return order, err
}

func (r *ObservableOrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var order *domain.Order
	err := observe(ctx, r.metrics, "OrderRepository.GetByIdempotencyKey", "get_order_by_idempotency_key", func(ctx context.Context, _ trace.Span) error {
		var err error
		order, err = r.repo.GetByIdempotencyKey(ctx, key)
		return err
	})
	return order, err
}

func (r *ObservableOrderRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	attrs := []attribute.KeyValue{
		attribute.Int("page", filter.Page),
		attribute.Int("page_size", filter.PageSize),
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}

	var orders []domain.Order
	err := observe(ctx, r.metrics, "OrderRepository.List", "list_orders", func(ctx context.Context, span trace.Span) error {
		var err error
		orders, err = r.repo.List(ctx, filter)
		telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(orders)))
		return err
	}, attrs...)
	return orders, err
}

func (r *ObservableOrderRepository) Update(ctx context.Context, order domain.Order, expectedVersion int) error {
	return observe(ctx, r.metrics, "OrderRepository.Update", "update_order", func(ctx context.Context, _ trace.Span) error {
		return r.repo.Update(ctx, order, expectedVersion)
	},
		attribute.String("order.id", order.ID),
		attribute.String("order.new_status", string(order.Status)),
		attribute.Int("order.expected_version", expectedVersion),
	)
}

type ObservableStockStore struct {
	store   ports.StockStore
	metrics *database.Metrics
}

func NewObservableStockStore(store ports.StockStore, metrics *database.Metrics) *ObservableStockStore {
	return &ObservableStockStore{
		store:   store,
		metrics: metrics,
	}
}

func (s *ObservableStockStore) Decrement(ctx context.Context, productID string, quantity int) (bool, error) {
	var ok bool
	err := observe(ctx, s.metrics, "StockStore.Decrement", "decrement_stock", func(ctx context.Context, span trace.Span) error {
		var err error
		ok, err = s.store.Decrement(ctx, productID, quantity)
		telemetry.AddSpanAttributes(span, attribute.Bool("stock.reserved", ok))
		return err
	},
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
	)
	return ok, err
}

func (s *ObservableStockStore) Increment(ctx context.Context, productID string, quantity int) error {
	return observe(ctx, s.metrics, "StockStore.Increment", "increment_stock", func(ctx context.Context, _ trace.Span) error {
		return s.store.Increment(ctx, productID, quantity)
	},
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
	)
}

// ObservableTransactor traces the unit of work and the stores used inside it.
type ObservableTransactor struct {
	tx      ports.Transactor
	metrics *database.Metrics
}

func NewObservableTransactor(tx ports.Transactor, metrics *database.Metrics) *ObservableTransactor {
	return &ObservableTransactor{
		tx:      tx,
		metrics: metrics,
	}
}

func (t *ObservableTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, stores ports.Stores) error) error {
	return observe(ctx, t.metrics, "Transactor.WithinTx", "transaction", func(ctx context.Context, _ trace.Span) error {
		return t.tx.WithinTx(ctx, func(ctx context.Context, stores ports.Stores) error {
			return fn(ctx, ObserveStores(stores, t.metrics))
		})
	})
}

// ObserveStores wraps every store in stores with tracing and query metrics.
func ObserveStores(stores ports.Stores, metrics *database.Metrics) ports.Stores {
	return ports.Stores{
		Stock:  NewObservableStockStore(stores.Stock, metrics),
		Orders: NewObservableOrderRepository(stores.Orders, metrics),
	}
}
