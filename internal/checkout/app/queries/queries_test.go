package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/adapters/memory"
	"github.com/dejobratic/storefront/internal/checkout/app/queries"
	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/shopspring/decimal"
)

type brokenOrders struct {
	ports.OrderRepository
}

func (brokenOrders) GetByID(context.Context, string) (*domain.Order, error) {
	return nil, errors.New("connection refused")
}

func (brokenOrders) List(context.Context, ports.ListFilter) ([]domain.Order, error) {
	return nil, errors.New("connection refused")
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("returns order by ID", func(t *testing.T) {
		store := memory.NewStore()
		_ = store.Orders().Create(ctx, domain.Order{ID: "order-123", Status: domain.StatusPending, TotalAmount: decimal.RequireFromString("19.99")})
		handler := queries.NewGetOrderQueryHandler(store.Orders())

		order, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "order-123"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !order.TotalAmount.Equal(decimal.RequireFromString("19.99")) {
			t.Errorf("expected total 19.99, got %s", order.TotalAmount)
		}
	})

	t.Run("returns ErrOrderNotFound for unknown ID", func(t *testing.T) {
		handler := queries.NewGetOrderQueryHandler(memory.NewStore().Orders())

		_, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "missing"})
		if !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("returns validation error when ID is blank", func(t *testing.T) {
		handler := queries.NewGetOrderQueryHandler(memory.NewStore().Orders())

		_, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "  "})
		if !errors.Is(err, domain.ErrValidationFailed) {
			t.Errorf("expected ErrValidationFailed, got %v", err)
		}
	})

	t.Run("wraps store failures as persistence errors", func(t *testing.T) {
		handler := queries.NewGetOrderQueryHandler(brokenOrders{})

		_, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "order-123"})
		if !errors.Is(err, domain.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, status := range []domain.OrderStatus{domain.StatusPending, domain.StatusPaid, domain.StatusPaid} {
		_ = store.Orders().Create(ctx, domain.Order{
			ID:        string(rune('a' + i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	handler := queries.NewListOrdersQueryHandler(store.Orders())

	t.Run("filters by status", func(t *testing.T) {
		orders, err := handler.Handle(ctx, queries.ListOrdersQuery{Status: "Paid"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(orders) != 2 {
			t.Errorf("expected 2 paid orders, got %d", len(orders))
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := handler.Handle(ctx, queries.ListOrdersQuery{Status: "Lost"})
		if !errors.Is(err, domain.ErrValidationFailed) {
			t.Errorf("expected ErrValidationFailed, got %v", err)
		}
	})

	t.Run("wraps store failures", func(t *testing.T) {
		_, err := queries.NewListOrdersQueryHandler(brokenOrders{}).Handle(ctx, queries.ListOrdersQuery{})
		if !errors.Is(err, domain.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})
}

func TestProductQueries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, p := range []domain.Product{
		{ID: "p1", Name: "Bone", Category: "dog", Stock: 3},
		{ID: "p2", Name: "Ball", Category: "dog", Stock: 0},
		{ID: "p3", Name: "Fish", Category: "cat", Stock: 1},
	} {
		if err := store.Products().Save(ctx, p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	handler := queries.NewProductQueryHandler(store.Products())

	t.Run("lists available products in a category", func(t *testing.T) {
		products, err := handler.List(ctx, queries.ListProductsQuery{Category: "dog", AvailableOnly: true})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(products) != 1 || products[0].ID != "p1" {
			t.Errorf("expected only p1, got %+v", products)
		}
	})

	t.Run("unknown product is ErrProductNotFound", func(t *testing.T) {
		if _, err := handler.Get(ctx, "nope"); !errors.Is(err, domain.ErrProductNotFound) {
			t.Errorf("expected ErrProductNotFound, got %v", err)
		}
	})
}
