//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/adapters/postgres"
	"github.com/dejobratic/storefront/internal/checkout/app/inventory"
	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("storefront"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.RunMigrations(connStr, filepath.Join(findProjectRoot(t), "migrations")); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr, database.WithMaxConns(20))
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, id string, stock int) {
	t.Helper()
	err := postgres.NewProductRepository(pool).Save(context.Background(), domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Category: "tools",
		Price:    decimal.RequireFromString("7.25"),
		Stock:    stock,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func stockOf(t *testing.T, pool *pgxpool.Pool, id string) int {
	t.Helper()
	p, err := postgres.NewProductRepository(pool).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get product %s: %v", id, err)
	}
	return p.Stock
}

func newOrder(id, key string) domain.Order {
	return domain.NewOrder(domain.OrderParams{
		ID:             id,
		IdempotencyKey: key,
		Shipping: domain.ShippingDetails{
			Name: "Ada", Email: "ada@example.com", Phone: "555", Address: "1 Loop",
			City: "Springfield", State: "IL", Zip: "62701", Country: "US",
		},
		Draft: domain.Draft{
			Lines: []domain.ResolvedLine{{LineItem: domain.LineItem{
				ProductID: "p1", Name: "Product p1", UnitPrice: decimal.RequireFromString("7.25"), Quantity: 3,
			}}},
			Total: decimal.RequireFromString("21.75"),
		},
		Now: time.Now(),
	})
}

func TestProductRepository(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewProductRepository(pool)
	ctx := context.Background()

	seedProduct(t, pool, "p1", 2)
	seedProduct(t, pool, "p2", 0)

	t.Run("derives availability from stock", func(t *testing.T) {
		p, err := repo.GetByID(ctx, "p2")
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if p.Available {
			t.Error("expected product with no stock to be unavailable")
		}
		if !p.Price.Equal(decimal.RequireFromString("7.25")) {
			t.Errorf("expected price 7.25, got %s", p.Price)
		}
	})

	t.Run("lists available only", func(t *testing.T) {
		products, err := repo.List(ctx, ports.ProductFilter{AvailableOnly: true})
		if err != nil {
			t.Fatalf("List() failed: %v", err)
		}
		if len(products) != 1 || products[0].ID != "p1" {
			t.Errorf("expected only p1, got %+v", products)
		}
	})

	t.Run("GetByIDs skips missing ids", func(t *testing.T) {
		found, err := repo.GetByIDs(ctx, []string{"p1", "nope"})
		if err != nil {
			t.Fatalf("GetByIDs() failed: %v", err)
		}
		if len(found) != 1 {
			t.Errorf("expected 1 product, got %d", len(found))
		}
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nope")
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete removes the row once", func(t *testing.T) {
		seedProduct(t, pool, "p3", 1)

		if err := repo.Delete(ctx, "p3"); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if _, err := repo.GetByID(ctx, "p3"); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete(ctx, "p3"); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})
}

func TestStockStore(t *testing.T) {
	pool := setupTestDB(t)
	stock := postgres.NewStockStore(pool)
	ctx := context.Background()
	seedProduct(t, pool, "p1", 10)

	t.Run("refuses to go below zero", func(t *testing.T) {
		ok, err := stock.Decrement(ctx, "p1", 11)
		if err != nil || ok {
			t.Fatalf("expected refused decrement, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("concurrent decrements never oversell", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			granted int
		)
		for range 30 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := stock.Decrement(ctx, "p1", 1)
				if err != nil {
					t.Errorf("Decrement() failed: %v", err)
					return
				}
				if ok {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if granted != 10 {
			t.Errorf("expected 10 grants, got %d", granted)
		}
		if got := stockOf(t, pool, "p1"); got != 0 {
			t.Errorf("expected stock 0, got %d", got)
		}
	})

	t.Run("increment of unknown product", func(t *testing.T) {
		if err := stock.Increment(ctx, "nope", 1); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestOrderRepository(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewOrderRepository(pool)
	ctx := context.Background()

	order := newOrder("o1", "key-1")
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	t.Run("round trips items and shipping", func(t *testing.T) {
		got, err := repo.GetByIdempotencyKey(ctx, "key-1")
		if err != nil {
			t.Fatalf("GetByIdempotencyKey() failed: %v", err)
		}
		if got.ID != "o1" || len(got.Items) != 1 || got.Shipping.City != "Springfield" {
			t.Errorf("unexpected order: %+v", got)
		}
		if !got.TotalAmount.Equal(decimal.RequireFromString("21.75")) {
			t.Errorf("expected total 21.75, got %s", got.TotalAmount)
		}
	})

	t.Run("duplicate idempotency key", func(t *testing.T) {
		err := repo.Create(ctx, newOrder("o2", "key-1"))
		if !errors.Is(err, ports.ErrDuplicateIdempotencyKey) {
			t.Errorf("expected ErrDuplicateIdempotencyKey, got %v", err)
		}
	})

	t.Run("versioned update", func(t *testing.T) {
		current, err := repo.GetByID(ctx, "o1")
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if _, err := current.ApplyPayment(domain.EventPaymentSucceeded, "tx_1", time.Now()); err != nil {
			t.Fatalf("ApplyPayment() failed: %v", err)
		}

		if err := repo.Update(ctx, *current, current.Version); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if err := repo.Update(ctx, *current, current.Version); !errors.Is(err, ports.ErrConcurrentUpdate) {
			t.Errorf("expected ErrConcurrentUpdate on stale version, got %v", err)
		}

		reloaded, _ := repo.GetByID(ctx, "o1")
		if reloaded.Status != domain.StatusPaid || reloaded.PaidAt == nil || reloaded.Version != 2 {
			t.Errorf("unexpected order after update: %+v", reloaded)
		}
	})

	t.Run("update of unknown order", func(t *testing.T) {
		err := repo.Update(ctx, newOrder("ghost", ""), 1)
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list by status", func(t *testing.T) {
		paid := domain.StatusPaid
		orders, err := repo.List(ctx, ports.ListFilter{Status: &paid, Page: 1, PageSize: 10})
		if err != nil {
			t.Fatalf("List() failed: %v", err)
		}
		if len(orders) != 1 {
			t.Errorf("expected 1 paid order, got %d", len(orders))
		}
	})
}

func TestTransactorRollsBack(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	seedProduct(t, pool, "p1", 5)

	boom := errors.New("boom")
	err := postgres.NewTransactor(pool).WithinTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		if _, err := stores.Stock.Decrement(ctx, "p1", 3); err != nil {
			return err
		}
		if err := stores.Orders.Create(ctx, newOrder("o1", "key-1")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if got := stockOf(t, pool, "p1"); got != 5 {
		t.Errorf("expected stock 5 after rollback, got %d", got)
	}
	if _, err := postgres.NewOrderRepository(pool).GetByID(ctx, "o1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected order to be rolled back, got %v", err)
	}
}

func TestLedgers(t *testing.T) {
	ctx := context.Background()

	build := map[string]func(pool *pgxpool.Pool) *inventory.Ledger{
		"transactional": func(pool *pgxpool.Pool) *inventory.Ledger {
			return inventory.NewTransactionalLedger(postgres.NewTransactor(pool), discard)
		},
		"compensating": func(pool *pgxpool.Pool) *inventory.Ledger {
			return inventory.NewCompensatingLedger(ports.Stores{
				Stock:  postgres.NewStockStore(pool),
				Orders: postgres.NewOrderRepository(pool),
			}, discard)
		},
	}

	for name, newLedger := range build {
		t.Run(name, func(t *testing.T) {
			pool := setupTestDB(t)
			seedProduct(t, pool, "p1", 4)
			seedProduct(t, pool, "p2", 1)
			ledger := newLedger(pool)

			err := ledger.Reserve(ctx, []domain.Reservation{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 2}}, nil)
			if !errors.Is(err, domain.ErrOutOfStock) {
				t.Fatalf("expected ErrOutOfStock, got %v", err)
			}
			if got := stockOf(t, pool, "p1"); got != 4 {
				t.Errorf("expected p1 untouched at 4, got %d", got)
			}

			err = ledger.Reserve(ctx, []domain.Reservation{{ProductID: "p1", Quantity: 3}}, func(ctx context.Context, stores ports.Stores) error {
				return stores.Orders.Create(ctx, newOrder("o1", "key-1"))
			})
			if err != nil {
				t.Fatalf("Reserve() failed: %v", err)
			}
			if got := stockOf(t, pool, "p1"); got != 1 {
				t.Errorf("expected p1=1, got %d", got)
			}

			err = ledger.Reserve(ctx, []domain.Reservation{{ProductID: "p1", Quantity: 1}}, func(ctx context.Context, stores ports.Stores) error {
				return stores.Orders.Create(ctx, newOrder("o2", "key-1"))
			})
			if !errors.Is(err, ports.ErrDuplicateIdempotencyKey) {
				t.Fatalf("expected ErrDuplicateIdempotencyKey, got %v", err)
			}
			if got := stockOf(t, pool, "p1"); got != 1 {
				t.Errorf("expected p1 restored to 1, got %d", got)
			}
		})
	}
}
