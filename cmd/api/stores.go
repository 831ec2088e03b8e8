package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dejobratic/storefront/internal/checkout/adapters"
	"github.com/dejobratic/storefront/internal/checkout/adapters/memory"
	"github.com/dejobratic/storefront/internal/checkout/adapters/postgres"
	"github.com/dejobratic/storefront/internal/checkout/app/inventory"
	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/dejobratic/storefront/internal/config"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/events"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// stores is the backend the checkout service runs on, wrapped in the observable
// decorators.
type stores struct {
	products ports.ProductRepository
	orders   ports.OrderRepository
	ledger   *inventory.Ledger
	events   ports.EventBus
	ready    func(ctx context.Context) error
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, meter metric.Meter, logger *slog.Logger) (*stores, error) {
	strategy, err := inventory.ParseStrategy(cfg.Checkout.InventoryStrategy)
	if err != nil {
		return nil, err
	}

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create database metrics: %w", err)
	}
	eventMetrics, err := events.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create event metrics: %w", err)
	}

	var (
		products ports.ProductRepository
		base     ports.Stores
		tx       ports.Transactor
		st       = &stores{
			events: adapters.NewObservableEventBus(events.NewLogBus(logger), eventMetrics),
			ready:  func(context.Context) error { return nil },
			close:  func() {},
		}
	)

	switch cfg.Database.StoreBackend {
	case config.BackendMemory:
		mem := memory.NewStore()
		if err := seedCatalog(ctx, mem.Products()); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		products, base, tx = mem.Products(), mem.Stores(), mem
		logger.Info("using in-memory store with demo catalog")

	default:
		if cfg.Database.AutoMigrate {
			logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
			if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}

		pool, err := database.NewPool(ctx, cfg.Database.URL, database.WithMaxConns(cfg.Database.MaxConns))
		if err != nil {
			return nil, fmt.Errorf("create database pool: %w", err)
		}
		products = postgres.NewProductRepository(pool)
		base = ports.Stores{Stock: postgres.NewStockStore(pool), Orders: postgres.NewOrderRepository(pool)}
		tx = postgres.NewTransactor(pool)
		st.ready = func(ctx context.Context) error { return database.CheckHealth(ctx, pool) }
		st.close = pool.Close
	}

	observed := adapters.ObserveStores(base, dbMetrics)
	st.products = products
	st.orders = observed.Orders

	if strategy == inventory.StrategyTransactional {
		st.ledger = inventory.NewTransactionalLedger(adapters.NewObservableTransactor(tx, dbMetrics), logger)
	} else {
		st.ledger = inventory.NewCompensatingLedger(observed, logger)
	}
	return st, nil
}

func seedCatalog(ctx context.Context, products ports.ProductRepository) error {
	catalog := []domain.Product{
		{ID: "tee-classic", Name: "Classic Tee", Category: "apparel", Price: decimal.RequireFromString("19.99"), Stock: 25},
		{ID: "mug-enamel", Name: "Enamel Mug", Category: "kitchen", Price: decimal.RequireFromString("12.50"), Stock: 40},
		{ID: "cap-canvas", Name: "Canvas Cap", Category: "apparel", Price: decimal.RequireFromString("15.00"), Stock: 3},
		{ID: "poster-limited", Name: "Limited Poster", Category: "prints", Price: decimal.RequireFromString("30.00"), Stock: 1},
	}
	for _, p := range catalog {
		if err := products.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
