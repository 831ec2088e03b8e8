package postgres

import (
	"context"
	"fmt"

	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockStore applies conditional stock updates. The products.available column is
// generated from stock and disabled, so it is recomputed by every update.
type StockStore struct {
	db querier
}

func NewStockStore(pool *pgxpool.Pool) *StockStore {
	return &StockStore{db: pool}
}

func (s *StockStore) Decrement(ctx context.Context, productID string, quantity int) (bool, error) {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND available AND stock >= $2
	`

	result, err := s.db.Exec(ctx, query, productID, quantity)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (s *StockStore) Increment(ctx context.Context, productID string, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1
	`

	result, err := s.db.Exec(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}
