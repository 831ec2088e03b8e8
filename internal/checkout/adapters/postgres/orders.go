package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	orderColumns = `id, user_id, idempotency_key, customer_name, customer_email, shipping, items,
		total_cents, status, payment_provider, payment_status, payment_transaction_id,
		paid_at, version, created_at, updated_at`

	idempotencyKeyConstraint = "orders_idempotency_key_key"
)

type OrderRepository struct {
	db querier
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: pool}
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	shipping, err := json.Marshal(order.Shipping)
	if err != nil {
		return fmt.Errorf("encode shipping: %w", err)
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = r.db.Exec(ctx, query,
		order.ID,
		nullable(order.UserID),
		nullable(order.IdempotencyKey),
		order.Customer.Name,
		order.Customer.Email,
		shipping,
		items,
		toCents(order.TotalAmount),
		order.Status,
		order.Payment.Provider,
		order.Payment.Status,
		nullable(order.Payment.TransactionID),
		order.PaidAt,
		order.Version,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, idempotencyKeyConstraint) {
			return ports.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = $1`
	return r.getOne(ctx, query, key)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	return &order, nil
}

func (r *OrderRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var statusFilter *string
	if filter.Status != nil {
		s := string(*filter.Status)
		statusFilter = &s
	}

	offset := (page - 1) * pageSize

	rows, err := r.db.Query(ctx, query, statusFilter, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order, expectedVersion int) error {
	query := `
		UPDATE orders
		SET status = $1,
			payment_provider = $2,
			payment_status = $3,
			payment_transaction_id = $4,
			paid_at = COALESCE(paid_at, $5),
			updated_at = $6,
			version = version + 1
		WHERE id = $7 AND version = $8
	`

	result, err := r.db.Exec(ctx, query,
		order.Status,
		order.Payment.Provider,
		order.Payment.Status,
		nullable(order.Payment.TransactionID),
		order.PaidAt,
		order.UpdatedAt,
		order.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return ports.ErrNotFound
		}
		return ports.ErrConcurrentUpdate
	}

	return nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		order          domain.Order
		userID         *string
		idempotencyKey *string
		transactionID  *string
		shipping       []byte
		items          []byte
		totalCents     int64
		paidAt         *time.Time
	)

	err := row.Scan(
		&order.ID,
		&userID,
		&idempotencyKey,
		&order.Customer.Name,
		&order.Customer.Email,
		&shipping,
		&items,
		&totalCents,
		&order.Status,
		&order.Payment.Provider,
		&order.Payment.Status,
		&transactionID,
		&paidAt,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	if err := json.Unmarshal(shipping, &order.Shipping); err != nil {
		return domain.Order{}, fmt.Errorf("decode shipping: %w", err)
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return domain.Order{}, fmt.Errorf("decode items: %w", err)
	}

	order.UserID = deref(userID)
	order.IdempotencyKey = deref(idempotencyKey)
	order.Payment.TransactionID = deref(transactionID)
	order.TotalAmount = fromCents(totalCents)
	if paidAt != nil {
		utc := paidAt.UTC()
		order.PaidAt = &utc
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()

	return order, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
