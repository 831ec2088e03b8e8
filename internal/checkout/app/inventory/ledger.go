package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
)

// Strategy selects how a multi-line reservation is made atomic.
type Strategy string

const (
	// StrategyTransactional runs every decrement and the follow-up write in one
	// store transaction.
	StrategyTransactional Strategy = "transactional"
	// StrategyCompensating applies each decrement as its own atomic update and
	// increments them back when a later step fails.
	StrategyCompensating Strategy = "compensating"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyTransactional, StrategyCompensating:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown inventory strategy %q", s)
	}
}

// FollowUp runs after all lines are reserved, inside the same unit of work.
type FollowUp func(ctx context.Context, stores ports.Stores) error

// Ledger reserves stock for a batch of lines with all-or-nothing semantics.
type Ledger struct {
	strategy Strategy
	tx       ports.Transactor
	stores   ports.Stores
	logger   *slog.Logger
}

// NewTransactionalLedger reserves through tx.
func NewTransactionalLedger(tx ports.Transactor, logger *slog.Logger) *Ledger {
	return &Ledger{strategy: StrategyTransactional, tx: tx, logger: logger}
}

// NewCompensatingLedger reserves directly against stores and undoes partial work.
func NewCompensatingLedger(stores ports.Stores, logger *slog.Logger) *Ledger {
	return &Ledger{strategy: StrategyCompensating, stores: stores, logger: logger}
}

// Strategy reports the configured strategy.
func (l *Ledger) Strategy() Strategy {
	return l.strategy
}

// Reserve decrements stock for every line and then runs then, if non-nil. When any
// line fails its condition, or then fails, no stock stays reserved.
func (l *Ledger) Reserve(ctx context.Context, lines []domain.Reservation, then FollowUp) error {
	lines = domain.MergeReservations(lines)
	for _, line := range lines {
		if line.Quantity < 1 {
			return fmt.Errorf("%w: quantity for %s must be positive", domain.ErrValidationFailed, line.ProductID)
		}
	}

	if l.strategy == StrategyTransactional {
		return l.reserveInTx(ctx, lines, then)
	}
	return l.reserveWithCompensation(ctx, lines, then)
}

func (l *Ledger) reserveInTx(ctx context.Context, lines []domain.Reservation, then FollowUp) error {
	return l.tx.WithinTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		for _, line := range lines {
			if err := decrement(ctx, stores.Stock, line); err != nil {
				return err
			}
		}
		if then == nil {
			return nil
		}
		return then(ctx, stores)
	})
}

func (l *Ledger) reserveWithCompensation(ctx context.Context, lines []domain.Reservation, then FollowUp) error {
	saga := &Saga{}
	stock := l.stores.Stock

	for _, line := range lines {
		err := saga.Do(ctx, "reserve "+line.ProductID,
			func(ctx context.Context) error { return decrement(ctx, stock, line) },
			func(ctx context.Context) error { return stock.Increment(ctx, line.ProductID, line.Quantity) },
		)
		if err != nil {
			return l.rollback(ctx, saga, err)
		}
	}

	if then != nil {
		if err := then(ctx, l.stores); err != nil {
			return l.rollback(ctx, saga, err)
		}
	}
	return nil
}

func (l *Ledger) rollback(ctx context.Context, saga *Saga, cause error) error {
	steps := saga.Len()
	// Compensation must run even when the request context is already cancelled.
	cerr := saga.Compensate(context.WithoutCancel(ctx))
	if cerr == nil {
		return cause
	}
	l.logger.ErrorContext(ctx, "inventory compensation failed, stock may be under-counted",
		"error", cerr,
		"steps", steps,
		"cause", cause,
	)
	return errors.Join(cause, fmt.Errorf("%w: %w", domain.ErrPersistence, cerr))
}

func decrement(ctx context.Context, stock ports.StockStore, line domain.Reservation) error {
	ok, err := stock.Decrement(ctx, line.ProductID, line.Quantity)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.OutOfStockError{ProductID: line.ProductID, Requested: line.Quantity}
	}
	return nil
}
