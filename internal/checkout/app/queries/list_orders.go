package queries

import (
	"context"
	"fmt"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
)

const maxPageSize = 100

// ListOrdersQuery pages through orders, newest first.
type ListOrdersQuery struct {
	Status   string
	Page     int
	PageSize int
}

type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

func NewListOrdersQueryHandler(repo ports.OrderRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]domain.Order, error) {
	filter := ports.ListFilter{Page: query.Page, PageSize: min(query.PageSize, maxPageSize)}

	if query.Status != "" {
		status, err := parseStatus(query.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	orders, err := h.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return orders, nil
}

func parseStatus(s string) (domain.OrderStatus, error) {
	for _, status := range []domain.OrderStatus{
		domain.StatusPending,
		domain.StatusConfirmed,
		domain.StatusPaid,
		domain.StatusShipped,
		domain.StatusDelivered,
		domain.StatusCancelled,
	} {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: unknown order status %q", domain.ErrValidationFailed, s)
}
