package queries

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
)

type ListProductsQuery struct {
	Category      string
	AvailableOnly bool
}

type ProductQueryHandler struct {
	repo ports.ProductRepository
}

func NewProductQueryHandler(repo ports.ProductRepository) *ProductQueryHandler {
	return &ProductQueryHandler{repo: repo}
}

func (h *ProductQueryHandler) List(ctx context.Context, query ListProductsQuery) ([]domain.Product, error) {
	products, err := h.repo.List(ctx, ports.ProductFilter{
		Category:      query.Category,
		AvailableOnly: query.AvailableOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (h *ProductQueryHandler) Get(ctx context.Context, id string) (*domain.Product, error) {
	product, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return product, nil
}
