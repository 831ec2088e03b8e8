package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry whose stock is claimed by checkouts.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image,omitempty"`
	Description string          `json:"description,omitempty"`
	Stock       int             `json:"stock"`
	Disabled    bool            `json:"disabled"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Recompute derives Available from stock and the manual disable flag.
func (p *Product) Recompute() {
	p.Available = p.Stock > 0 && !p.Disabled
}

// Validate ensures the product adheres to catalog constraints.
func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return validationError("product id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return validationError("product name is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return validationError("product category is required")
	}
	if p.Price.IsNegative() {
		return validationError("product price must not be negative")
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		return validationError("product price must be in whole cents")
	}
	if p.Stock < 0 {
		return validationError("product stock must not be negative")
	}
	return nil
}
