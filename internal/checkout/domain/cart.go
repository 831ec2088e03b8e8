package domain

import (
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
)

// CartEntry is one line of a session cart. Name, Price and Image are captured when the
// product is added and are only used for display.
type CartEntry struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
}

// NewCartEntry snapshots the display fields of p.
func NewCartEntry(p Product, quantity int) CartEntry {
	if quantity < 1 {
		quantity = 1
	}
	image := p.Image
	if image == "" {
		image = "/images/placeholder.png"
	}
	return CartEntry{
		ProductID: p.ID,
		Quantity:  quantity,
		Name:      p.Name,
		Price:     p.Price,
		Image:     image,
	}
}

// MaxCartQuantity caps the quantity of a single cart line.
const MaxCartQuantity = 1000

// AddToCart merges entry into cart, summing quantities for an existing product.
// A line that would exceed MaxCartQuantity is rejected and cart is left untouched.
func AddToCart(cart []CartEntry, entry CartEntry) ([]CartEntry, error) {
	if entry.Quantity < 1 || entry.Quantity > MaxCartQuantity {
		return cart, validationError("quantity must be between 1 and %d", MaxCartQuantity)
	}

	out := make([]CartEntry, 0, len(cart)+1)
	merged := false
	for _, existing := range cart {
		if existing.ProductID == entry.ProductID {
			if existing.Quantity+entry.Quantity > MaxCartQuantity {
				return cart, validationError("at most %d of %q fit in one cart", MaxCartQuantity, existing.Name)
			}
			existing.Quantity += entry.Quantity
			merged = true
		}
		out = append(out, existing)
	}
	if !merged {
		out = append(out, entry)
	}
	return out, nil
}

// RemoveFromCart drops every line for productID.
func RemoveFromCart(cart []CartEntry, productID string) []CartEntry {
	out := make([]CartEntry, 0, len(cart))
	for _, entry := range cart {
		if entry.ProductID != productID {
			out = append(out, entry)
		}
	}
	return out
}

// CartDisplayTotal sums the cached prices. It is not used for charging.
func CartDisplayTotal(cart []CartEntry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range cart {
		total = total.Add(entry.Price.Mul(decimal.NewFromInt(int64(entry.Quantity))))
	}
	return total
}

// ShippingDetails is the customer contact and delivery address submitted at checkout.
type ShippingDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Validate requires every field to be non-empty and the email to parse.
func (s ShippingDetails) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"name", s.Name},
		{"email", s.Email},
		{"phone", s.Phone},
		{"address", s.Address},
		{"city", s.City},
		{"state", s.State},
		{"zip", s.Zip},
		{"country", s.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return validationError("%s is required", f.name)
		}
	}
	if _, err := mail.ParseAddress(s.Email); err != nil {
		return validationError("email must be valid")
	}
	return nil
}
