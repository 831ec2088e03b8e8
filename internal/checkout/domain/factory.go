package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ResolvedLine is a cart line bound to the live product it refers to.
type ResolvedLine struct {
	LineItem
	Stock     int
	Available bool
}

// Draft is the validated, priced content of a future order.
type Draft struct {
	Lines []ResolvedLine
	Total decimal.Decimal
}

// Reservation is a stock claim for one product.
type Reservation struct {
	ProductID string
	Quantity  int
}

// BuildDraft resolves cart against live products. Prices come from products, never
// from the cart's cached display price.
func BuildDraft(cart []CartEntry, products map[string]Product) (Draft, error) {
	if len(cart) == 0 {
		return Draft{}, ErrEmptyCart
	}

	lines := make([]ResolvedLine, 0, len(cart))
	requested := make(map[string]int, len(cart))
	total := decimal.Zero

	for _, entry := range cart {
		product, ok := products[entry.ProductID]
		if !ok {
			return Draft{}, validationError("product %s no longer exists", entry.ProductID)
		}

		quantity := entry.Quantity
		if quantity < 1 {
			quantity = 1
		}

		line := ResolvedLine{
			LineItem: LineItem{
				ProductID: product.ID,
				Name:      product.Name,
				UnitPrice: product.Price,
				Quantity:  quantity,
			},
			Stock:     product.Stock,
			Available: product.Available,
		}

		requested[product.ID] += quantity
		if !line.Available || requested[product.ID] > line.Stock {
			return Draft{}, &OutOfStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: requested[product.ID],
				Available: product.Stock,
			}
		}

		total = total.Add(line.Subtotal())
		lines = append(lines, line)
	}

	return Draft{Lines: lines, Total: total}, nil
}

// Reservations merges the draft lines per product, ordered by product ID so that
// concurrent reservations touch rows in the same order.
func (d Draft) Reservations() []Reservation {
	return MergeReservations(d.lineReservations())
}

func (d Draft) lineReservations() []Reservation {
	out := make([]Reservation, len(d.Lines))
	for i, line := range d.Lines {
		out[i] = Reservation{ProductID: line.ProductID, Quantity: line.Quantity}
	}
	return out
}

// MergeReservations sums quantities per product and sorts by product ID.
func MergeReservations(lines []Reservation) []Reservation {
	byProduct := make(map[string]int, len(lines))
	for _, line := range lines {
		byProduct[line.ProductID] += line.Quantity
	}
	out := make([]Reservation, 0, len(byProduct))
	for id, qty := range byProduct {
		out = append(out, Reservation{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// ProductIDs lists the distinct product IDs referenced by cart.
func ProductIDs(cart []CartEntry) []string {
	seen := make(map[string]struct{}, len(cart))
	ids := make([]string, 0, len(cart))
	for _, entry := range cart {
		if _, ok := seen[entry.ProductID]; ok {
			continue
		}
		seen[entry.ProductID] = struct{}{}
		ids = append(ids, entry.ProductID)
	}
	return ids
}
