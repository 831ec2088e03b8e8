package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func product(id, price string, stock int) Product {
	p := Product{ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price), Category: "test", Stock: stock}
	p.Recompute()
	return p
}

func TestBuildDraft(t *testing.T) {
	t.Run("prices lines from live products and sums the total", func(t *testing.T) {
		products := map[string]Product{
			"a": product("a", "10.00", 5),
			"b": product("b", "5.50", 5),
		}
		cart := []CartEntry{
			{ProductID: "a", Quantity: 2, Price: decimal.RequireFromString("1.00")},
			{ProductID: "b", Quantity: 1},
		}

		draft, err := BuildDraft(cart, products)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if !draft.Total.Equal(decimal.RequireFromString("25.50")) {
			t.Errorf("expected total 25.50, got %s", draft.Total)
		}
		if !draft.Lines[0].UnitPrice.Equal(decimal.RequireFromString("10.00")) {
			t.Errorf("expected live price 10.00, got %s", draft.Lines[0].UnitPrice)
		}
	})

	t.Run("order total is frozen against later price changes", func(t *testing.T) {
		products := map[string]Product{
			"a": product("a", "10.00", 5),
			"b": product("b", "5.50", 5),
		}
		draft, err := BuildDraft([]CartEntry{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 1}}, products)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		order := NewOrder(OrderParams{ID: "o1", Draft: draft})

		a := products["a"]
		a.Price = decimal.RequireFromString("12.00")
		products["a"] = a

		if !order.TotalAmount.Equal(decimal.RequireFromString("25.50")) {
			t.Errorf("expected total to stay 25.50, got %s", order.TotalAmount)
		}
		if !order.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")) {
			t.Errorf("expected frozen unit price 10.00, got %s", order.Items[0].UnitPrice)
		}
	})

	t.Run("rejects an empty cart", func(t *testing.T) {
		_, err := BuildDraft(nil, nil)
		if !errors.Is(err, ErrEmptyCart) {
			t.Errorf("expected ErrEmptyCart, got %v", err)
		}
	})

	t.Run("rejects a product that no longer exists", func(t *testing.T) {
		_, err := BuildDraft([]CartEntry{{ProductID: "gone", Quantity: 1}}, map[string]Product{})
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("expected ErrValidationFailed, got %v", err)
		}
	})

	t.Run("rejects unavailable and under-stocked lines", func(t *testing.T) {
		disabled := product("d", "1.00", 10)
		disabled.Disabled = true
		disabled.Recompute()

		cases := map[string]struct {
			cart     []CartEntry
			products map[string]Product
		}{
			"disabled product": {
				cart:     []CartEntry{{ProductID: "d", Quantity: 1}},
				products: map[string]Product{"d": disabled},
			},
			"quantity above stock": {
				cart:     []CartEntry{{ProductID: "a", Quantity: 10}},
				products: map[string]Product{"a": product("a", "1.00", 4)},
			},
			"duplicate lines exceed stock together": {
				cart:     []CartEntry{{ProductID: "a", Quantity: 3}, {ProductID: "a", Quantity: 2}},
				products: map[string]Product{"a": product("a", "1.00", 4)},
			},
		}

		for name, tc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := BuildDraft(tc.cart, tc.products)
				var oos *OutOfStockError
				if !errors.As(err, &oos) {
					t.Fatalf("expected OutOfStockError, got %v", err)
				}
				if !errors.Is(err, ErrOutOfStock) {
					t.Error("expected error to match ErrOutOfStock")
				}
			})
		}
	})

	t.Run("clamps non-positive quantities to one", func(t *testing.T) {
		draft, err := BuildDraft([]CartEntry{{ProductID: "a", Quantity: 0}}, map[string]Product{"a": product("a", "2.00", 1)})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if draft.Lines[0].Quantity != 1 {
			t.Errorf("expected quantity 1, got %d", draft.Lines[0].Quantity)
		}
	})
}

func TestMergeReservations(t *testing.T) {
	merged := MergeReservations([]Reservation{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	})

	if len(merged) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(merged))
	}
	if merged[0].ProductID != "a" || merged[0].Quantity != 2 {
		t.Errorf("unexpected first reservation %+v", merged[0])
	}
	if merged[1].ProductID != "b" || merged[1].Quantity != 4 {
		t.Errorf("unexpected second reservation %+v", merged[1])
	}
}
