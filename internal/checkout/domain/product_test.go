package domain

import (
	"errors"
	"testing"
)

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name  string
		price string
		stock int
		valid bool
	}{
		{"whole cents", "10.50", 1, true},
		{"trailing zeros", "10.500", 1, true},
		{"free", "0", 0, true},
		{"sub-cent price", "10.005", 1, false},
		{"negative price", "-1.00", 1, false},
		{"negative stock", "1.00", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := product("p1", tt.price, tt.stock).Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid product, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrValidationFailed) {
				t.Errorf("expected ErrValidationFailed, got %v", err)
			}
		})
	}

	t.Run("requires name and category", func(t *testing.T) {
		p := product("p1", "1.00", 1)
		p.Name = " "
		if err := p.Validate(); !errors.Is(err, ErrValidationFailed) {
			t.Errorf("expected ErrValidationFailed for blank name, got %v", err)
		}
	})
}
