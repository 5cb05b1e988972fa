package types_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/dues/types"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    types.Money
		amount   int64
		currency string
	}{
		{"PKR", types.PKR(3000), 3000, "pkr"},
		{"USD", types.USD(4900), 4900, "usd"},
		{"EUR", types.EUR(19900), 19900, "eur"},
		{"INR", types.INR(50000), 50000, "inr"},
		{"Zero", types.Zero("PKR"), 0, "pkr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("amount = %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("currency = %q, want %q", tt.money.Currency, tt.currency)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := types.PKR(3000)
	b := types.PKR(1000)

	if got := a.Add(b); got.Amount != 4000 {
		t.Errorf("Add = %d, want 4000", got.Amount)
	}
	if got := a.Subtract(b); got.Amount != 2000 {
		t.Errorf("Subtract = %d, want 2000", got.Amount)
	}
	if got := a.Multiply(3); got.Amount != 9000 {
		t.Errorf("Multiply = %d, want 9000", got.Amount)
	}
	if got := b.Negate(); got.Amount != -1000 {
		t.Errorf("Negate = %d, want -1000", got.Amount)
	}
}

func TestCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on currency mismatch")
		}
	}()

	types.PKR(100).Add(types.USD(100))
}

func TestComparisons(t *testing.T) {
	if !types.Zero("pkr").IsZero() {
		t.Error("Zero should be zero")
	}
	if !types.PKR(1).IsPositive() {
		t.Error("PKR(1) should be positive")
	}
	if !types.PKR(-1).IsNegative() {
		t.Error("PKR(-1) should be negative")
	}
	if !types.PKR(3000).Equal(types.PKR(3000)) {
		t.Error("equal values should be Equal")
	}
	if types.PKR(3000).Equal(types.INR(3000)) {
		t.Error("different currencies should not be Equal")
	}
	if !types.PKR(1000).LessThan(types.PKR(3000)) {
		t.Error("1000 should be less than 3000")
	}
	if !types.PKR(3000).GreaterThan(types.PKR(1000)) {
		t.Error("3000 should be greater than 1000")
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		name  string
		money types.Money
		major string
		full  string
	}{
		{"PKR whole", types.PKR(3000), "3000", "Rs 3000"},
		{"USD cents", types.USD(4900), "49.00", "$49.00"},
		{"USD sub-dollar", types.USD(5), "0.05", "$0.05"},
		{"USD negative", types.USD(-4900), "-49.00", "$-49.00"},
		{"EUR", types.EUR(19900), "199.00", "€199.00"},
		{"unknown currency", types.Money{Amount: 100, Currency: "xyz"}, "1.00", "XYZ 1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.major {
				t.Errorf("FormatMajor = %q, want %q", got, tt.major)
			}
			if got := tt.money.String(); got != tt.full {
				t.Errorf("String = %q, want %q", got, tt.full)
			}
		})
	}
}

func TestSum(t *testing.T) {
	got := types.Sum(types.PKR(3000), types.PKR(4000), types.PKR(500))
	if got.Amount != 7500 || got.Currency != "pkr" {
		t.Errorf("Sum = %+v, want 7500 pkr", got)
	}

	empty := types.Sum()
	if !empty.IsZero() {
		t.Errorf("empty Sum should be zero, got %+v", empty)
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(types.PKR(3000))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	s := string(data)
	for _, want := range []string{`"amount":3000`, `"currency":"pkr"`, `"display":"Rs 3000"`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s missing %s", s, want)
		}
	}
}
