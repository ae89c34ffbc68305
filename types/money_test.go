package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"GBP", GBP(8000), 8000, "gbp", "£80.00"},
		{"EUR", EUR(19900), 19900, "eur", "€199.00"},
		{"USD", USD(4900), 4900, "usd", "$49.00"},
		{"Zero GBP", Zero("GBP"), 0, "gbp", "£0.00"},
		{"Zero EUR", Zero("EUR"), 0, "eur", "€0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return GBP(100).Add(GBP(200)) }, GBP(300)},
		{"Subtract", func() Money { return GBP(500).Subtract(GBP(200)) }, GBP(300)},
		{"Multiply", func() Money { return GBP(100).Multiply(3) }, GBP(300)},
		{"Negate", func() Money { return GBP(100).Negate() }, GBP(-100)},
		{"Abs positive", func() Money { return GBP(100).Abs() }, GBP(100)},
		{"Abs negative", func() Money { return GBP(-100).Abs() }, GBP(100)},
		{"Complex", func() Money {
			return GBP(1000).Add(GBP(500)).Multiply(2).Subtract(GBP(1000))
		}, GBP(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyAddAssuming(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Money
		currency string
		expected Money
	}{
		{"Both set", GBP(100), GBP(200), "gbp", GBP(300)},
		{"Left empty", Money{}, GBP(200), "gbp", GBP(200)},
		{"Right empty", GBP(100), Money{}, "gbp", GBP(100)},
		{"Both empty", Money{}, Money{}, "gbp", GBP(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.a.AddAssuming(tt.b, tt.currency)
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	// This should panic
	_ = GBP(100).Add(EUR(100))
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", GBP(100), GBP(100), false, false, true},
		{"Less", GBP(50), GBP(100), true, false, false},
		{"Greater", GBP(200), GBP(100), false, true, false},
		{"Zero equal", GBP(0), Zero("gbp"), false, false, true},
		{"Negative less", GBP(-100), GBP(100), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyMinMax(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Money
		min, max Money
	}{
		{"First smaller", GBP(50), GBP(100), GBP(50), GBP(100)},
		{"Second smaller", GBP(100), GBP(50), GBP(50), GBP(100)},
		{"Equal", GBP(100), GBP(100), GBP(100), GBP(100)},
		{"Negative", GBP(-50), GBP(50), GBP(-50), GBP(50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if minVal := tt.a.Min(tt.b); !minVal.Equal(tt.min) {
				t.Errorf("Min: got %v, want %v", minVal, tt.min)
			}
			if maxVal := tt.a.Max(tt.b); !maxVal.Equal(tt.max) {
				t.Errorf("Max: got %v, want %v", maxVal, tt.max)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	tests := []struct {
		name       string
		money      Money
		isZero     bool
		isPositive bool
		isNegative bool
	}{
		{"Zero", GBP(0), true, false, false},
		{"Positive", GBP(100), false, true, false},
		{"Negative", GBP(-100), false, false, true},
		{"Large positive", GBP(999999999), false, true, false},
		{"Large negative", GBP(-999999999), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.money.IsPositive(); got != tt.isPositive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.isPositive)
			}
			if got := tt.money.IsNegative(); got != tt.isNegative {
				t.Errorf("IsNegative: got %v, want %v", got, tt.isNegative)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{GBP(8000), "80.00"},
		{GBP(100), "1.00"},
		{GBP(1), "0.01"},
		{GBP(0), "0.00"},
		{GBP(-8000), "-80.00"},
		{GBP(-1), "-0.01"},
		{EUR(9999), "99.99"},
		{Money{Amount: 100, Currency: "jpy"}, "100"},     // No decimals
		{Money{Amount: 12345, Currency: "jpy"}, "12345"}, // No decimals
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	m := GBP(8000)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	// Check JSON structure
	expected := `{"amount":8000,"currency":"gbp","display":"£80.00"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	// Unmarshal and verify
	var result struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if result.Amount != 8000 || result.Currency != "gbp" || result.Display != "£80.00" {
		t.Errorf("Unmarshaled data incorrect: %+v", result)
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Money
		expected Money
	}{
		{"Empty", []Money{}, Zero("gbp")},
		{"Single", []Money{GBP(100)}, GBP(100)},
		{"Multiple", []Money{GBP(100), GBP(200), GBP(300)}, GBP(600)},
		{"With negatives", []Money{GBP(100), GBP(-50), GBP(200)}, GBP(250)},
		{"All zero", []Money{GBP(0), GBP(0), GBP(0)}, GBP(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sum(tt.values...)
			if !result.Equal(tt.expected) {
				t.Errorf("Sum: got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCurrencySymbols(t *testing.T) {
	tests := []struct {
		currency string
		symbol   string
	}{
		{"gbp", "£"},
		{"eur", "€"},
		{"usd", "$"},
		{"jpy", "¥"},
		{"unknown", "UNKNOWN "},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			got := currencySymbol(tt.currency)
			if got != tt.symbol {
				t.Errorf("Symbol for %s: got %s, want %s", tt.currency, got, tt.symbol)
			}
		})
	}
}

func BenchmarkMoneyAdd(b *testing.B) {
	m1 := GBP(100)
	m2 := GBP(200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m1.Add(m2)
	}
}

func BenchmarkMoneyString(b *testing.B) {
	m := GBP(8000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.String()
	}
}
