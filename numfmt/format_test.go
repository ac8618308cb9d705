package numfmt

import (
	"errors"
	"testing"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// TestFormatNumber tests display strings for each kind.
func TestFormatNumber(t *testing.T) {
	currency := Format{Kind: KindCurrency, Symbol: "$"}

	tests := []struct {
		name   string
		raw    string
		format Format
		want   string
	}{
		{"currency default decimals and commas", "100200100.1234", currency, "$100,200,100.12"},
		{"negative currency", "-100200100.1234", currency, "-$100,200,100.12"},
		{"currency rounds half away from zero", "123.125", currency, "$123.13"},
		{"currency pads decimals", "123", currency, "$123.00"},
		{"currency without commas", "1234.5", Format{Kind: KindCurrency, Symbol: "€", Commas: boolPtr(false)}, "€1234.50"},
		{"plain number keeps digits", "1234.5678", Format{}, "1234.5678"},
		{"plain number with commas", "1234567.5", Format{Commas: boolPtr(true)}, "1,234,567.5"},
		{"fixed decimals", "3.14159", Format{Decimals: intPtr(3)}, "3.142"},
		{"zero decimals", "2.5", Format{Decimals: intPtr(0)}, "3"},
		{"negative zero", "-0.001", Format{Decimals: intPtr(2)}, "0.00"},
		{"percentage exact", "0.015", Format{Kind: KindPercentage}, "1.5%"},
		{"percentage decimals", "0.9912239", Format{Kind: KindPercentage, Decimals: intPtr(4)}, "99.1224%"},
		{"exponential zero decimals", "123456789", Format{Kind: KindExponential, Decimals: intPtr(0)}, "1e+8"},
		{"exponential three decimals", "123456789", Format{Kind: KindExponential, Decimals: intPtr(3)}, "1.235e+8"},
		{"exponential small", "0.000123", Format{Kind: KindExponential, Decimals: intPtr(1)}, "1.2e-4"},
		{"exponential natural", "1500", Format{Kind: KindExponential}, "1.5e+3"},
		{"huge integer grouping", "123456789012345678901234", Format{Commas: boolPtr(true)}, "123,456,789,012,345,678,901,234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatNumber(tt.raw, tt.format)
			if err != nil {
				t.Fatalf("FormatNumber(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("FormatNumber(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// TestFormatNumber_Invalid tests the error path.
func TestFormatNumber_Invalid(t *testing.T) {
	for _, f := range []Format{{}, {Kind: KindExponential}} {
		for _, raw := range []string{"twelve", "NaN", "Inf", "-infinity"} {
			_, err := FormatNumber(raw, f)
			if !errors.Is(err, ErrInvalidNumber) {
				t.Errorf("kind %v, %q: expected ErrInvalidNumber, got %v", f.Kind, raw, err)
			}
		}
	}

	// Out of float64 range: only the exponential kind goes through floats.
	exp := Format{Kind: KindExponential}
	if _, err := FormatNumber("1e999", exp); !errors.Is(err, ErrInvalidNumber) {
		t.Errorf("1e999: expected ErrInvalidNumber, got %v", err)
	}
	if _, err := FractionDigits("NaN", exp); !errors.Is(err, ErrInvalidNumber) {
		t.Errorf("FractionDigits(NaN): expected ErrInvalidNumber, got %v", err)
	}
}

// TestFractionDigits tests the digit count of unconstrained formats.
func TestFractionDigits(t *testing.T) {
	tests := []struct {
		raw    string
		format Format
		want   int
	}{
		{"1.2345", Format{}, 4},
		{"12", Format{}, 0},
		{"1.2345", Format{Kind: KindCurrency}, 2},
		{"0.015", Format{Kind: KindPercentage}, 1},
		{"123456789", Format{Kind: KindExponential}, 8},
		{"1.5", Format{Decimals: intPtr(6)}, 6},
	}
	for _, tt := range tests {
		got, err := FractionDigits(tt.raw, tt.format)
		if err != nil {
			t.Fatalf("FractionDigits(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("FractionDigits(%q, %v) = %d, want %d", tt.raw, tt.format.Kind, got, tt.want)
		}
	}
}
