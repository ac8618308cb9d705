package numfmt

import "testing"

// TestReduceDecimals_Steps tests successive reductions of a currency value.
func TestReduceDecimals_Steps(t *testing.T) {
	f := Format{Kind: KindCurrency, Symbol: "$"}

	r, ok := ReduceDecimals("1234.5678", f, -1)
	if !ok {
		t.Fatal("expected a reduction from the default 2 digits")
	}
	if r.Text != "$1,234.6" || r.Decimals != 1 {
		t.Errorf("first step = %+v", r)
	}

	r, ok = ReduceDecimals("1234.5678", f, r.Decimals)
	if !ok || r.Text != "$1,235" || r.Decimals != 0 {
		t.Errorf("second step = %+v, %v", r, ok)
	}

	if _, ok := ReduceDecimals("1234.5678", f, r.Decimals); ok {
		t.Error("expected no reduction at zero digits")
	}
}

// TestReduceDecimals_Exponential tests that exponential reduction trims the
// mantissa.
func TestReduceDecimals_Exponential(t *testing.T) {
	f := Format{Kind: KindExponential, Decimals: intPtr(3)}

	r, ok := ReduceDecimals("123456789", f, -1)
	if !ok || r.Text != "1.23e+8" || r.Decimals != 2 {
		t.Errorf("step = %+v, %v", r, ok)
	}
}

// TestReduceDecimals_Monotonic tests that repeated reduction never raises the
// digit count and always terminates.
func TestReduceDecimals_Monotonic(t *testing.T) {
	cases := []struct {
		raw    string
		format Format
	}{
		{"3.14159265358979", Format{}},
		{"-0.000012345", Format{Kind: KindPercentage}},
		{"98765.4321", Format{Kind: KindCurrency, Symbol: "£"}},
		{"6.02214076e23", Format{Kind: KindExponential}},
	}

	for _, c := range cases {
		start, err := FractionDigits(c.raw, c.format)
		if err != nil {
			t.Fatalf("FractionDigits(%q): %v", c.raw, err)
		}

		current := -1
		last := start
		steps := 0
		for {
			r, ok := ReduceDecimals(c.raw, c.format, current)
			if !ok {
				break
			}
			if r.Decimals > last {
				t.Fatalf("%q: digits rose from %d to %d", c.raw, last, r.Decimals)
			}
			last = r.Decimals
			current = r.Decimals
			steps++
			if steps > start+1 {
				t.Fatalf("%q: did not terminate", c.raw)
			}
		}
		if last != 0 && start != 0 {
			t.Errorf("%q: stopped at %d digits", c.raw, last)
		}
		if steps != start {
			t.Errorf("%q: %d steps, want %d", c.raw, steps, start)
		}
	}
}

// TestReduceDecimals_Invalid tests that bad input reports no reduction.
func TestReduceDecimals_Invalid(t *testing.T) {
	if _, ok := ReduceDecimals("abc", Format{}, -1); ok {
		t.Error("expected no reduction for invalid number")
	}
}
