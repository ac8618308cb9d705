package numfmt

// Reduced is the result of one ReduceDecimals step.
type Reduced struct {
	// Text is the formatted number with one fewer fractional digit.
	Text string

	// Decimals is the new fractional digit count.
	Decimals int
}

// ReduceDecimals formats raw with one fractional digit fewer than current.
// A negative current means "the digits an unconstrained format shows".
//
// It returns false when there is nothing left to drop (zero digits) or raw
// is not a number. The digit count of a successful result is always
// current-1, so repeated application is strictly decreasing.
func ReduceDecimals(raw string, f Format, current int) (Reduced, bool) {
	if current < 0 {
		d, err := FractionDigits(raw, f)
		if err != nil {
			return Reduced{}, false
		}
		current = d
	}
	if current <= 0 {
		return Reduced{}, false
	}

	next := current - 1
	text, err := FormatNumber(raw, f.WithDecimals(next))
	if err != nil {
		return Reduced{}, false
	}
	return Reduced{Text: text, Decimals: next}, true
}
