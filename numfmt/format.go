// Package numfmt formats raw numeric cell values for display.
//
// Formatting works on the decimal string the grid data engine sends, not
// on a float64, so rounding is exact: "0.015" as a percentage is "1.5%",
// and "100200100.125" rounds half away from zero. Only the exponential
// path goes through float64, where the mantissa precision is what matters.
//
// [ReduceDecimals] is the companion used by the layout engine when a
// formatted number is too wide for its cell: it drops one fractional digit
// per call until nothing is left to drop.
package numfmt

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Kind selects the numeric presentation.
type Kind uint8

const (
	// KindNumber is a plain number.
	KindNumber Kind = iota
	// KindCurrency prefixes a currency symbol and groups thousands.
	KindCurrency
	// KindPercentage scales by 100 and appends "%".
	KindPercentage
	// KindExponential uses scientific notation ("1.235e+8").
	KindExponential
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindCurrency:
		return "Currency"
	case KindPercentage:
		return "Percentage"
	case KindExponential:
		return "Exponential"
	default:
		return "Unknown"
	}
}

// Defaults applied when a Format leaves a field unset.
const (
	// CurrencyDecimals is the fractional digit count used for currency.
	CurrencyDecimals = 2

	// maxNaturalDigits caps the digits shown for an unconstrained number.
	maxNaturalDigits = 20
)

// ErrInvalidNumber is returned when the raw value is not a decimal number.
var ErrInvalidNumber = errors.New("numfmt: invalid number")

// Format describes how a numeric cell is displayed.
type Format struct {
	// Kind is the presentation.
	Kind Kind

	// Symbol is the currency symbol, used by KindCurrency.
	Symbol string

	// Decimals fixes the fractional digit count. Nil shows as many digits
	// as the value needs (2 for currency).
	Decimals *int

	// Commas enables thousands grouping. Nil means on for currency and
	// off otherwise.
	Commas *bool
}

// WithDecimals returns a copy of f with a fixed fractional digit count.
func (f Format) WithDecimals(d int) Format {
	f.Decimals = &d
	return f
}

func (f Format) commas() bool {
	if f.Commas != nil {
		return *f.Commas
	}
	return f.Kind == KindCurrency
}

// parse reads raw into an exact rational, applying the percentage scale.
func parse(raw string, f Format) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(raw))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	if f.Kind == KindPercentage {
		r.Mul(r, big.NewRat(100, 1))
	}
	return r, nil
}

// naturalDigits returns the fractional digits needed to show r exactly,
// capped at maxNaturalDigits.
func naturalDigits(r *big.Rat) int {
	if r.IsInt() {
		return 0
	}
	scaled := new(big.Rat).Set(r)
	ten := big.NewRat(10, 1)
	for d := 1; d <= maxNaturalDigits; d++ {
		scaled.Mul(scaled, ten)
		if scaled.IsInt() {
			return d
		}
	}
	return maxNaturalDigits
}

// FormatNumber formats the decimal string raw according to f.
func FormatNumber(raw string, f Format) (string, error) {
	if f.Kind == KindExponential {
		return formatExponential(raw, f)
	}
	r, err := parse(raw, f)
	if err != nil {
		return "", err
	}

	decimals := resolveDecimals(r, f)
	s := r.FloatString(decimals)

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if negative && strings.Trim(s, "0.") == "" {
		// -0.00 shows as 0.00
		negative = false
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if f.commas() {
		intPart = groupThousands(intPart)
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	if f.Kind == KindCurrency {
		b.WriteString(f.Symbol)
	}
	b.WriteString(intPart)
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	if f.Kind == KindPercentage {
		b.WriteByte('%')
	}
	return b.String(), nil
}

func resolveDecimals(r *big.Rat, f Format) int {
	switch {
	case f.Decimals != nil:
		return max(*f.Decimals, 0)
	case f.Kind == KindCurrency:
		return CurrencyDecimals
	default:
		return naturalDigits(r)
	}
}

// groupThousands inserts thousands separators into a run of digits.
func groupThousands(digits string) string {
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		p := message.NewPrinter(language.English)
		return p.Sprintf("%d", n)
	}

	// Beyond int64: group by hand.
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// parseFloat reads raw for the exponential kind. Only finite values are
// numbers.
func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return v, nil
}

// formatExponential renders raw in scientific notation with a trimmed
// exponent ("1.235e+8").
func formatExponential(raw string, f Format) (string, error) {
	v, err := parseFloat(raw)
	if err != nil {
		return "", err
	}
	prec := -1
	if f.Decimals != nil {
		prec = max(*f.Decimals, 0)
	}
	s := strconv.FormatFloat(v, 'e', prec, 64)

	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s, nil
	}
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits, nil
}

// FractionDigits reports how many fractional digits FormatNumber shows for
// raw under f. For the exponential kind this is the mantissa precision.
func FractionDigits(raw string, f Format) (int, error) {
	if f.Kind == KindExponential {
		if f.Decimals != nil {
			return max(*f.Decimals, 0), nil
		}
		v, err := parseFloat(raw)
		if err != nil {
			return 0, err
		}
		mantissa, _, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
		_, frac, _ := strings.Cut(mantissa, ".")
		return len(frac), nil
	}
	r, err := parse(raw, f)
	if err != nil {
		return 0, err
	}
	return resolveDecimals(r, f), nil
}
