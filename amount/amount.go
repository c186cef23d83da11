// Package amount converts between human-readable decimal value strings and
// integer amounts in the smallest unit.
//
// The conversion goes through float64, so values with more than ~15
// significant digits can lose precision; the fractional part is truncated
// toward zero. Callers that need exact decimal semantics must quantize
// their inputs first.
package amount

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BaseUnitScale is the default smallest-unit scale: 1 coin = 1e9 base units.
const BaseUnitScale uint64 = 1_000_000_000

// ToBaseUnits parses a base-10 decimal string and converts it to an integer
// amount of smallest units using the given scale.
//
// The result is trunc(value * scale). Negative values, NaN, infinities and
// non-numeric input are rejected with ErrMalformedAmount.
func ToBaseUnits(s string, scale uint64) (uint64, error) {
	if scale == 0 {
		return 0, fmt.Errorf("%w: zero scale", ErrInvalidScale)
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty string", ErrMalformedAmount)
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrMalformedAmount, s)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrMalformedAmount, s)
	}

	scaled := value * float64(scale)
	if scaled >= float64(math.MaxUint64) {
		return 0, fmt.Errorf("%w: %q exceeds the representable range", ErrAmountTooLarge, s)
	}

	// Truncation toward zero, not rounding.
	return uint64(scaled), nil
}

// FromBaseUnits formats an integer amount of smallest units as a decimal
// string. The formatting is exact (integer math only); trailing zeros in the
// fractional part are trimmed. The scale must be a power of ten.
func FromBaseUnits(v uint64, scale uint64) string {
	if scale == 0 || scale == 1 {
		return strconv.FormatUint(v, 10)
	}

	whole := v / scale
	frac := v % scale
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}

	digits := len(strconv.FormatUint(scale-1, 10))
	fracStr := fmt.Sprintf("%0*d", digits, frac)
	fracStr = strings.TrimRight(fracStr, "0")
	return strconv.FormatUint(whole, 10) + "." + fracStr
}
