// Package normalize coerces loosely typed scalar values from inbound
// documents and requests into canonical Go values. Every component that
// needs mixed-type parsing goes through here so the failure mode is the
// same everywhere.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrCoerce is wrapped by every normalization failure.
var ErrCoerce = fmt.Errorf("value cannot be normalized")

const dateLayout = "2006-01-02"

// Int coerces strings, floats and integer types to an int via float
// parsing, so "10", 10 and 10.0 are all accepted. Fractions truncate.
func Int(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%w: %v", ErrCoerce, n)
		}
		return int(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrCoerce, n.String())
		}
		return int(f), nil
	case decimal.Decimal:
		return int(n.IntPart()), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrCoerce, n)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrCoerce, v)
	}
}

// LotNumber coerces a lot identifier to an integer. Free-text lots keep
// only their digits ("LOT-123" -> 123); a lot with no digits at all is
// an error.
func LotNumber(v any) (int, error) {
	s, ok := v.(string)
	if !ok {
		return Int(v)
	}

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("%w: no digits in lot number %q", ErrCoerce, s)
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, fmt.Errorf("%w: lot number %q", ErrCoerce, s)
	}
	return n, nil
}

// Date parses a date strictly as YYYY-MM-DD.
func Date(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrCoerce, s)
	}
	return t, nil
}

// FormatDate renders a time in the canonical YYYY-MM-DD form.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
