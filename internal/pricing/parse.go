package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparsablePrice is matched by every error returned from Parse.
var ErrUnparsablePrice = errors.New("unparsable price")

// ParseError carries the raw text that could not be read as a price.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable price %q", e.Raw)
}

func (e *ParseError) Unwrap() error { return ErrUnparsablePrice }

// Parse reads a catalog price. Plain dot-decimal text ("12.5", "1500") is
// read as is; anything else is retried as dot-thousands/comma-decimal
// ("1.234,56"). When both fail Parse returns zero together with a *ParseError:
// the zero is meant to be used, the error is for whoever wants to show it.
// Only digits, '.' and ',' with an optional leading sign are accepted, so
// exponents ("1e9"), NaN and Inf are refused.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if !plainNumber(s) {
		return decimal.Zero, &ParseError{Raw: raw}
	}

	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}

	alt := strings.ReplaceAll(s, ".", "")
	alt = strings.ReplaceAll(alt, ",", ".")
	if d, err := decimal.NewFromString(alt); err == nil {
		return d, nil
	}

	return decimal.Zero, &ParseError{Raw: raw}
}

func plainNumber(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	digits := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' || c == ',':
		default:
			return false
		}
	}
	return digits > 0
}
