package pricing

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Cents is an amount of money in minor units.
type Cents int64

var ErrInvalidPriceLabel = errors.New("invalid price label")

var hundred = decimal.NewFromInt(100)

// ParsePriceLabel converts a catalog display price ("$50.00", "1,299.99", "₩12,000")
// into cents. Currency symbols, letters and grouping commas are ignored; more than two
// fractional digits is rejected rather than rounded.
func ParsePriceLabel(label string) (Cents, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsDigit(r), r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(label))

	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriceLabel, label)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriceLabel, label)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %q", ErrInvalidPriceLabel, label)
	}

	minor := amount.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: sub-cent precision %q", ErrInvalidPriceLabel, label)
	}
	return Cents(minor.IntPart()), nil
}

// FormatCents renders an amount for display, e.g. FormatCents(5000, "$") == "$50.00".
func FormatCents(c Cents, symbol string) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + symbol + decimal.New(int64(c), -2).StringFixed(2)
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string {
	return FormatCents(c, "")
}
