package parse

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount parses a currency-like string ("₹1,234.50", "Rs. 99") into a
// decimal, stripping everything that is not part of a number first. Values
// that still fail to parse become zero; amount fields feed arithmetic, so
// absent means zero. Use OptionalAmount for fields where absent must stay
// absent.
func Amount(s string) decimal.Decimal {
	d, ok := amount(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

// OptionalAmount is Amount for purely informational fields: unparseable
// input yields nil instead of zero.
func OptionalAmount(s string) *decimal.Decimal {
	d, ok := amount(s)
	if !ok {
		return nil
	}
	return &d
}

func amount(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
