// Package money holds the exact-decimal rules shared by pricing and reporting.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fraction digits every amount is rounded to.
const Places = 2

// TaxRate is the fixed GST rate applied to every order.
var TaxRate = decimal.RequireFromString("0.10")

// Zero is a rounded zero amount.
var Zero = decimal.Zero.Round(Places)

// Round rounds to cents, half away from zero. Amounts are never negative here,
// so this matches round-half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Tax returns the GST owed on a subtotal, rounded to cents.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Mul(TaxRate))
}

// Format renders an amount with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Parse reads a decimal string such as "12.5" or "9.99". Commas are accepted
// as the fraction separator.
func Parse(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if trimmed == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}
