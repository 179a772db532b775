// Package pricing computes order totals from priced lines and a tax rate.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the sales tax applied when none is configured.
var DefaultTaxRate = decimal.RequireFromString("0.0875")

const currencyPlaces = 2

// MaxQuantity is the largest quantity a single line may carry.
const MaxQuantity = 10000

// MaxAmount is the exclusive upper bound for any stored money value, matching
// a DECIMAL(12,2) column.
var MaxAmount = decimal.New(1, 10)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals holds full-precision amounts. Call Rounded before presenting or
// persisting them.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Calculate sums unitPrice*quantity over lines and applies taxRate to the sum.
func Calculate(lines []Line, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.UnitPrice, l.Quantity))
	}
	tax := subtotal.Mul(taxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Round rounds a currency amount to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}

// IsWholeCents reports whether d has no fraction of a cent.
func IsWholeCents(d decimal.Decimal) bool {
	return d.Equal(Round(d))
}

// InRange reports whether d is a storable non-negative amount.
func InRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(MaxAmount)
}

func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: Round(t.Subtotal),
		Tax:      Round(t.Tax),
		Total:    Round(t.Total),
	}
}

// ParseTaxRate parses a configured rate such as "0.0875".
func ParseTaxRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse tax rate %q: %w", s, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("tax rate %s out of range [0, 1)", rate)
	}
	return rate, nil
}
