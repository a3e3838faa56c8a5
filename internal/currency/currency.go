// Package currency defines the billing currencies and their minor-unit rules.
package currency

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	XOF Currency = "XOF"
)

var ErrUnsupported = errors.New("unsupported currency")

// decimals maps each currency to its number of decimal places. Stored amounts
// are integers in minor units; a zero-decimal currency stores whole units.
// Adding another zero-decimal currency is a one-line change here.
var decimals = map[Currency]int32{
	USD: 2,
	EUR: 2,
	XOF: 0,
}

func Parse(raw string) (Currency, error) {
	c := Currency(raw)
	if _, ok := decimals[c]; !ok {
		return "", ErrUnsupported
	}
	return c, nil
}

func Decimals(c Currency) int32 {
	d, ok := decimals[c]
	if !ok {
		return 2
	}
	return d
}

// ToMajorUnits converts a stored integer amount to the provider-facing amount
// in major units. For zero-decimal currencies the stored value already is the
// major-unit amount.
func ToMajorUnits(amountCents int64, c Currency) decimal.Decimal {
	d := Decimals(c)
	if d == 0 {
		return decimal.NewFromInt(amountCents)
	}
	return decimal.NewFromInt(amountCents).Shift(-d)
}

// Format renders a stored integer amount for display, e.g. "12.34 USD" or "2000 XOF".
func Format(amountCents int64, c Currency) string {
	return ToMajorUnits(amountCents, c).StringFixed(Decimals(c)) + " " + string(c)
}
