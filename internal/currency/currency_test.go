package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, raw := range []string{"USD", "EUR", "XOF"} {
		c, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, Currency(raw), c)
	}

	_, err := Parse("GBP")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = Parse("usd")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestToMajorUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		cur    Currency
		want   string
	}{
		{name: "usd shifts two places", amount: 1234, cur: USD, want: "12.34"},
		{name: "eur shifts two places", amount: 500, cur: EUR, want: "5"},
		// XOF stores whole francs; no division on the way to the provider.
		{name: "xof is zero decimal", amount: 2000, cur: XOF, want: "2000"},
		{name: "zero", amount: 0, cur: XOF, want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMajorUnits(tt.amount, tt.cur).String())
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.34 USD", Format(1234, USD))
	assert.Equal(t, "2000 XOF", Format(2000, XOF))
	assert.Equal(t, "0.05 EUR", Format(5, EUR))
}
