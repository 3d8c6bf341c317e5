// Package pricing computes line and order totals.
//
// All amounts are major currency units held as decimals. Conversion to minor
// units for the payment provider happens only in ToMinorUnits.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordering-backend/pkg/types"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Line is one priced cart or order line.
type Line struct {
	BasePrice decimal.Decimal
	Options   []types.SelectedOption
	Quantity  int
}

// Totals is an order's money summary, rounded to two places.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

// OptionsTotal sums the option modifiers.
func OptionsTotal(options []types.SelectedOption) decimal.Decimal {
	sum := decimal.Zero
	for _, opt := range options {
		sum = sum.Add(opt.PriceModifier)
	}
	return sum
}

// UnitPrice is base price plus all option modifiers.
func UnitPrice(basePrice decimal.Decimal, options []types.SelectedOption) decimal.Decimal {
	return Round(basePrice.Add(OptionsTotal(options)))
}

// LineTotal is (base + modifiers) * quantity.
func LineTotal(basePrice decimal.Decimal, options []types.SelectedOption, quantity int) decimal.Decimal {
	return UnitPrice(basePrice, options).Mul(decimal.NewFromInt(int64(quantity)))
}

// OrderTotal sums line totals and adds the delivery fee.
func OrderTotal(lines []decimal.Decimal, deliveryFee decimal.Decimal) decimal.Decimal {
	total := Round(deliveryFee)
	for _, l := range lines {
		total = total.Add(l)
	}
	return total
}

// Summarize prices every line once and returns the order totals.
func Summarize(lines []Line, deliveryFee decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.BasePrice, l.Options, l.Quantity))
	}
	fee := Round(deliveryFee)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee),
	}
}

// Round applies the money rounding rule (half away from zero, two places).
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(moneyPlaces)
}

// ToMinorUnits converts a major-unit amount to pence/cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return Round(amount).Mul(hundred).IntPart()
}

// FromMinorUnits converts pence/cents back to major units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -moneyPlaces)
}
