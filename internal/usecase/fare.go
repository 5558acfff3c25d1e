package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTaxRatePercent is the VAT applied to every fare.
const DefaultTaxRatePercent = 18

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

type Fare struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// FareEngine prices seat requests. The zero value uses DefaultTaxRatePercent.
type FareEngine struct {
	taxRate    decimal.Decimal
	customRate bool
}

func NewFareEngine(taxRatePercent string) (FareEngine, error) {
	if taxRatePercent == "" {
		return FareEngine{}, nil
	}
	rate, err := decimal.NewFromString(taxRatePercent)
	if err != nil {
		return FareEngine{}, fmt.Errorf("parse tax rate %q: %w", taxRatePercent, err)
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return FareEngine{}, fmt.Errorf("tax rate %s out of range", rate)
	}
	return FareEngine{taxRate: rate, customRate: true}, nil
}

// ComputeFare prices seatCount seats at the default tax rate.
func ComputeFare(pricePerSeat decimal.Decimal, seatCount int, discountPercent decimal.Decimal) (Fare, error) {
	return FareEngine{}.Compute(pricePerSeat, seatCount, discountPercent)
}

// Compute returns subtotal, discount, tax and total. Discount and tax are
// rounded half-up to the minor unit before they are summed.
func (e FareEngine) Compute(pricePerSeat decimal.Decimal, seatCount int, discountPercent decimal.Decimal) (Fare, error) {
	switch {
	case pricePerSeat.IsNegative():
		return Fare{}, invalid("price_per_seat", "must not be negative")
	case seatCount < 1:
		return Fare{}, invalid("seat_count", "must be at least 1")
	case discountPercent.IsNegative() || discountPercent.GreaterThan(hundred):
		return Fare{}, invalid("discount_percent", "must be between 0 and 100")
	}

	rate := decimal.NewFromInt(DefaultTaxRatePercent)
	if e.customRate {
		rate = e.taxRate
	}

	subtotal := pricePerSeat.Mul(decimal.NewFromInt(int64(seatCount))).Round(moneyPlaces)
	discount := subtotal.Mul(discountPercent).Div(hundred).Round(moneyPlaces)
	tax := subtotal.Sub(discount).Mul(rate).Div(hundred).Round(moneyPlaces)
	total := subtotal.Sub(discount).Add(tax).Round(moneyPlaces)

	return Fare{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    total,
	}, nil
}
