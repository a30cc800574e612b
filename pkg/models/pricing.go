package models

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// FinalPrice is the discount price when it is positive and not above the
// list price, otherwise the list price.
func FinalPrice(p Product) decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive() && p.DiscountPrice.Decimal.LessThanOrEqual(p.Price) {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

// DiscountPercentage is the whole-number percentage saved, in [0, 100].
func DiscountPercentage(p Product) int {
	if !p.Price.IsPositive() {
		return 0
	}
	saved := p.Price.Sub(FinalPrice(p))
	return int(saved.Div(p.Price).Mul(hundred).Floor().IntPart())
}

// LineTotal is quantity times the product's current final price.
func LineTotal(c CartItem) decimal.Decimal {
	return FinalPrice(c.Product).Mul(decimal.NewFromInt(int64(c.Quantity)))
}

func CartTotal(lines []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(LineTotal(l))
	}
	return total
}

// ItemTotal is the frozen price times quantity of an order line.
func ItemTotal(i OrderItem) decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
