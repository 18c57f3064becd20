package models

import "math"

// Monetary amounts are plain float64 dollars, normalized to two decimal
// places with half-up rounding before they are stored or returned.

func Round2(amount float64) float64 {
	return math.Floor(amount*100+0.5) / 100
}

func PercentOf(amount, percent float64) float64 {
	return Round2(amount * percent / 100)
}

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// Discount is the closed variant shared by coupons and reward codes:
// either a percentage of the subtotal with an optional cap, or a fixed
// amount. MinPurchase gates eligibility in both cases.
type Discount struct {
	Type        DiscountType `json:"type"`
	Value       float64      `json:"value"`
	MaxDiscount float64      `json:"max_discount,omitempty"`
	MinPurchase float64      `json:"min_purchase,omitempty"`
}

// AmountOff evaluates the discount against a subtotal. The result is
// zero when the subtotal misses the minimum purchase, capped by
// MaxDiscount for percentage discounts, and never exceeds the subtotal.
func (d Discount) AmountOff(subtotal float64) float64 {
	if subtotal <= 0 {
		return 0
	}

	if d.MinPurchase > 0 && subtotal < d.MinPurchase {
		return 0
	}

	var amount float64

	switch d.Type {
	case DiscountTypePercentage:
		amount = PercentOf(subtotal, d.Value)
		if d.MaxDiscount > 0 && amount > d.MaxDiscount {
			amount = d.MaxDiscount
		}
	case DiscountTypeFixed:
		amount = d.Value
	default:
		return 0
	}

	if amount > subtotal {
		amount = subtotal
	}

	return Round2(amount)
}
