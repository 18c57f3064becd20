package models_test

import (
	"testing"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	t.Run("Rounds Half Up", func(t *testing.T) {
		assert.Equal(t, 5.51, models.Round2(5.505))
		assert.Equal(t, 5.5, models.Round2(5.504))
		assert.Equal(t, 0.01, models.Round2(0.005))
	})

	t.Run("Leaves Exact Cents Alone", func(t *testing.T) {
		assert.Equal(t, 49.5, models.Round2(49.5))
		assert.Equal(t, 0.0, models.Round2(0))
	})
}

func TestDiscountAmountOff(t *testing.T) {
	t.Run("Percentage With Minimum Purchase Met", func(t *testing.T) {
		d := models.Discount{Type: models.DiscountTypePercentage, Value: 10, MinPurchase: 40}

		assert.Equal(t, 5.5, d.AmountOff(55))
	})

	t.Run("Percentage Below Minimum Purchase", func(t *testing.T) {
		d := models.Discount{Type: models.DiscountTypePercentage, Value: 10, MinPurchase: 40}

		assert.Equal(t, 0.0, d.AmountOff(39.99))
	})

	t.Run("Percentage Capped By MaxDiscount", func(t *testing.T) {
		d := models.Discount{Type: models.DiscountTypePercentage, Value: 50, MaxDiscount: 20}

		assert.Equal(t, 20.0, d.AmountOff(100))
	})

	t.Run("Fixed Amount Clamped To Subtotal", func(t *testing.T) {
		d := models.Discount{Type: models.DiscountTypeFixed, Value: 30}

		assert.Equal(t, 25.0, d.AmountOff(25))
	})

	t.Run("Zero Subtotal Yields Zero", func(t *testing.T) {
		d := models.Discount{Type: models.DiscountTypeFixed, Value: 10}

		assert.Equal(t, 0.0, d.AmountOff(0))
	})

	t.Run("Unknown Type Yields Zero", func(t *testing.T) {
		d := models.Discount{Type: "mystery", Value: 10}

		assert.Equal(t, 0.0, d.AmountOff(100))
	})
}

func TestCartRecompute(t *testing.T) {
	t.Run("Subtotal Coupon And Total", func(t *testing.T) {
		cart := &models.Cart{
			Lines: []models.CartLine{
				{ProductID: 1, Quantity: 2, UnitPrice: 20},
				{ProductID: 2, Quantity: 1, UnitPrice: 15},
			},
			Coupon: &models.Coupon{
				Code:     "SAVE10",
				Discount: models.Discount{Type: models.DiscountTypePercentage, Value: 10, MinPurchase: 40},
			},
		}

		cart.Recompute()

		assert.Equal(t, 55.0, cart.Subtotal)
		assert.Equal(t, 5.5, cart.Discount)
		assert.Equal(t, 49.5, cart.Total)
	})

	t.Run("Saved For Later Lines Excluded", func(t *testing.T) {
		cart := &models.Cart{
			Lines: []models.CartLine{
				{ProductID: 1, Quantity: 1, UnitPrice: 30},
				{ProductID: 2, Quantity: 1, UnitPrice: 99, SavedForLater: true},
			},
		}

		cart.Recompute()

		assert.Equal(t, 30.0, cart.Subtotal)
		assert.Equal(t, 30.0, cart.Total)
	})

	t.Run("Recompute Is Idempotent", func(t *testing.T) {
		cart := &models.Cart{
			Lines: []models.CartLine{{ProductID: 1, Quantity: 3, UnitPrice: 9.99}},
		}

		cart.Recompute()
		first := cart.Total
		cart.Recompute()

		assert.Equal(t, first, cart.Total)
	})

	t.Run("Discount Never Exceeds Subtotal", func(t *testing.T) {
		cart := &models.Cart{
			Lines: []models.CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
			Coupon: &models.Coupon{
				Code:     "BIG",
				Discount: models.Discount{Type: models.DiscountTypeFixed, Value: 50},
			},
		}

		cart.Recompute()

		assert.Equal(t, 10.0, cart.Discount)
		assert.Equal(t, 0.0, cart.Total)
	})
}
