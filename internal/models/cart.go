package models

import (
	"time"

	"github.com/google/uuid"
)

// Variant optionally overrides the catalog presentation of a line
// (e.g. "Large / Red" with its own sku and price).
type Variant struct {
	Name          string   `json:"name,omitempty"`
	SKU           string   `json:"sku,omitempty"`
	PriceOverride *float64 `json:"price_override,omitempty"`
}

// CartLine snapshots the unit price at add time. The price is never
// recomputed from the live catalog afterwards, so a price change
// mid-session cannot drift the customer's cart.
type CartLine struct {
	ID            uuid.UUID `json:"id"`
	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int       `json:"quantity"`
	UnitPrice     float64   `json:"unit_price"`
	Variant       *Variant  `json:"variant,omitempty"`
	FlashSaleID   uuid.UUID `json:"flash_sale_id,omitempty"`
	BundleID      uuid.UUID `json:"bundle_id,omitempty"`
	SavedForLater bool      `json:"saved_for_later"`
	AddedAt       time.Time `json:"added_at"`
}

func (l *CartLine) LineTotal() float64 {
	return Round2(l.UnitPrice * float64(l.Quantity))
}

// SameProduct reports whether another add targets this line: same
// product and same variant sku (or both without a variant).
func (l *CartLine) SameProduct(productID int64, variant *Variant) bool {
	if l.ProductID != productID {
		return false
	}

	if l.Variant == nil || variant == nil {
		return l.Variant == nil && variant == nil
	}

	return l.Variant.SKU == variant.SKU
}

// Coupon lives only inside a cart or an order snapshot, never as a
// standalone entity.
type Coupon struct {
	Code     string   `json:"code"`
	Discount Discount `json:"discount"`
}

type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	Coupon    *Coupon    `json:"coupon,omitempty"`
	Currency  string     `json:"currency"`
	Subtotal  float64    `json:"subtotal"`
	Discount  float64    `json:"discount"`
	Total     float64    `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Recompute derives subtotal, discount and total from the lines and
// coupon. Saved-for-later lines are excluded. Idempotent: calling it
// twice without a mutation yields identical totals.
func (c *Cart) Recompute() {
	var subtotal float64

	for i := range c.Lines {
		if c.Lines[i].SavedForLater {
			continue
		}

		subtotal += c.Lines[i].LineTotal()
	}

	c.Subtotal = Round2(subtotal)

	var discount float64
	if c.Coupon != nil {
		discount = c.Coupon.Discount.AmountOff(c.Subtotal)
	}

	if discount > c.Subtotal {
		discount = c.Subtotal
	}

	c.Discount = Round2(discount)
	c.Total = Round2(c.Subtotal - c.Discount)
}

// ActiveLines returns the lines that participate in checkout.
func (c *Cart) ActiveLines() []CartLine {
	active := make([]CartLine, 0, len(c.Lines))

	for _, line := range c.Lines {
		if !line.SavedForLater {
			active = append(active, line)
		}
	}

	return active
}

func (c *Cart) FindLine(lineID uuid.UUID) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i]
		}
	}

	return nil
}

type AddItemRequest struct {
	ProductID int64    `json:"product_id" validate:"required"`
	Quantity  int      `json:"quantity"   validate:"required,min=1"`
	Variant   *Variant `json:"variant,omitempty"`
}

type AddBundleRequest struct {
	BundleID uuid.UUID `json:"bundle_id" validate:"required"`
	Quantity int       `json:"quantity"  validate:"required,min=1"`
}

type UpdateQuantityRequest struct {
	LineID   uuid.UUID `json:"line_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1"`
}

type ApplyCouponRequest struct {
	Code        string       `json:"code" validate:"required,min=3,max=50"`
	Type        DiscountType `json:"type" validate:"required,oneof=percentage fixed"`
	Value       float64      `json:"value" validate:"required,gt=0"`
	MinPurchase float64      `json:"min_purchase" validate:"gte=0"`
	MaxDiscount float64      `json:"max_discount" validate:"gte=0"`
}
