package models

import (
	"time"

	"github.com/google/uuid"
)

type BundleStatus string

const (
	BundleStatusActive     BundleStatus = "active"
	BundleStatusInactive   BundleStatus = "inactive"
	BundleStatusOutOfStock BundleStatus = "out_of_stock"
	BundleStatusExpired    BundleStatus = "expired"
)

type BundleItem struct {
	ProductID   int64    `json:"product_id"`
	ProductName string   `json:"product_name"`
	SKU         string   `json:"sku"`
	Quantity    int      `json:"quantity"`
	UnitPrice   float64  `json:"unit_price"`
	Discount    Discount `json:"discount,omitempty"`
}

// ProductBundle sells a fixed set of products at an aggregate price.
// OriginalPrice is frozen at creation from the catalog prices of the
// constituents; later product price drift does not touch it. Savings
// are re-derived whenever BundlePrice changes.
type ProductBundle struct {
	ID                 uuid.UUID    `json:"id"`
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	Items              []BundleItem `json:"items"`
	OriginalPrice      float64      `json:"original_price"`
	BundlePrice        float64      `json:"bundle_price"`
	SavingsAmount      float64      `json:"savings_amount"`
	SavingsPercentage  float64      `json:"savings_percentage"`
	AllowBackorder     bool         `json:"allow_backorder"`
	TotalQuantity      int          `json:"total_quantity"` // 0 means unlimited
	SoldQuantity       int          `json:"sold_quantity"`
	PerCustomerLimit   int          `json:"per_customer_limit"` // 0 means unlimited
	ValidFrom          time.Time    `json:"valid_from"`
	ValidUntil         time.Time    `json:"valid_until"`
	Status             BundleStatus `json:"status"`
	Version            int64        `json:"-"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// RecomputeSavings derives the savings fields from the two price
// snapshots. Called when BundlePrice changes, never on catalog drift.
func (b *ProductBundle) RecomputeSavings() {
	b.SavingsAmount = Round2(b.OriginalPrice - b.BundlePrice)

	if b.OriginalPrice > 0 {
		b.SavingsPercentage = Round2(b.SavingsAmount / b.OriginalPrice * 100)
	} else {
		b.SavingsPercentage = 0
	}
}

func (b *ProductBundle) RemainingQuantity() int {
	if b.TotalQuantity == 0 {
		return -1 // unlimited
	}

	remaining := b.TotalQuantity - b.SoldQuantity
	if remaining < 0 {
		remaining = 0
	}

	return remaining
}

// IsAvailable reports whether the bundle can be sold right now.
func (b *ProductBundle) IsAvailable(now time.Time) bool {
	if b.Status != BundleStatusActive {
		return false
	}

	if b.TotalQuantity > 0 && b.SoldQuantity >= b.TotalQuantity {
		return false
	}

	return !now.Before(b.ValidFrom) && !now.After(b.ValidUntil)
}

type CreateBundleRequest struct {
	Name             string              `json:"name" validate:"required,min=3,max=200"`
	Description      string              `json:"description,omitempty"`
	Items            []CreateBundleItem  `json:"items" validate:"required,min=2,dive"`
	BundlePrice      float64             `json:"bundle_price" validate:"required,gt=0"`
	TotalQuantity    int                 `json:"total_quantity" validate:"gte=0"`
	PerCustomerLimit int                 `json:"per_customer_limit" validate:"gte=0"`
	ValidFrom        time.Time           `json:"valid_from" validate:"required"`
	ValidUntil       time.Time           `json:"valid_until" validate:"required,gtfield=ValidFrom"`
}

type CreateBundleItem struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type UpdateBundlePriceRequest struct {
	BundlePrice float64 `json:"bundle_price" validate:"required,gt=0"`
}
