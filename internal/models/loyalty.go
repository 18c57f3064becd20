package models

import (
	"time"

	"github.com/google/uuid"
)

type LoyaltyTier string

const (
	TierBronze   LoyaltyTier = "bronze"
	TierSilver   LoyaltyTier = "silver"
	TierGold     LoyaltyTier = "gold"
	TierPlatinum LoyaltyTier = "platinum"
	TierDiamond  LoyaltyTier = "diamond"
)

type PointsEntryType string

const (
	PointsEntryEarn   PointsEntryType = "earn"
	PointsEntryRedeem PointsEntryType = "redeem"
	PointsEntryExpire PointsEntryType = "expire"
	PointsEntryBonus  PointsEntryType = "bonus"
	PointsEntryRefund PointsEntryType = "refund"
)

// PointsEntry is one signed row of the append-only ledger. The ledger
// is owned by the loyalty service and paginated separately from the
// balance row; it is never loaded whole for a status read.
type PointsEntry struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      PointsEntryType `json:"type"`
	Points    int             `json:"points"` // signed delta
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// LoyaltySummary is the per-user balance row. LifetimePoints is
// monotonic: redemptions and expiry reduce AvailablePoints only.
type LoyaltySummary struct {
	UserID          uuid.UUID   `json:"user_id"`
	TotalPoints     int         `json:"total_points"`
	AvailablePoints int         `json:"available_points"`
	LifetimePoints  int         `json:"lifetime_points"`
	Tier            LoyaltyTier `json:"tier"`
	TierProgress    float64     `json:"tier_progress"` // percent toward the next tier
	UpdatedAt       time.Time   `json:"updated_at"`
}

type RewardType string

const (
	RewardPercentageDiscount RewardType = "percentage_discount"
	RewardFixedDiscount      RewardType = "fixed_discount"
	RewardFreeShipping       RewardType = "free_shipping"
	RewardFreeProduct        RewardType = "free_product"
	RewardPointsMultiplier   RewardType = "points_multiplier"
)

type Reward struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Type            RewardType `json:"type"`
	Value           float64    `json:"value"`
	MinimumPoints   int        `json:"minimum_points"`
	MinimumPurchase float64    `json:"minimum_purchase"`
	MaxDiscount     float64    `json:"max_discount,omitempty"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
}

type RedemptionStatus string

const (
	RedemptionStatusPending RedemptionStatus = "pending"
	RedemptionStatusActive  RedemptionStatus = "active"
	RedemptionStatusUsed    RedemptionStatus = "used"
	RedemptionStatusExpired RedemptionStatus = "expired"
)

// Redemption is the immutable record of points converted into a
// discount code.
type Redemption struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	RewardID    uuid.UUID        `json:"reward_id"`
	RewardType  RewardType       `json:"reward_type"`
	Value       float64          `json:"value"`
	PointsSpent int              `json:"points_spent"`
	Code        string           `json:"code"`
	Status      RedemptionStatus `json:"status"`
	ExpiresAt   time.Time        `json:"expires_at"`
	CreatedAt   time.Time        `json:"created_at"`
}

type RedeemRequest struct {
	RewardID uuid.UUID `json:"reward_id" validate:"required"`
}

type ApplyPointsRequest struct {
	Points     int     `json:"points" validate:"required,min=1"`
	OrderTotal float64 `json:"order_total" validate:"required,gt=0"`
}

type PointsDiscountPreview struct {
	Points   int     `json:"points"`
	Discount float64 `json:"discount"`
}

type LoyaltyStatusResponse struct {
	Summary    *LoyaltySummary `json:"summary"`
	NextTier   LoyaltyTier     `json:"next_tier,omitempty"`
	PointsToGo int             `json:"points_to_next_tier,omitempty"`
	Multiplier float64         `json:"multiplier"`
}
