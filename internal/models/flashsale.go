package models

import (
	"time"

	"github.com/google/uuid"
)

type FlashSaleStatus string

const (
	FlashSaleStatusScheduled FlashSaleStatus = "scheduled"
	FlashSaleStatusActive    FlashSaleStatus = "active"
	FlashSaleStatusPaused    FlashSaleStatus = "paused"
	FlashSaleStatusEnded     FlashSaleStatus = "ended"
	FlashSaleStatusSoldOut   FlashSaleStatus = "sold_out"
)

type FlashSaleProduct struct {
	ProductID          int64   `json:"product_id"`
	ProductName        string  `json:"product_name"`
	FlashPrice         float64 `json:"flash_price"`
	OriginalPrice      float64 `json:"original_price"`
	DiscountPercentage int     `json:"discount_percentage"`
	Stock              int     `json:"stock"`
	SoldCount          int     `json:"sold_count"`
	MaxPerCustomer     int     `json:"max_per_customer"` // 0 means unlimited
}

type FlashSaleSchedule struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Timezone  string    `json:"timezone,omitempty"`
	// Recurrence is display metadata only; a recurring sale is
	// materialized as a fresh sale per occurrence.
	Recurrence string `json:"recurrence,omitempty"`
}

// FlashSale is a time-boxed pool of discounted per-product stock.
// Status is derived from the clock and stock exhaustion, except while a
// manual override (pause / force-end) from inside the current window is
// in effect.
type FlashSale struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Products    []FlashSaleProduct `json:"products"`
	Schedule    FlashSaleSchedule  `json:"schedule"`
	Status      FlashSaleStatus    `json:"status"`
	// OverrideSetAt is non-zero while Status holds a manual override.
	// Once the schedule advances past the window the override was set
	// in, derivation takes precedence again.
	OverrideSetAt *time.Time `json:"override_set_at,omitempty"`
	BannerURL     string     `json:"banner_url,omitempty"`
	Priority      int        `json:"priority"`
	Version       int64      `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s *FlashSale) Product(productID int64) *FlashSaleProduct {
	for i := range s.Products {
		if s.Products[i].ProductID == productID {
			return &s.Products[i]
		}
	}

	return nil
}

func (s *FlashSale) AllSoldOut() bool {
	for i := range s.Products {
		if s.Products[i].Stock > 0 {
			return false
		}
	}

	return len(s.Products) > 0
}

func (s *FlashSale) overrideInEffect(now time.Time) bool {
	if s.OverrideSetAt == nil {
		return false
	}

	// An override set before the current window opened belongs to a
	// previous schedule and no longer applies.
	return !s.OverrideSetAt.Before(s.Schedule.StartTime) && now.Before(s.Schedule.EndTime)
}

// EffectiveStatus derives the status for the given instant. Manual
// pause / force-end set within the current window wins until the
// schedule moves on.
func (s *FlashSale) EffectiveStatus(now time.Time) FlashSaleStatus {
	if s.overrideInEffect(now) && (s.Status == FlashSaleStatusPaused || s.Status == FlashSaleStatusEnded) {
		return s.Status
	}

	switch {
	case now.Before(s.Schedule.StartTime):
		return FlashSaleStatusScheduled
	case now.After(s.Schedule.EndTime):
		return FlashSaleStatusEnded
	case s.AllSoldOut():
		return FlashSaleStatusSoldOut
	default:
		return FlashSaleStatusActive
	}
}

type FlashSalePhase string

const (
	FlashSalePhaseUpcoming FlashSalePhase = "upcoming"
	FlashSalePhaseActive   FlashSalePhase = "active"
	FlashSalePhaseEnded    FlashSalePhase = "ended"
)

// TimeRemaining is the countdown payload the storefront renders.
type TimeRemaining struct {
	Phase        FlashSalePhase `json:"phase"`
	Milliseconds int64          `json:"milliseconds"`
	Days         int            `json:"days"`
	Hours        int            `json:"hours"`
	Minutes      int            `json:"minutes"`
	Seconds      int            `json:"seconds"`
}

// CountdownAt reports the phase and the time until the next phase
// boundary: until start while upcoming, until end while active.
func (s *FlashSale) CountdownAt(now time.Time) TimeRemaining {
	var (
		phase FlashSalePhase
		until time.Duration
	)

	switch {
	case now.Before(s.Schedule.StartTime):
		phase = FlashSalePhaseUpcoming
		until = s.Schedule.StartTime.Sub(now)
	case now.After(s.Schedule.EndTime):
		phase = FlashSalePhaseEnded
		until = 0
	default:
		phase = FlashSalePhaseActive
		until = s.Schedule.EndTime.Sub(now)
	}

	remaining := TimeRemaining{
		Phase:        phase,
		Milliseconds: until.Milliseconds(),
	}

	secs := int(until.Seconds())
	remaining.Days = secs / 86400
	remaining.Hours = secs % 86400 / 3600
	remaining.Minutes = secs % 3600 / 60
	remaining.Seconds = secs % 60

	return remaining
}

type CreateFlashSaleRequest struct {
	Name        string                   `json:"name" validate:"required,min=3,max=200"`
	Description string                   `json:"description,omitempty"`
	Products    []CreateFlashSaleProduct `json:"products" validate:"required,min=1,dive"`
	StartTime   time.Time                `json:"start_time" validate:"required"`
	EndTime     time.Time                `json:"end_time" validate:"required,gtfield=StartTime"`
	Timezone    string                   `json:"timezone,omitempty"`
	BannerURL   string                   `json:"banner_url,omitempty" validate:"omitempty,url"`
	Priority    int                      `json:"priority" validate:"gte=0"`
}

type CreateFlashSaleProduct struct {
	ProductID      int64   `json:"product_id" validate:"required"`
	FlashPrice     float64 `json:"flash_price" validate:"required,gt=0"`
	Stock          int     `json:"stock" validate:"required,min=1"`
	MaxPerCustomer int     `json:"max_per_customer" validate:"gte=0"`
}

type ReserveStockRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type ReservationResult struct {
	SaleID         uuid.UUID       `json:"sale_id"`
	ProductID      int64           `json:"product_id"`
	Quantity       int             `json:"quantity"`
	RemainingStock int             `json:"remaining_stock"`
	SaleStatus     FlashSaleStatus `json:"sale_status"`
}
