package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

type PaymentStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusReturned   OrderStatus = "returned"

	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusUnknown  PaymentStatus = "unknown"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// orderTransitions is the allowed status graph. Cancellation is only
// reachable pre-shipment; refund/return only post-payment.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusReturned},
	OrderStatusDelivered:  {OrderStatusReturned, OrderStatusRefunded},
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

type Address struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// OrderItem copies name/sku/price/image from the product at creation
// time. Historical orders never dereference the live catalog.
type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	SKU         string    `json:"sku"`
	ImageURL    string    `json:"image_url,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	FlashSaleID uuid.UUID `json:"flash_sale_id,omitempty"`
	BundleID    uuid.UUID `json:"bundle_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type TimelineEntry struct {
	Status    OrderStatus `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// Order is a terminal pricing snapshot: once created, the monetary
// fields and item prices are frozen. Only status, tracking and the
// timeline append afterwards.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Status          OrderStatus     `json:"status"`
	Items           []OrderItem     `json:"items"`
	Subtotal        float64         `json:"subtotal"`
	ShippingFee     float64         `json:"shipping_fee"`
	Tax             float64         `json:"tax"`
	CouponDiscount  float64         `json:"coupon_discount"`
	PointsDiscount  float64         `json:"points_discount"`
	PointsApplied   int             `json:"points_applied"`
	TotalAmount     float64         `json:"total_amount"`
	Currency        string          `json:"currency"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentRef      string          `json:"payment_ref,omitempty"`
	ShippingAddress *Address        `json:"shipping_address"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	Timeline        []TimelineEntry `json:"timeline"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	RefundedAt      *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CheckoutRequest struct {
	ShippingAddress Address `json:"shipping_address" validate:"required"`
	ShippingFee     float64 `json:"shipping_fee" validate:"gte=0"`
	Tax             float64 `json:"tax" validate:"gte=0"`
	// PointsToApply must have been validated through the loyalty
	// preview before checkout; the deduction happens here.
	PointsToApply int `json:"points_to_apply" validate:"gte=0"`
}

type UpdateOrderStatusRequest struct {
	Status  OrderStatus `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled refunded returned"`
	Message string      `json:"message,omitempty"`
}

type OrderHistoryResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Size   int     `json:"size"`
}
