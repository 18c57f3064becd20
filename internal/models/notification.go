package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

type NotificationStatus string

const (
	NotificationOrderConfirmation NotificationType = "order_confirmation"
	NotificationPriceDropAlert    NotificationType = "price_drop_alert"
	NotificationFlashSaleStarting NotificationType = "flash_sale_starting"

	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// Notification records a delivery attempt. Sending is fire-and-forget;
// a failed row is the only trace a send leaves.
type Notification struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	Type      NotificationType   `json:"type"`
	Recipient string             `json:"recipient"`
	Subject   string             `json:"subject"`
	Status    NotificationStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type EmailMessage struct {
	To          string
	Subject     string
	Content     string
	HTMLContent string
}
