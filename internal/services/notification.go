package service

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
	"github.com/adityamenon-dev/promo-commerce-platform/pkg/sendgrid"
	"github.com/google/uuid"
)

// NotificationService sends transactional email. Delivery failures are
// recorded and logged, never propagated: an order must not fail because
// the confirmation email did.
type NotificationService struct {
	repo  repository.NotificationRepository
	email sendgrid.EmailService
}

func NewNotificationService(repo repository.NotificationRepository, email sendgrid.EmailService) *NotificationService {
	return &NotificationService{repo: repo, email: email}
}

func (s *NotificationService) SendOrderConfirmation(ctx context.Context, userID uuid.UUID, recipient string, order *models.Order) {
	subject := fmt.Sprintf("Order %s confirmed", order.OrderNumber)

	body := fmt.Sprintf(
		"Thanks for your order!\n\nOrder number: %s\nItems: %d\nTotal: %.2f %s\n",
		order.OrderNumber, len(order.Items), order.TotalAmount, order.Currency,
	)

	s.send(ctx, userID, models.NotificationOrderConfirmation, recipient, subject, body)
}

func (s *NotificationService) SendPriceDropAlert(ctx context.Context, userID uuid.UUID, recipient string, product *models.Product, oldPrice float64) {
	subject := fmt.Sprintf("Price drop: %s", product.Name)

	body := fmt.Sprintf(
		"%s dropped from %.2f to %.2f.\n",
		product.Name, oldPrice, product.Price,
	)

	s.send(ctx, userID, models.NotificationPriceDropAlert, recipient, subject, body)
}

func (s *NotificationService) SendFlashSaleStarting(ctx context.Context, userID uuid.UUID, recipient string, sale *models.FlashSale) {
	subject := fmt.Sprintf("Flash sale starting: %s", sale.Name)

	body := fmt.Sprintf(
		"%s starts at %s. %d products at flash prices.\n",
		sale.Name, sale.Schedule.StartTime.Format("Jan 2 15:04 MST"), len(sale.Products),
	)

	s.send(ctx, userID, models.NotificationFlashSaleStarting, recipient, subject, body)
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Notification, int, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 100 {
		size = 20
	}

	notifications, total, err := s.repo.ListNotificationsByUser(ctx, userID, page, size)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to fetch notifications").WithError(err)
	}

	return notifications, total, nil
}

func (s *NotificationService) send(ctx context.Context, userID uuid.UUID, notifType models.NotificationType, recipient, subject, body string) {
	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Recipient: recipient,
		Subject:   subject,
		Status:    models.NotificationStatusSent,
	}

	err := s.email.Send(ctx, &models.EmailMessage{
		To:      recipient,
		Subject: subject,
		Content: body,
	})
	if err != nil {
		slog.Error("failed to send notification",
			slog.String("type", string(notifType)),
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))

		notification.Status = models.NotificationStatusFailed
		notification.Error = err.Error()
	}

	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		slog.Error("failed to record notification", slog.String("error", err.Error()))
	}
}
