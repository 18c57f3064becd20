package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/api/middleware"
	apperrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	service "github.com/adityamenon-dev/promo-commerce-platform/internal/services"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils/response"
	stripepkg "github.com/adityamenon-dev/promo-commerce-platform/pkg/stripe"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v81"
)

// PaymentHandler owns the Stripe webhook endpoint. Orders reference
// themselves in the payment intent metadata, so the event alone is
// enough to resolve which order was paid.
type PaymentHandler struct {
	orderService *service.OrderService
	gateway      stripepkg.Gateway
}

func NewPaymentHandler(orderService *service.OrderService, gateway stripepkg.Gateway) *PaymentHandler {
	return &PaymentHandler{orderService: orderService, gateway: gateway}
}

func (h *PaymentHandler) HandleStripeWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error("Error reading webhook body", slog.String("error", err.Error()))
			response.Error(w, apperrors.BadRequestError("Failed to read request body"))

			return
		}

		signature := r.Header.Get("Stripe-Signature")
		if signature == "" {
			logger.Error("Missing Stripe signature")
			response.Error(w, apperrors.BadRequestError("Stripe signature is required"))

			return
		}

		event, err := h.gateway.VerifyWebhookSignature(payload, signature)
		if err != nil {
			logger.Error("Webhook signature verification failed", slog.String("error", err.Error()))
			response.Error(w, apperrors.UnauthorizedError("Invalid webhook signature"))

			return
		}

		if event.Type != "payment_intent.succeeded" {
			// acknowledge so Stripe stops retrying, nothing to do
			response.Success(w, http.StatusOK, map[string]bool{"success": true})

			return
		}

		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			logger.Error("Failed to decode payment intent", slog.String("error", err.Error()))
			response.Error(w, apperrors.BadRequestError("Malformed event payload"))

			return
		}

		orderID, err := uuid.Parse(intent.Metadata["order_id"])
		if err != nil {
			logger.Error("Payment intent without a valid order_id",
				slog.String("intent", intent.ID))
			response.Error(w, apperrors.BadRequestError("Event references no order"))

			return
		}

		order, err := h.orderService.HandlePaymentSucceeded(r.Context(), orderID, intent.ID, intent.ReceiptEmail)
		if err != nil {
			logger.Error("Failed to apply payment event",
				slog.String("order_id", orderID.String()),
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		logger.Info("Payment webhook processed",
			slog.String("order", order.OrderNumber),
			slog.String("intent", intent.ID))
		response.Success(w, http.StatusOK, map[string]bool{"success": true})
	}
}
