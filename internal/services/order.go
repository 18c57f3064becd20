package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/config"
	apperrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/metrics"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
	stripepkg "github.com/adityamenon-dev/promo-commerce-platform/pkg/stripe"
	"github.com/google/uuid"
)

// OrderService assembles orders out of the cart, the three inventory
// paths (flash sale, bundle, plain catalog) and the loyalty program.
// Checkout reserves stock line by line and compensates on the first
// failure; an order row only exists once every reservation held.
type OrderService struct {
	repo             repository.OrderRepository
	cartService      *CartService
	productService   *ProductService
	bundleService    *BundleService
	flashSaleService *FlashSaleService
	loyaltyService   *LoyaltyService
	notifier         *NotificationService
	gateway          stripepkg.Gateway
	stripeCfg        config.Stripe
}

func NewOrderService(
	repo repository.OrderRepository,
	cartService *CartService,
	productService *ProductService,
	bundleService *BundleService,
	flashSaleService *FlashSaleService,
	loyaltyService *LoyaltyService,
	notifier *NotificationService,
	gateway stripepkg.Gateway,
	stripeCfg config.Stripe,
) *OrderService {
	return &OrderService{
		repo:             repo,
		cartService:      cartService,
		productService:   productService,
		bundleService:    bundleService,
		flashSaleService: flashSaleService,
		loyaltyService:   loyaltyService,
		notifier:         notifier,
		gateway:          gateway,
		stripeCfg:        stripeCfg,
	}
}

// Checkout turns the active cart lines into a pending order. Steps, in
// order: reserve stock per line (flash sale, bundle or catalog),
// validate the points application, freeze pricing, persist, deduct
// points, clear the cart. Any reservation failure releases everything
// reserved before it.
func (s *OrderService) Checkout(ctx context.Context, customerID uuid.UUID, req *models.CheckoutRequest) (*models.Order, error) {
	cart, err := s.cartService.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	lines := cart.ActiveLines()
	if len(lines) == 0 {
		return nil, apperrors.BadRequestError("Cart is empty")
	}

	var reserved []models.CartLine

	for _, line := range lines {
		if err := s.reserveLine(ctx, customerID, line); err != nil {
			s.releaseLines(ctx, customerID, reserved)
			metrics.ObserveCheckout("reservation_failed")

			return nil, err
		}

		reserved = append(reserved, line)
	}

	order, err := s.buildOrder(ctx, customerID, cart, lines, req)
	if err != nil {
		s.releaseLines(ctx, customerID, reserved)
		metrics.ObserveCheckout("pricing_failed")

		return nil, err
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		s.releaseLines(ctx, customerID, reserved)
		metrics.ObserveCheckout("persist_failed")

		return nil, apperrors.DatabaseError("Failed to create order").WithError(err)
	}

	if order.PointsApplied > 0 {
		if err := s.loyaltyService.DeductPoints(ctx, customerID, order.PointsApplied, "order:"+order.OrderNumber); err != nil {
			slog.Error("failed to deduct applied points",
				slog.String("order", order.OrderNumber),
				slog.String("error", err.Error()))
		}
	}

	if _, err := s.cartService.Clear(ctx, customerID); err != nil {
		slog.Warn("failed to clear cart after checkout",
			slog.String("order", order.OrderNumber),
			slog.String("error", err.Error()))
	}

	metrics.ObserveCheckout("created")

	return order, nil
}

func (s *OrderService) reserveLine(ctx context.Context, customerID uuid.UUID, line models.CartLine) error {
	switch {
	case line.FlashSaleID != uuid.Nil:
		_, err := s.flashSaleService.ReserveStock(ctx, line.FlashSaleID, customerID, &models.ReserveStockRequest{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})

		return err
	case line.BundleID != uuid.Nil:
		if _, err := s.bundleService.ValidateForPurchase(ctx, line.BundleID, line.Quantity); err != nil {
			return err
		}

		return s.bundleService.RecordSale(ctx, line.BundleID, line.Quantity)
	default:
		return s.productService.DecrementStock(ctx, line.ProductID, line.Quantity)
	}
}

// releaseLines undoes successful reservations after a later step
// failed. Each release is attempted even if an earlier one errors; a
// leaked reservation is logged, not fatal.
func (s *OrderService) releaseLines(ctx context.Context, customerID uuid.UUID, reserved []models.CartLine) {
	for _, line := range reserved {
		var err error

		switch {
		case line.FlashSaleID != uuid.Nil:
			err = s.flashSaleService.ReleaseStock(ctx, line.FlashSaleID, customerID, line.ProductID, line.Quantity)
		case line.BundleID != uuid.Nil:
			err = s.bundleService.ReleaseSale(ctx, line.BundleID, line.Quantity)
		default:
			err = s.productService.RestoreStock(ctx, line.ProductID, line.Quantity)
		}

		if err != nil {
			slog.Error("failed to release reservation during rollback",
				slog.Int64("product_id", line.ProductID),
				slog.Int("quantity", line.Quantity),
				slog.String("error", err.Error()))
		}
	}
}

func (s *OrderService) buildOrder(ctx context.Context, customerID uuid.UUID, cart *models.Cart, lines []models.CartLine, req *models.CheckoutRequest) (*models.Order, error) {
	var subtotal float64

	items := make([]models.OrderItem, 0, len(lines))

	orderID := uuid.New()

	for _, line := range lines {
		item := models.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			FlashSaleID: line.FlashSaleID,
			BundleID:    line.BundleID,
		}

		if line.BundleID == uuid.Nil {
			if product, err := s.productService.GetProduct(ctx, line.ProductID); err == nil {
				item.SKU = product.SKU
				item.ImageURL = product.ImageURL
			}
		}

		items = append(items, item)
		subtotal += line.LineTotal()
	}

	subtotal = models.Round2(subtotal)
	couponDiscount := cart.Discount

	var (
		pointsDiscount float64
		pointsApplied  int
	)

	if req.PointsToApply > 0 {
		preview, err := s.loyaltyService.ApplyPointsAsDiscount(ctx, customerID, &models.ApplyPointsRequest{
			Points:     req.PointsToApply,
			OrderTotal: models.Round2(subtotal - couponDiscount),
		})
		if err != nil {
			return nil, err
		}

		pointsDiscount = preview.Discount
		pointsApplied = preview.Points
	}

	total := models.Round2(subtotal - couponDiscount - pointsDiscount)
	if total < 0 {
		total = 0
	}

	total = models.Round2(total + req.ShippingFee + req.Tax)

	order := &models.Order{
		ID:             orderID,
		OrderNumber:    generateOrderNumber(),
		CustomerID:     customerID,
		Status:         models.OrderStatusPending,
		Items:          items,
		Subtotal:       subtotal,
		ShippingFee:    req.ShippingFee,
		Tax:            req.Tax,
		CouponDiscount: couponDiscount,
		PointsDiscount: pointsDiscount,
		PointsApplied:  pointsApplied,
		TotalAmount:    total,
		Currency:       cart.Currency,
		PaymentStatus:  models.PaymentStatusPending,
		ShippingAddress: &models.Address{
			Street:     req.ShippingAddress.Street,
			City:       req.ShippingAddress.City,
			State:      req.ShippingAddress.State,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		Timeline: []models.TimelineEntry{{
			Status:    models.OrderStatusPending,
			Message:   "Order created",
			Timestamp: time.Now(),
		}},
	}

	if cart.Coupon != nil {
		order.CouponCode = cart.Coupon.Code
	}

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.CustomerID != customerID {
		return nil, apperrors.ForbiddenError("Order belongs to another customer")
	}

	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, customerID uuid.UUID, page, size int) (*models.OrderHistoryResponse, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 50 {
		size = 20
	}

	orders, total, err := s.repo.ListOrdersByCustomer(ctx, customerID, page, size)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return &models.OrderHistoryResponse{Orders: orders, Total: total, Page: page, Size: size}, nil
}

// ConfirmPayment charges the order total. The charge runs under a hard
// timeout: if it expires, the outcome is unknown (the charge may have
// landed), so the order stays pending with payment marked unknown and
// nothing is rolled back. Idempotent for already-paid orders.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return order, nil
	}

	if order.Status != models.OrderStatusPending {
		return nil, apperrors.InvalidStateTransitionError(
			fmt.Sprintf("Cannot pay for an order that is %s", order.Status))
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.stripeCfg.ChargeTimeout)
	defer cancel()

	amount := int64(math.Round(order.TotalAmount * 100))

	result, err := s.gateway.Charge(chargeCtx, amount, strings.ToLower(order.Currency),
		"Order "+order.OrderNumber, customerID.String(), order.ID.String())
	if err != nil {
		if errors.Is(err, stripepkg.ErrUnknownOutcome) {
			if uerr := s.repo.UpdatePayment(ctx, order.ID, models.PaymentStatusUnknown, ""); uerr != nil {
				slog.Error("failed to mark payment unknown",
					slog.String("order", order.OrderNumber),
					slog.String("error", uerr.Error()))
			}

			metrics.ObserveCheckout("payment_unknown")

			return nil, apperrors.PaymentFailedError(
				"Payment outcome unknown, do not retry until it is resolved").WithError(err)
		}

		if uerr := s.repo.UpdatePayment(ctx, order.ID, models.PaymentStatusFailed, ""); uerr != nil {
			slog.Error("failed to mark payment failed",
				slog.String("order", order.OrderNumber),
				slog.String("error", uerr.Error()))
		}

		metrics.ObserveCheckout("payment_failed")

		return nil, apperrors.PaymentFailedError("Payment was declined").WithError(err)
	}

	return s.settlePayment(ctx, order, result.TransactionRef, "")
}

// HandlePaymentSucceeded is the webhook path: Stripe confirmed the
// charge out of band. Idempotent, a repeated event is a no-op.
func (s *OrderService) HandlePaymentSucceeded(ctx context.Context, orderID uuid.UUID, paymentRef, receiptEmail string) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return order, nil
	}

	return s.settlePayment(ctx, order, paymentRef, receiptEmail)
}

// settlePayment records the paid charge, confirms the order, awards
// the points the order earned, and fires the confirmation email.
func (s *OrderService) settlePayment(ctx context.Context, order *models.Order, paymentRef, receiptEmail string) (*models.Order, error) {
	if err := s.repo.UpdatePayment(ctx, order.ID, models.PaymentStatusPaid, paymentRef); err != nil {
		return nil, apperrors.DatabaseError("Failed to record payment").WithError(err)
	}

	order.PaymentStatus = models.PaymentStatusPaid
	order.PaymentRef = paymentRef

	confirmed, err := s.transition(ctx, order, models.OrderStatusConfirmed, "Payment received")
	if err != nil {
		return nil, err
	}

	if _, err := s.loyaltyService.EarnPoints(ctx, order.CustomerID, order.TotalAmount, "order:"+order.OrderNumber); err != nil {
		slog.Error("failed to award points",
			slog.String("order", order.OrderNumber),
			slog.String("error", err.Error()))
	}

	if receiptEmail != "" {
		go s.notifier.SendOrderConfirmation(context.WithoutCancel(ctx), order.CustomerID, receiptEmail, confirmed)
	}

	metrics.ObserveCheckout("paid")

	return confirmed, nil
}

// Cancel releases every reservation the order holds and refunds the
// charge and the applied points where present. Only pending and
// confirmed orders can be cancelled.
func (s *OrderService) Cancel(ctx context.Context, orderID, customerID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(order.Status, models.OrderStatusCancelled) {
		return nil, apperrors.InvalidStateTransitionError(
			fmt.Sprintf("Cannot cancel an order that is %s", order.Status))
	}

	s.releaseLines(ctx, customerID, itemsAsLines(order.Items))

	if order.PointsApplied > 0 {
		if err := s.loyaltyService.RefundPoints(ctx, customerID, order.PointsApplied, "cancel:"+order.OrderNumber); err != nil {
			slog.Error("failed to refund points on cancel",
				slog.String("order", order.OrderNumber),
				slog.String("error", err.Error()))
		}
	}

	if order.PaymentStatus == models.PaymentStatusPaid && order.PaymentRef != "" {
		amount := int64(math.Round(order.TotalAmount * 100))

		if _, err := s.gateway.Refund(ctx, order.PaymentRef, amount, reason); err != nil {
			return nil, apperrors.ThirdPartyError("Failed to refund payment").WithError(err)
		}

		if err := s.repo.UpdatePayment(ctx, order.ID, models.PaymentStatusRefunded, order.PaymentRef); err != nil {
			slog.Error("failed to record refund",
				slog.String("order", order.OrderNumber),
				slog.String("error", err.Error()))
		}
	}

	message := "Order cancelled"
	if reason != "" {
		message = "Order cancelled: " + reason
	}

	return s.transition(ctx, order, models.OrderStatusCancelled, message)
}

// UpdateStatus moves the order along the allowed status graph and
// stamps the matching timestamp field.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(order.Status, req.Status) {
		return nil, apperrors.InvalidStateTransitionError(
			fmt.Sprintf("Cannot move order from %s to %s", order.Status, req.Status))
	}

	message := req.Message
	if message == "" {
		message = fmt.Sprintf("Status changed to %s", req.Status)
	}

	return s.transition(ctx, order, req.Status, message)
}

func (s *OrderService) transition(ctx context.Context, order *models.Order, to models.OrderStatus, message string) (*models.Order, error) {
	now := time.Now()

	order.Status = to

	switch to {
	case models.OrderStatusShipped:
		order.ShippedAt = &now
	case models.OrderStatusDelivered:
		order.DeliveredAt = &now
	case models.OrderStatusCancelled:
		order.CancelledAt = &now
	case models.OrderStatusRefunded:
		order.RefundedAt = &now
	}

	entry := models.TimelineEntry{Status: to, Message: message, Timestamp: now}

	if err := s.repo.UpdateStatus(ctx, order, entry); err != nil {
		return nil, apperrors.DatabaseError("Failed to update order status").WithError(err)
	}

	order.Timeline = append(order.Timeline, entry)

	return order, nil
}

func (s *OrderService) getOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Order not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to fetch order").WithError(err)
	}

	return order, nil
}

func itemsAsLines(items []models.OrderItem) []models.CartLine {
	lines := make([]models.CartLine, 0, len(items))

	for _, item := range items {
		lines = append(lines, models.CartLine{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			FlashSaleID: item.FlashSaleID,
			BundleID:    item.BundleID,
		})
	}

	return lines
}

func generateOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))

	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), id[:8])
}
