package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/config"
	appErrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
	service "github.com/adityamenon-dev/promo-commerce-platform/internal/services"
	stripepkg "github.com/adityamenon-dev/promo-commerce-platform/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Charge(ctx context.Context, amount int64, currency, description, customerRef, orderRef string) (*stripepkg.ChargeResult, error) {
	args := m.Called(ctx, amount, currency, description, customerRef, orderRef)

	if result, ok := args.Get(0).(*stripepkg.ChargeResult); ok {
		return result, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, transactionRef string, amount int64, reason string) (*stripepkg.ChargeResult, error) {
	args := m.Called(ctx, transactionRef, amount, reason)

	if result, ok := args.Get(0).(*stripepkg.ChargeResult); ok {
		return result, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) VerifyWebhookSignature(payload []byte, signature string) (stripepkg.Event, error) {
	args := m.Called(payload, signature)

	return args.Get(0).(stripepkg.Event), args.Error(1)
}

type orderFixture struct {
	orderRepo   *repository.MockOrderRepository
	cartRepo    *repository.MockCartRepository
	productRepo *repository.MockProductRepository
	bundleRepo  *repository.MockBundleRepository
	saleRepo    *repository.MockFlashSaleRepository
	loyaltyRepo *repository.MockLoyaltyRepository
	gateway     *mockGateway

	cartService  *service.CartService
	orderService *service.OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orderRepo:   repository.NewMockOrderRepository(),
		cartRepo:    repository.NewMockCartRepository(),
		productRepo: repository.NewMockProductRepository(),
		bundleRepo:  repository.NewMockBundleRepository(),
		saleRepo:    repository.NewMockFlashSaleRepository(),
		loyaltyRepo: repository.NewMockLoyaltyRepository(),
		gateway:     &mockGateway{},
	}

	productService := service.NewProductService(f.productRepo, nil, 0)
	bundleService := service.NewBundleService(f.bundleRepo, productService)
	flashSaleService := service.NewFlashSaleService(f.saleRepo, productService, testRetryCfg)
	loyaltyService := service.NewLoyaltyService(f.loyaltyRepo, testLoyaltyCfg)
	f.cartService = service.NewCartService(f.cartRepo, productService, flashSaleService, bundleService)

	f.orderService = service.NewOrderService(
		f.orderRepo, f.cartService, productService, bundleService, flashSaleService,
		loyaltyService, nil, f.gateway, config.Stripe{ChargeTimeout: time.Second})

	return f
}

func checkoutCart(userID uuid.UUID, lines ...models.CartLine) *models.Cart {
	cart := &models.Cart{
		ID:       uuid.New(),
		UserID:   userID,
		Lines:    lines,
		Currency: "usd",
	}

	cart.Recompute()

	return cart
}

var shipTo = models.Address{
	Street:     "1 Market St",
	City:       "Bengaluru",
	State:      "KA",
	PostalCode: "560001",
	Country:    "IN",
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("Success - Plain Catalog Line", func(t *testing.T) {
		f := newOrderFixture()
		cart := checkoutCart(customerID, models.CartLine{
			ID: uuid.New(), ProductID: 7, ProductName: "Headphones", Quantity: 2, UnitPrice: 20,
		})
		f.cartRepo.On("GetCartByUserID", ctx, customerID).Return(cart, nil).Twice()
		f.cartRepo.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()
		f.productRepo.On("DecrementStock", ctx, int64(7), 2).Return(nil).Once()
		f.productRepo.On("GetProductByID", ctx, int64(7)).Return(&models.Product{ID: 7, SKU: "HP-01"}, nil).Once()
		f.orderRepo.On("CreateOrder", ctx, mock.AnythingOfType("*models.Order")).Return(nil).Once()

		// Act
		order, err := f.orderService.Checkout(ctx, customerID, &models.CheckoutRequest{
			ShippingAddress: shipTo,
			ShippingFee:     5,
			Tax:             3.20,
		})

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
		assert.Equal(t, 40.0, order.Subtotal)
		assert.Equal(t, 48.20, order.TotalAmount)
		assert.Equal(t, "HP-01", order.Items[0].SKU)
		assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
		f.orderRepo.AssertExpectations(t)
		f.cartRepo.AssertExpectations(t)
		f.productRepo.AssertExpectations(t)
	})

	t.Run("Success - Points Applied And Deducted", func(t *testing.T) {
		f := newOrderFixture()
		cart := checkoutCart(customerID, models.CartLine{
			ID: uuid.New(), ProductID: 7, ProductName: "Headphones", Quantity: 5, UnitPrice: 20,
		})
		f.cartRepo.On("GetCartByUserID", ctx, customerID).Return(cart, nil).Twice()
		f.cartRepo.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()
		f.productRepo.On("DecrementStock", ctx, int64(7), 5).Return(nil).Once()
		f.productRepo.On("GetProductByID", ctx, int64(7)).Return(&models.Product{ID: 7, SKU: "HP-01"}, nil).Once()
		f.loyaltyRepo.On("GetSummary", ctx, customerID).Return(bronzeSummary(customerID), nil).Twice()
		f.loyaltyRepo.On("ApplyEntry", ctx, mock.AnythingOfType("*models.LoyaltySummary"), mock.MatchedBy(func(e *models.PointsEntry) bool {
			return e.Type == models.PointsEntryRedeem && e.Points == -200
		})).Return(nil).Once()
		f.orderRepo.On("CreateOrder", ctx, mock.AnythingOfType("*models.Order")).Return(nil).Once()

		// Act: 200 points is a $2 discount on the $100 subtotal
		order, err := f.orderService.Checkout(ctx, customerID, &models.CheckoutRequest{
			ShippingAddress: shipTo,
			PointsToApply:   200,
		})

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 100.0, order.Subtotal)
		assert.Equal(t, 2.0, order.PointsDiscount)
		assert.Equal(t, 200, order.PointsApplied)
		assert.Equal(t, 98.0, order.TotalAmount)
		f.loyaltyRepo.AssertExpectations(t)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - Empty Cart", func(t *testing.T) {
		f := newOrderFixture()
		f.cartRepo.On("GetCartByUserID", ctx, customerID).Return(checkoutCart(customerID), nil).Once()

		// Act
		order, err := f.orderService.Checkout(ctx, customerID, &models.CheckoutRequest{ShippingAddress: shipTo})

		// Assert
		assert.Nil(t, order)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
		f.cartRepo.AssertExpectations(t)
	})

	t.Run("Failure - Second Line Fails, First Released", func(t *testing.T) {
		f := newOrderFixture()
		saleID := uuid.New()
		cart := checkoutCart(customerID,
			models.CartLine{ID: uuid.New(), ProductID: 7, ProductName: "Headphones", Quantity: 1, UnitPrice: 45, FlashSaleID: saleID},
			models.CartLine{ID: uuid.New(), ProductID: 8, ProductName: "Stand", Quantity: 2, UnitPrice: 15},
		)
		f.cartRepo.On("GetCartByUserID", ctx, customerID).Return(cart, nil).Once()

		sale := activeSale(saleID)
		sale.Products[0].MaxPerCustomer = 0
		f.saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(sale, nil).Once()
		f.saleRepo.On("ReserveStock", ctx, saleID, int64(7), customerID, 1, 0).
			Return(&models.ReservationResult{SaleID: saleID, ProductID: 7, Quantity: 1, RemainingStock: 4}, nil).Once()

		f.productRepo.On("DecrementStock", ctx, int64(8), 2).Return(repository.ErrInsufficientStock).Once()

		// rollback undoes the flash reservation
		f.saleRepo.On("ReleaseStock", ctx, saleID, int64(7), customerID, 1).Return(nil).Once()

		// Act
		order, err := f.orderService.Checkout(ctx, customerID, &models.CheckoutRequest{ShippingAddress: shipTo})

		// Assert
		assert.Nil(t, order)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInsufficientStock, appErr.Code)
		f.saleRepo.AssertExpectations(t)
		f.productRepo.AssertExpectations(t)
	})

	t.Run("Failure - Persist Fails, Everything Released", func(t *testing.T) {
		f := newOrderFixture()
		cart := checkoutCart(customerID, models.CartLine{
			ID: uuid.New(), ProductID: 7, ProductName: "Headphones", Quantity: 2, UnitPrice: 20,
		})
		f.cartRepo.On("GetCartByUserID", ctx, customerID).Return(cart, nil).Once()
		f.productRepo.On("DecrementStock", ctx, int64(7), 2).Return(nil).Once()
		f.productRepo.On("GetProductByID", ctx, int64(7)).Return(&models.Product{ID: 7, SKU: "HP-01"}, nil).Once()
		f.orderRepo.On("CreateOrder", ctx, mock.AnythingOfType("*models.Order")).Return(errors.New("db down")).Once()
		f.productRepo.On("RestoreStock", ctx, int64(7), 2).Return(nil).Once()

		// Act
		order, err := f.orderService.Checkout(ctx, customerID, &models.CheckoutRequest{ShippingAddress: shipTo})

		// Assert
		assert.Nil(t, order)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeDatabaseError, appErr.Code)
		f.productRepo.AssertExpectations(t)
	})

	t.Run("Success - Flash Sale Add To Cart Reserves Through The Sale", func(t *testing.T) {
		f := newOrderFixture()
		saleID := uuid.New()
		cart := &models.Cart{ID: uuid.New(), UserID: customerID, Currency: "usd"}

		f.cartRepo.On("GetCartByUserID", ctx, customerID).Return(cart, nil).Times(3)
		f.cartRepo.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Twice()
		f.productRepo.On("GetProductByID", ctx, int64(7)).
			Return(&models.Product{ID: 7, Name: "Headphones", Price: 90, SKU: "HP-01", StockQuantity: 100}, nil).Twice()
		f.saleRepo.On("FindActiveSaleForProduct", ctx, int64(7)).Return(activeSale(saleID), nil).Once()
		f.saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(activeSale(saleID), nil).Once()
		f.saleRepo.On("CustomerReserved", ctx, saleID, int64(7), customerID).Return(0, nil).Once()
		f.saleRepo.On("ReserveStock", ctx, saleID, int64(7), customerID, 2, 3).
			Return(&models.ReservationResult{SaleID: saleID, ProductID: 7, Quantity: 2, RemainingStock: 3}, nil).Once()
		f.orderRepo.On("CreateOrder", ctx, mock.AnythingOfType("*models.Order")).Return(nil).Once()

		// Act: the customer adds the product while the sale runs, then
		// checks out
		added, err := f.cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: 7, Quantity: 2})
		assert.NoError(t, err)
		assert.Equal(t, 45.0, added.Lines[0].UnitPrice)
		assert.Equal(t, saleID, added.Lines[0].FlashSaleID)

		order, err := f.orderService.Checkout(ctx, customerID, &models.CheckoutRequest{ShippingAddress: shipTo})

		// Assert: priced by the sale, reserved through the sale, the
		// catalog stock untouched
		assert.NoError(t, err)
		assert.Equal(t, 90.0, order.Subtotal)
		assert.Equal(t, 45.0, order.Items[0].UnitPrice)
		assert.Equal(t, saleID, order.Items[0].FlashSaleID)
		f.productRepo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything)
		f.saleRepo.AssertExpectations(t)
		f.orderRepo.AssertExpectations(t)
		f.cartRepo.AssertExpectations(t)
	})

	t.Run("Success - Bundle Add To Cart Records The Bundle Sale", func(t *testing.T) {
		f := newOrderFixture()
		bundleID := uuid.New()
		cart := &models.Cart{ID: uuid.New(), UserID: customerID, Currency: "usd"}
		bundle := &models.ProductBundle{
			ID:            bundleID,
			Name:          "Desk Setup",
			OriginalPrice: 100,
			BundlePrice:   80,
			TotalQuantity: 10,
			ValidFrom:     time.Now().Add(-time.Hour),
			ValidUntil:    time.Now().Add(time.Hour),
			Status:        models.BundleStatusActive,
		}

		f.cartRepo.On("GetCartByUserID", ctx, customerID).Return(cart, nil).Times(3)
		f.cartRepo.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Twice()
		f.bundleRepo.On("GetBundleByID", ctx, bundleID).Return(bundle, nil).Twice()
		f.bundleRepo.On("IncrementSold", ctx, bundleID, 1).Return(nil).Once()
		f.orderRepo.On("CreateOrder", ctx, mock.AnythingOfType("*models.Order")).Return(nil).Once()

		// Act
		added, err := f.cartService.AddBundle(ctx, customerID, &models.AddBundleRequest{BundleID: bundleID, Quantity: 1})
		assert.NoError(t, err)
		assert.Equal(t, 80.0, added.Lines[0].UnitPrice)

		order, err := f.orderService.Checkout(ctx, customerID, &models.CheckoutRequest{ShippingAddress: shipTo})

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 80.0, order.Subtotal)
		assert.Equal(t, bundleID, order.Items[0].BundleID)
		f.productRepo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything)
		f.bundleRepo.AssertExpectations(t)
		f.orderRepo.AssertExpectations(t)
	})
}

func pendingOrder(customerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-20260901-DEADBEEF",
		CustomerID:    customerID,
		Status:        models.OrderStatusPending,
		TotalAmount:   48.20,
		Currency:      "usd",
		PaymentStatus: models.PaymentStatusPending,
		Items: []models.OrderItem{
			{ProductID: 7, ProductName: "Headphones", Quantity: 2, UnitPrice: 20},
		},
	}
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("Success - Charge Lands, Order Confirmed", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(customerID)
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()
		f.gateway.On("Charge", mock.Anything, int64(4820), "usd", "Order "+order.OrderNumber, customerID.String(), order.ID.String()).
			Return(&stripepkg.ChargeResult{TransactionRef: "pi_123", Status: "succeeded"}, nil).Once()
		f.orderRepo.On("UpdatePayment", ctx, order.ID, models.PaymentStatusPaid, "pi_123").Return(nil).Once()
		f.orderRepo.On("UpdateStatus", ctx, mock.AnythingOfType("*models.Order"), mock.AnythingOfType("models.TimelineEntry")).Return(nil).Once()
		f.loyaltyRepo.On("GetSummary", ctx, customerID).Return(bronzeSummary(customerID), nil).Once()
		f.loyaltyRepo.On("ApplyEntry", ctx, mock.AnythingOfType("*models.LoyaltySummary"), mock.MatchedBy(func(e *models.PointsEntry) bool {
			return e.Type == models.PointsEntryEarn && e.Points == 48
		})).Return(nil).Once()

		// Act
		paid, err := f.orderService.ConfirmPayment(ctx, order.ID, customerID)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusConfirmed, paid.Status)
		assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
		assert.Equal(t, "pi_123", paid.PaymentRef)
		f.gateway.AssertExpectations(t)
		f.orderRepo.AssertExpectations(t)
		f.loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Success - Already Paid Is A No-Op", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(customerID)
		order.PaymentStatus = models.PaymentStatusPaid
		order.Status = models.OrderStatusConfirmed
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()

		// Act
		paid, err := f.orderService.ConfirmPayment(ctx, order.ID, customerID)

		// Assert: no charge attempted
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
		f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - Unknown Outcome Leaves Order Pending", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(customerID)
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()
		f.gateway.On("Charge", mock.Anything, int64(4820), "usd", "Order "+order.OrderNumber, customerID.String(), order.ID.String()).
			Return(nil, stripepkg.ErrUnknownOutcome).Once()
		f.orderRepo.On("UpdatePayment", ctx, order.ID, models.PaymentStatusUnknown, "").Return(nil).Once()

		// Act
		paid, err := f.orderService.ConfirmPayment(ctx, order.ID, customerID)

		// Assert: payment marked unknown, nothing rolled back, order untouched
		assert.Nil(t, paid)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodePaymentFailed, appErr.Code)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		f.orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - Declined Charge Marks Payment Failed", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(customerID)
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()
		f.gateway.On("Charge", mock.Anything, int64(4820), "usd", "Order "+order.OrderNumber, customerID.String(), order.ID.String()).
			Return(nil, errors.New("card declined")).Once()
		f.orderRepo.On("UpdatePayment", ctx, order.ID, models.PaymentStatusFailed, "").Return(nil).Once()

		// Act
		paid, err := f.orderService.ConfirmPayment(ctx, order.ID, customerID)

		// Assert
		assert.Nil(t, paid)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodePaymentFailed, appErr.Code)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - Another Customer's Order", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(uuid.New())
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()

		// Act
		_, err := f.orderService.ConfirmPayment(ctx, order.ID, customerID)

		// Assert
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeForbidden, appErr.Code)
		f.orderRepo.AssertExpectations(t)
	})
}

func TestHandlePaymentSucceeded(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("Success - Repeated Event Is Idempotent", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(customerID)
		order.PaymentStatus = models.PaymentStatusPaid
		order.Status = models.OrderStatusConfirmed
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()

		// Act
		settled, err := f.orderService.HandlePaymentSucceeded(ctx, order.ID, "pi_123", "")

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusConfirmed, settled.Status)
		f.orderRepo.AssertNotCalled(t, "UpdatePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.orderRepo.AssertExpectations(t)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("Success - Paid Order Refunded And Released", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(customerID)
		order.Status = models.OrderStatusConfirmed
		order.PaymentStatus = models.PaymentStatusPaid
		order.PaymentRef = "pi_123"
		order.PointsApplied = 200
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()
		f.productRepo.On("RestoreStock", ctx, int64(7), 2).Return(nil).Once()
		f.loyaltyRepo.On("GetSummary", ctx, customerID).Return(bronzeSummary(customerID), nil).Once()
		f.loyaltyRepo.On("ApplyEntry", ctx, mock.AnythingOfType("*models.LoyaltySummary"), mock.MatchedBy(func(e *models.PointsEntry) bool {
			return e.Type == models.PointsEntryRefund && e.Points == 200
		})).Return(nil).Once()
		f.gateway.On("Refund", ctx, "pi_123", int64(4820), "changed my mind").
			Return(&stripepkg.ChargeResult{TransactionRef: "re_1"}, nil).Once()
		f.orderRepo.On("UpdatePayment", ctx, order.ID, models.PaymentStatusRefunded, "pi_123").Return(nil).Once()
		f.orderRepo.On("UpdateStatus", ctx, mock.AnythingOfType("*models.Order"), mock.MatchedBy(func(e models.TimelineEntry) bool {
			return e.Status == models.OrderStatusCancelled
		})).Return(nil).Once()

		// Act
		cancelled, err := f.orderService.Cancel(ctx, order.ID, customerID, "changed my mind")

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)
		f.gateway.AssertExpectations(t)
		f.orderRepo.AssertExpectations(t)
		f.loyaltyRepo.AssertExpectations(t)
		f.productRepo.AssertExpectations(t)
	})

	t.Run("Failure - Shipped Orders Cannot Be Cancelled", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(customerID)
		order.Status = models.OrderStatusShipped
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()

		// Act
		cancelled, err := f.orderService.Cancel(ctx, order.ID, customerID, "")

		// Assert
		assert.Nil(t, cancelled)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInvalidStateTransition, appErr.Code)
		f.orderRepo.AssertExpectations(t)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("Success - Processing To Shipped Stamps ShippedAt", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(customerID)
		order.Status = models.OrderStatusProcessing
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()
		f.orderRepo.On("UpdateStatus", ctx, mock.AnythingOfType("*models.Order"), mock.MatchedBy(func(e models.TimelineEntry) bool {
			return e.Status == models.OrderStatusShipped
		})).Return(nil).Once()

		// Act
		shipped, err := f.orderService.UpdateStatus(ctx, order.ID, &models.UpdateOrderStatusRequest{Status: models.OrderStatusShipped})

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, shipped.Status)
		assert.NotNil(t, shipped.ShippedAt)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - Pending Cannot Jump To Delivered", func(t *testing.T) {
		f := newOrderFixture()
		order := pendingOrder(customerID)
		f.orderRepo.On("GetOrderByID", ctx, order.ID).Return(order, nil).Once()

		// Act
		_, err := f.orderService.UpdateStatus(ctx, order.ID, &models.UpdateOrderStatusRequest{Status: models.OrderStatusDelivered})

		// Assert
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInvalidStateTransition, appErr.Code)
		f.orderRepo.AssertExpectations(t)
	})
}
