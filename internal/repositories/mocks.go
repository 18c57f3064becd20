package repository

import (
	"context"
	"time"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// testify mocks for the repository interfaces, shared by the service
// tests.

type MockProductRepository struct {
	mock.Mock
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{}
}

func (m *MockProductRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)

	return args.Error(0)
}

func (m *MockProductRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)

	if product, ok := args.Get(0).(*models.Product); ok {
		return product, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockProductRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)

	return args.Error(0)
}

func (m *MockProductRepository) ListProducts(ctx context.Context, page, size int) ([]models.Product, int, error) {
	args := m.Called(ctx, page, size)

	if products, ok := args.Get(0).([]models.Product); ok {
		return products, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, id int64, qty int) error {
	args := m.Called(ctx, id, qty)

	return args.Error(0)
}

func (m *MockProductRepository) RestoreStock(ctx context.Context, id int64, qty int) error {
	args := m.Called(ctx, id, qty)

	return args.Error(0)
}

type MockCartRepository struct {
	mock.Mock
}

func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{}
}

func (m *MockCartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {
	args := m.Called(ctx, cart)

	return args.Error(0)
}

func (m *MockCartRepository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, userID)

	if cart, ok := args.Get(0).(*models.Cart); ok {
		return cart, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockCartRepository) UpdateCart(ctx context.Context, cart *models.Cart) error {
	args := m.Called(ctx, cart)

	return args.Error(0)
}

type MockBundleRepository struct {
	mock.Mock
}

func NewMockBundleRepository() *MockBundleRepository {
	return &MockBundleRepository{}
}

func (m *MockBundleRepository) CreateBundle(ctx context.Context, bundle *models.ProductBundle) error {
	args := m.Called(ctx, bundle)

	return args.Error(0)
}

func (m *MockBundleRepository) GetBundleByID(ctx context.Context, id uuid.UUID) (*models.ProductBundle, error) {
	args := m.Called(ctx, id)

	if bundle, ok := args.Get(0).(*models.ProductBundle); ok {
		return bundle, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockBundleRepository) ListBundles(ctx context.Context, page, size int) ([]models.ProductBundle, int, error) {
	args := m.Called(ctx, page, size)

	if bundles, ok := args.Get(0).([]models.ProductBundle); ok {
		return bundles, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *MockBundleRepository) UpdateBundlePrice(ctx context.Context, bundle *models.ProductBundle) error {
	args := m.Called(ctx, bundle)

	return args.Error(0)
}

func (m *MockBundleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BundleStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

func (m *MockBundleRepository) IncrementSold(ctx context.Context, id uuid.UUID, qty int) error {
	args := m.Called(ctx, id, qty)

	return args.Error(0)
}

func (m *MockBundleRepository) DecrementSold(ctx context.Context, id uuid.UUID, qty int) error {
	args := m.Called(ctx, id, qty)

	return args.Error(0)
}

type MockFlashSaleRepository struct {
	mock.Mock
}

func NewMockFlashSaleRepository() *MockFlashSaleRepository {
	return &MockFlashSaleRepository{}
}

func (m *MockFlashSaleRepository) CreateFlashSale(ctx context.Context, sale *models.FlashSale) error {
	args := m.Called(ctx, sale)

	return args.Error(0)
}

func (m *MockFlashSaleRepository) GetFlashSaleByID(ctx context.Context, id uuid.UUID) (*models.FlashSale, error) {
	args := m.Called(ctx, id)

	if sale, ok := args.Get(0).(*models.FlashSale); ok {
		return sale, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockFlashSaleRepository) FindActiveSaleForProduct(ctx context.Context, productID int64) (*models.FlashSale, error) {
	args := m.Called(ctx, productID)

	if sale, ok := args.Get(0).(*models.FlashSale); ok {
		return sale, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockFlashSaleRepository) ListFlashSales(ctx context.Context, page, size int) ([]models.FlashSale, int, error) {
	args := m.Called(ctx, page, size)

	if sales, ok := args.Get(0).([]models.FlashSale); ok {
		return sales, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *MockFlashSaleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.FlashSaleStatus, overrideSetAt *time.Time) error {
	args := m.Called(ctx, id, status, overrideSetAt)

	return args.Error(0)
}

func (m *MockFlashSaleRepository) CustomerReserved(ctx context.Context, saleID uuid.UUID, productID int64, customerID uuid.UUID) (int, error) {
	args := m.Called(ctx, saleID, productID, customerID)

	return args.Int(0), args.Error(1)
}

func (m *MockFlashSaleRepository) ReserveStock(ctx context.Context, saleID uuid.UUID, productID int64, customerID uuid.UUID, qty, maxPerCustomer int) (*models.ReservationResult, error) {
	args := m.Called(ctx, saleID, productID, customerID, qty, maxPerCustomer)

	if result, ok := args.Get(0).(*models.ReservationResult); ok {
		return result, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockFlashSaleRepository) ReleaseStock(ctx context.Context, saleID uuid.UUID, productID int64, customerID uuid.UUID, qty int) error {
	args := m.Called(ctx, saleID, productID, customerID, qty)

	return args.Error(0)
}

type MockLoyaltyRepository struct {
	mock.Mock
}

func NewMockLoyaltyRepository() *MockLoyaltyRepository {
	return &MockLoyaltyRepository{}
}

func (m *MockLoyaltyRepository) GetSummary(ctx context.Context, userID uuid.UUID) (*models.LoyaltySummary, error) {
	args := m.Called(ctx, userID)

	if summary, ok := args.Get(0).(*models.LoyaltySummary); ok {
		return summary, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockLoyaltyRepository) ApplyEntry(ctx context.Context, summary *models.LoyaltySummary, entry *models.PointsEntry) error {
	args := m.Called(ctx, summary, entry)

	return args.Error(0)
}

func (m *MockLoyaltyRepository) ListHistory(ctx context.Context, userID uuid.UUID, page, size int) ([]models.PointsEntry, int, error) {
	args := m.Called(ctx, userID, page, size)

	if entries, ok := args.Get(0).([]models.PointsEntry); ok {
		return entries, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *MockLoyaltyRepository) GetRewardByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	args := m.Called(ctx, id)

	if reward, ok := args.Get(0).(*models.Reward); ok {
		return reward, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockLoyaltyRepository) ListActiveRewards(ctx context.Context) ([]models.Reward, error) {
	args := m.Called(ctx)

	if rewards, ok := args.Get(0).([]models.Reward); ok {
		return rewards, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockLoyaltyRepository) CreateRedemption(ctx context.Context, redemption *models.Redemption) error {
	args := m.Called(ctx, redemption)

	return args.Error(0)
}

func (m *MockLoyaltyRepository) GetRedemptionByCode(ctx context.Context, code string) (*models.Redemption, error) {
	args := m.Called(ctx, code)

	if redemption, ok := args.Get(0).(*models.Redemption); ok {
		return redemption, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockLoyaltyRepository) UpdateRedemptionStatus(ctx context.Context, id uuid.UUID, status models.RedemptionStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

func (m *MockLoyaltyRepository) ExpireRedemptions(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)

	return args.Get(0).(int64), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{}
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)

	return args.Error(0)
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)

	if order, ok := args.Get(0).(*models.Order); ok {
		return order, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockOrderRepository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]models.Order, int, error) {
	args := m.Called(ctx, customerID, page, size)

	if orders, ok := args.Get(0).([]models.Order); ok {
		return orders, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, order *models.Order, entry models.TimelineEntry) error {
	args := m.Called(ctx, order, entry)

	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paymentRef string) error {
	args := m.Called(ctx, id, status, paymentRef)

	return args.Error(0)
}

type MockNotificationRepository struct {
	mock.Mock
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}

func (m *MockNotificationRepository) ListNotificationsByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Notification, int, error) {
	args := m.Called(ctx, userID, page, size)

	if notifications, ok := args.Get(0).([]models.Notification); ok {
		return notifications, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}
