package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/config"
	appErrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
	service "github.com/adityamenon-dev/promo-commerce-platform/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testRetryCfg = config.Reservation{MaxRetries: 3, InitialBackoff: time.Millisecond}

func newFlashSaleFixture() (*repository.MockFlashSaleRepository, *repository.MockProductRepository, *service.FlashSaleService) {
	saleRepo := repository.NewMockFlashSaleRepository()
	productRepo := repository.NewMockProductRepository()
	productService := service.NewProductService(productRepo, nil, 0)
	flashSaleService := service.NewFlashSaleService(saleRepo, productService, testRetryCfg)

	return saleRepo, productRepo, flashSaleService
}

func activeSale(saleID uuid.UUID) *models.FlashSale {
	return &models.FlashSale{
		ID:   saleID,
		Name: "Midnight Madness",
		Products: []models.FlashSaleProduct{
			{ProductID: 7, ProductName: "Headphones", FlashPrice: 45, OriginalPrice: 90, DiscountPercentage: 50, Stock: 5, MaxPerCustomer: 3},
		},
		Schedule: models.FlashSaleSchedule{
			StartTime: time.Now().Add(-time.Hour),
			EndTime:   time.Now().Add(time.Hour),
		},
		Status: models.FlashSaleStatusActive,
	}
}

func TestCreateFlashSale(t *testing.T) {
	ctx := context.Background()

	req := &models.CreateFlashSaleRequest{
		Name: "Midnight Madness",
		Products: []models.CreateFlashSaleProduct{
			{ProductID: 7, FlashPrice: 29.99, Stock: 100, MaxPerCustomer: 2},
		},
		StartTime: time.Now().Add(time.Hour),
		EndTime:   time.Now().Add(3 * time.Hour),
	}

	t.Run("Success - Discount Percentage Fixed At Creation", func(t *testing.T) {
		saleRepo, productRepo, flashSaleService := newFlashSaleFixture()
		productRepo.On("GetProductByID", ctx, int64(7)).Return(&models.Product{ID: 7, Name: "Headphones", Price: 59.99}, nil).Once()
		saleRepo.On("CreateFlashSale", ctx, mock.AnythingOfType("*models.FlashSale")).Return(nil).Once()

		// Act
		sale, err := flashSaleService.CreateFlashSale(ctx, req)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.FlashSaleStatusScheduled, sale.Status)
		assert.Equal(t, 50, sale.Products[0].DiscountPercentage)
		assert.Equal(t, 59.99, sale.Products[0].OriginalPrice)
		saleRepo.AssertExpectations(t)
	})

	t.Run("Failure - Flash Price Not Below Catalog Price", func(t *testing.T) {
		saleRepo, productRepo, flashSaleService := newFlashSaleFixture()
		productRepo.On("GetProductByID", ctx, int64(7)).Return(&models.Product{ID: 7, Name: "Headphones", Price: 25}, nil).Once()

		// Act
		sale, err := flashSaleService.CreateFlashSale(ctx, req)

		// Assert
		assert.Nil(t, sale)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
		saleRepo.AssertExpectations(t)
	})
}

func TestReserveStock(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()
	customerID := uuid.New()
	req := &models.ReserveStockRequest{ProductID: 7, Quantity: 2}

	t.Run("Success", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(activeSale(saleID), nil).Once()
		saleRepo.On("CustomerReserved", ctx, saleID, int64(7), customerID).Return(0, nil).Once()
		saleRepo.On("ReserveStock", ctx, saleID, int64(7), customerID, 2, 3).
			Return(&models.ReservationResult{SaleID: saleID, ProductID: 7, Quantity: 2, RemainingStock: 3}, nil).Once()

		// Act
		result, err := flashSaleService.ReserveStock(ctx, saleID, customerID, req)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 3, result.RemainingStock)
		saleRepo.AssertExpectations(t)
	})

	t.Run("Failure - Sale Not Active", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		paused := activeSale(saleID)
		paused.Status = models.FlashSaleStatusPaused
		now := time.Now()
		paused.OverrideSetAt = &now
		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(paused, nil).Once()

		// Act
		result, err := flashSaleService.ReserveStock(ctx, saleID, customerID, req)

		// Assert
		assert.Nil(t, result)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInsufficientStock, appErr.Code)
		saleRepo.AssertExpectations(t)
	})

	t.Run("Failure - Cumulative Per Customer Limit", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(activeSale(saleID), nil).Once()
		saleRepo.On("CustomerReserved", ctx, saleID, int64(7), customerID).Return(2, nil).Once()

		// Act: 2 already held plus 2 asked exceeds the limit of 3
		result, err := flashSaleService.ReserveStock(ctx, saleID, customerID, req)

		// Assert
		assert.Nil(t, result)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodePerCustomerLimitExceeded, appErr.Code)
		saleRepo.AssertExpectations(t)
	})

	t.Run("Success - Conflict Then Retry Wins", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(activeSale(saleID), nil).Once()
		saleRepo.On("CustomerReserved", ctx, saleID, int64(7), customerID).Return(0, nil).Once()
		saleRepo.On("ReserveStock", ctx, saleID, int64(7), customerID, 2, 3).
			Return(nil, repository.ErrReservationConflict).Once()
		saleRepo.On("ReserveStock", ctx, saleID, int64(7), customerID, 2, 3).
			Return(&models.ReservationResult{SaleID: saleID, ProductID: 7, Quantity: 2, RemainingStock: 1}, nil).Once()

		// Act
		result, err := flashSaleService.ReserveStock(ctx, saleID, customerID, req)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 1, result.RemainingStock)
		saleRepo.AssertExpectations(t)
	})

	t.Run("Failure - Conflicts Exhaust Retries", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(activeSale(saleID), nil).Once()
		saleRepo.On("CustomerReserved", ctx, saleID, int64(7), customerID).Return(0, nil).Once()
		saleRepo.On("ReserveStock", ctx, saleID, int64(7), customerID, 2, 3).
			Return(nil, repository.ErrReservationConflict).Times(4)

		// Act
		result, err := flashSaleService.ReserveStock(ctx, saleID, customerID, req)

		// Assert: exhausted conflicts report as out of stock
		assert.Nil(t, result)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInsufficientStock, appErr.Code)
		saleRepo.AssertExpectations(t)
	})

	t.Run("Failure - Insufficient Stock Is Not Retried", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(activeSale(saleID), nil).Once()
		saleRepo.On("CustomerReserved", ctx, saleID, int64(7), customerID).Return(0, nil).Once()
		saleRepo.On("ReserveStock", ctx, saleID, int64(7), customerID, 2, 3).
			Return(nil, repository.ErrInsufficientStock).Once()

		// Act
		result, err := flashSaleService.ReserveStock(ctx, saleID, customerID, req)

		// Assert
		assert.Nil(t, result)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInsufficientStock, appErr.Code)
		saleRepo.AssertExpectations(t)
	})
}

func TestReleaseStock(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()
	customerID := uuid.New()

	t.Run("Failure - Nothing Reserved", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		saleRepo.On("ReleaseStock", ctx, saleID, int64(7), customerID, 1).Return(sql.ErrNoRows).Once()

		// Act
		err := flashSaleService.ReleaseStock(ctx, saleID, customerID, 7, 1)

		// Assert
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
		saleRepo.AssertExpectations(t)
	})
}

func TestFlashSaleLifecycle(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()

	t.Run("Success - Pause Then Resume", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(activeSale(saleID), nil).Once()
		saleRepo.On("UpdateStatus", ctx, saleID, models.FlashSaleStatusPaused, mock.AnythingOfType("*time.Time")).Return(nil).Once()

		// Act
		paused, err := flashSaleService.Pause(ctx, saleID)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.FlashSaleStatusPaused, paused.Status)
		assert.NotNil(t, paused.OverrideSetAt)

		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(paused, nil).Once()
		saleRepo.On("UpdateStatus", ctx, saleID, models.FlashSaleStatusActive, (*time.Time)(nil)).Return(nil).Once()

		resumed, err := flashSaleService.Resume(ctx, saleID)

		assert.NoError(t, err)
		assert.Equal(t, models.FlashSaleStatusActive, resumed.Status)
		assert.Nil(t, resumed.OverrideSetAt)
		saleRepo.AssertExpectations(t)
	})

	t.Run("Failure - Resume An Active Sale", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(activeSale(saleID), nil).Once()

		// Act
		_, err := flashSaleService.Resume(ctx, saleID)

		// Assert
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInvalidStateTransition, appErr.Code)
		saleRepo.AssertExpectations(t)
	})

	t.Run("Failure - Force End An Ended Sale", func(t *testing.T) {
		saleRepo, _, flashSaleService := newFlashSaleFixture()
		ended := activeSale(saleID)
		ended.Schedule.StartTime = time.Now().Add(-3 * time.Hour)
		ended.Schedule.EndTime = time.Now().Add(-time.Hour)
		ended.Status = models.FlashSaleStatusEnded
		saleRepo.On("GetFlashSaleByID", ctx, saleID).Return(ended, nil).Once()

		// Act
		_, err := flashSaleService.ForceEnd(ctx, saleID)

		// Assert
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInvalidStateTransition, appErr.Code)
		saleRepo.AssertExpectations(t)
	})
}

// contendedSaleRepo is an in-memory FlashSaleRepository with a real
// stock counter, for exercising concurrent reservations end to end.
type contendedSaleRepo struct {
	mu    sync.Mutex
	sale  *models.FlashSale
	stock int
}

func (r *contendedSaleRepo) CreateFlashSale(context.Context, *models.FlashSale) error { return nil }

func (r *contendedSaleRepo) GetFlashSaleByID(_ context.Context, _ uuid.UUID) (*models.FlashSale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *r.sale

	return &copied, nil
}

func (r *contendedSaleRepo) FindActiveSaleForProduct(_ context.Context, _ int64) (*models.FlashSale, error) {
	return r.GetFlashSaleByID(context.Background(), r.sale.ID)
}

func (r *contendedSaleRepo) ListFlashSales(context.Context, int, int) ([]models.FlashSale, int, error) {
	return nil, 0, nil
}

func (r *contendedSaleRepo) UpdateStatus(context.Context, uuid.UUID, models.FlashSaleStatus, *time.Time) error {
	return nil
}

func (r *contendedSaleRepo) CustomerReserved(context.Context, uuid.UUID, int64, uuid.UUID) (int, error) {
	return 0, nil
}

func (r *contendedSaleRepo) ReserveStock(_ context.Context, saleID uuid.UUID, productID int64, _ uuid.UUID, qty, _ int) (*models.ReservationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stock < qty {
		return nil, repository.ErrInsufficientStock
	}

	r.stock -= qty

	return &models.ReservationResult{
		SaleID:         saleID,
		ProductID:      productID,
		Quantity:       qty,
		RemainingStock: r.stock,
	}, nil
}

func (r *contendedSaleRepo) ReleaseStock(_ context.Context, _ uuid.UUID, _ int64, _ uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stock += qty

	return nil
}

func TestConcurrentReservations(t *testing.T) {
	ctx := context.Background()
	saleID := uuid.New()

	t.Run("Success - Two Competing Reservations, One Wins", func(t *testing.T) {
		sale := activeSale(saleID)
		sale.Products[0].MaxPerCustomer = 0
		repo := &contendedSaleRepo{sale: sale, stock: 5}
		flashSaleService := service.NewFlashSaleService(repo, service.NewProductService(repository.NewMockProductRepository(), nil, 0), testRetryCfg)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)

		// Act: two customers race for 3 units each out of 5
		for i := 0; i < 2; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := flashSaleService.ReserveStock(ctx, saleID, uuid.New(), &models.ReserveStockRequest{ProductID: 7, Quantity: 3})
				if err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		// Assert
		assert.Equal(t, 1, winners)
		assert.Equal(t, 2, repo.stock)
	})

	t.Run("Success - Stock Is Conserved Under Load", func(t *testing.T) {
		sale := activeSale(saleID)
		sale.Products[0].MaxPerCustomer = 0
		sale.Products[0].Stock = 10
		repo := &contendedSaleRepo{sale: sale, stock: 10}
		flashSaleService := service.NewFlashSaleService(repo, service.NewProductService(repository.NewMockProductRepository(), nil, 0), testRetryCfg)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			granted int
		)

		for i := 0; i < 25; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				result, err := flashSaleService.ReserveStock(ctx, saleID, uuid.New(), &models.ReserveStockRequest{ProductID: 7, Quantity: 1})
				if err == nil {
					mu.Lock()
					granted += result.Quantity
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		// Assert: every unit granted came out of the pool, none invented
		assert.Equal(t, 10, granted)
		assert.Equal(t, 0, repo.stock)
	})
}
