package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/config"
	apperrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/metrics"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// FlashSaleService owns the sale catalog and the only mutation path for
// per-product stock pools. stock + sold_count is conserved across
// reserve/release; stock moves, it is never created or destroyed.
type FlashSaleService struct {
	repo           repository.FlashSaleRepository
	productService *ProductService
	retryCfg       config.Reservation
}

func NewFlashSaleService(repo repository.FlashSaleRepository, productService *ProductService, retryCfg config.Reservation) *FlashSaleService {
	return &FlashSaleService{repo: repo, productService: productService, retryCfg: retryCfg}
}

// CreateFlashSale derives each product's discount percentage once,
// here. It is fixed for the sale's lifetime; reserve and release never
// recompute it.
func (s *FlashSaleService) CreateFlashSale(ctx context.Context, req *models.CreateFlashSaleRequest) (*models.FlashSale, error) {
	var products []models.FlashSaleProduct

	for _, reqProduct := range req.Products {
		product, err := s.productService.GetProduct(ctx, reqProduct.ProductID)
		if err != nil {
			return nil, err
		}

		if reqProduct.FlashPrice >= product.Price {
			return nil, apperrors.ValidationError(
				fmt.Sprintf("Flash price %.2f must be below the catalog price %.2f for %q",
					reqProduct.FlashPrice, product.Price, product.Name))
		}

		discountPct := int(math.Round((product.Price - reqProduct.FlashPrice) / product.Price * 100))

		products = append(products, models.FlashSaleProduct{
			ProductID:          product.ID,
			ProductName:        product.Name,
			FlashPrice:         models.Round2(reqProduct.FlashPrice),
			OriginalPrice:      product.Price,
			DiscountPercentage: discountPct,
			Stock:              reqProduct.Stock,
			MaxPerCustomer:     reqProduct.MaxPerCustomer,
		})
	}

	sale := &models.FlashSale{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Products:    products,
		Schedule: models.FlashSaleSchedule{
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Timezone:  req.Timezone,
		},
		BannerURL: req.BannerURL,
		Priority:  req.Priority,
	}

	sale.Status = sale.EffectiveStatus(time.Now())

	if err := s.repo.CreateFlashSale(ctx, sale); err != nil {
		return nil, apperrors.DatabaseError("Failed to create flash sale").WithError(err)
	}

	return sale, nil
}

// GetFlashSale refreshes the derived status on every read so a sale
// whose window just opened or closed reports correctly without a
// background ticker.
func (s *FlashSaleService) GetFlashSale(ctx context.Context, id uuid.UUID) (*models.FlashSale, error) {
	sale, err := s.repo.GetFlashSaleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Flash sale not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to retrieve flash sale").WithError(err)
	}

	s.refreshStatus(ctx, sale)

	return sale, nil
}

func (s *FlashSaleService) ListFlashSales(ctx context.Context, page, size int) ([]models.FlashSale, int, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 50 {
		size = 20
	}

	sales, total, err := s.repo.ListFlashSales(ctx, page, size)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to fetch flash sales").WithError(err)
	}

	for i := range sales {
		s.refreshStatus(ctx, &sales[i])
	}

	return sales, total, nil
}

// refreshStatus persists a derived transition (scheduled→active,
// active→ended, …) the first time a read observes it. Manual overrides
// survive: EffectiveStatus already folds the precedence in.
func (s *FlashSaleService) refreshStatus(ctx context.Context, sale *models.FlashSale) {
	derived := sale.EffectiveStatus(time.Now())

	if derived == sale.Status {
		return
	}

	override := sale.OverrideSetAt
	if derived == models.FlashSaleStatusScheduled || derived == models.FlashSaleStatusEnded {
		// the window moved on; any stale override is finished with
		override = nil
	}

	if err := s.repo.UpdateStatus(ctx, sale.ID, derived, override); err == nil {
		sale.Status = derived
		sale.OverrideSetAt = override
	}
}

// Pause is a manual override: it sticks until the schedule advances
// past the current window.
func (s *FlashSaleService) Pause(ctx context.Context, id uuid.UUID) (*models.FlashSale, error) {
	return s.override(ctx, id, models.FlashSaleStatusPaused)
}

func (s *FlashSaleService) Resume(ctx context.Context, id uuid.UUID) (*models.FlashSale, error) {
	sale, err := s.GetFlashSale(ctx, id)
	if err != nil {
		return nil, err
	}

	if sale.Status != models.FlashSaleStatusPaused {
		return nil, apperrors.InvalidStateTransitionError(
			fmt.Sprintf("Cannot resume a sale that is %s", sale.Status))
	}

	// Clearing the override hands control back to derivation.
	derived := models.FlashSaleStatusActive
	if sale.AllSoldOut() {
		derived = models.FlashSaleStatusSoldOut
	}

	if err := s.repo.UpdateStatus(ctx, id, derived, nil); err != nil {
		return nil, apperrors.DatabaseError("Failed to resume flash sale").WithError(err)
	}

	sale.Status = derived
	sale.OverrideSetAt = nil

	return sale, nil
}

func (s *FlashSaleService) ForceEnd(ctx context.Context, id uuid.UUID) (*models.FlashSale, error) {
	return s.override(ctx, id, models.FlashSaleStatusEnded)
}

func (s *FlashSaleService) override(ctx context.Context, id uuid.UUID, status models.FlashSaleStatus) (*models.FlashSale, error) {
	sale, err := s.GetFlashSale(ctx, id)
	if err != nil {
		return nil, err
	}

	if sale.Status == models.FlashSaleStatusEnded {
		return nil, apperrors.InvalidStateTransitionError("Sale has already ended")
	}

	now := time.Now()

	if err := s.repo.UpdateStatus(ctx, id, status, &now); err != nil {
		return nil, apperrors.DatabaseError("Failed to update flash sale status").WithError(err)
	}

	sale.Status = status
	sale.OverrideSetAt = &now

	return sale, nil
}

// IsProductAvailable is a pure predicate: sale active, product in the
// sale, and enough stock for the asked quantity.
func (s *FlashSaleService) IsProductAvailable(ctx context.Context, saleID uuid.UUID, productID int64, qty int) (bool, error) {
	sale, err := s.GetFlashSale(ctx, saleID)
	if err != nil {
		return false, err
	}

	if sale.Status != models.FlashSaleStatusActive {
		return false, nil
	}

	product := sale.Product(productID)
	if product == nil {
		return false, nil
	}

	return product.Stock >= qty, nil
}

// FindActiveSaleForProduct resolves which sale, if any, prices this
// product right now.
func (s *FlashSaleService) FindActiveSaleForProduct(ctx context.Context, productID int64) (*models.FlashSale, error) {
	sale, err := s.repo.FindActiveSaleForProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, apperrors.DatabaseError("Failed to look up flash sale").WithError(err)
	}

	s.refreshStatus(ctx, sale)

	if sale.Status != models.FlashSaleStatusActive {
		return nil, nil
	}

	return sale, nil
}

// ReserveStock is the critical atomic operation. The repository does
// check-and-decrement in a single conditional update; this layer adds
// the precondition checks, the per-customer cumulative cap, and bounded
// retry of transient conflicts. Exhausted retries surface as
// InsufficientStock, never as a raw conflict.
func (s *FlashSaleService) ReserveStock(ctx context.Context, saleID uuid.UUID, customerID uuid.UUID, req *models.ReserveStockRequest) (*models.ReservationResult, error) {
	sale, err := s.GetFlashSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if sale.Status != models.FlashSaleStatusActive {
		metrics.ObserveReservation("sale_not_active")

		return nil, apperrors.InsufficientStockError(fmt.Sprintf("Flash sale is %s", sale.Status))
	}

	product := sale.Product(req.ProductID)
	if product == nil {
		return nil, apperrors.NotFoundError("Product is not part of this flash sale")
	}

	if product.MaxPerCustomer > 0 {
		reserved, err := s.repo.CustomerReserved(ctx, saleID, req.ProductID, customerID)
		if err != nil {
			return nil, apperrors.DatabaseError("Failed to check customer limit").WithError(err)
		}

		if reserved+req.Quantity > product.MaxPerCustomer {
			metrics.ObserveReservation("per_customer_limit")

			return nil, apperrors.PerCustomerLimitError(
				fmt.Sprintf("Limit is %d per customer for this product", product.MaxPerCustomer))
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(s.retryCfg.InitialBackoff)),
		uint64(s.retryCfg.MaxRetries),
	), ctx)

	var result *models.ReservationResult

	operation := func() error {
		var err error

		result, err = s.repo.ReserveStock(ctx, saleID, req.ProductID, customerID, req.Quantity, product.MaxPerCustomer)
		if err != nil {
			if errors.Is(err, repository.ErrReservationConflict) {
				metrics.ObserveReservationRetry()

				return err // transient, retry
			}

			return backoff.Permanent(err)
		}

		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			metrics.ObserveReservation("insufficient_stock")

			return nil, apperrors.InsufficientStockError("Insufficient flash sale stock").WithError(err)
		case errors.Is(err, repository.ErrPerCustomerLimit):
			metrics.ObserveReservation("per_customer_limit")

			return nil, apperrors.PerCustomerLimitError(
				fmt.Sprintf("Limit is %d per customer for this product", product.MaxPerCustomer)).WithError(err)
		case errors.Is(err, repository.ErrReservationConflict):
			// lost every retry to competing reservations; the stock is
			// effectively gone from this caller's point of view
			metrics.ObserveReservation("conflict_exhausted")

			return nil, apperrors.InsufficientStockError("Insufficient flash sale stock").WithError(err)
		default:
			return nil, apperrors.DatabaseError("Failed to reserve stock").WithError(err)
		}
	}

	metrics.ObserveReservation("reserved")

	return result, nil
}

// ReleaseStock reverses a reservation after a cancelled order or a
// failed checkout step.
func (s *FlashSaleService) ReleaseStock(ctx context.Context, saleID uuid.UUID, customerID uuid.UUID, productID int64, qty int) error {
	err := s.repo.ReleaseStock(ctx, saleID, productID, customerID, qty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.BadRequestError("Nothing to release for this product").WithError(err)
		}

		return apperrors.DatabaseError("Failed to release stock").WithError(err)
	}

	metrics.ObserveReservation("released")

	return nil
}

// Countdown is the storefront's timer payload.
func (s *FlashSaleService) Countdown(ctx context.Context, id uuid.UUID) (*models.TimeRemaining, error) {
	sale, err := s.GetFlashSale(ctx, id)
	if err != nil {
		return nil, err
	}

	remaining := sale.CountdownAt(time.Now())

	return &remaining, nil
}
