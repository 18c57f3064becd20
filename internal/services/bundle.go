package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
	"github.com/google/uuid"
)

type BundleService struct {
	repo           repository.BundleRepository
	productService *ProductService
}

func NewBundleService(repo repository.BundleRepository, productService *ProductService) *BundleService {
	return &BundleService{repo: repo, productService: productService}
}

// CreateBundle freezes originalPrice from the live catalog at this
// instant. The offered bundle price must actually undercut it; zero or
// negative savings is rejected.
func (s *BundleService) CreateBundle(ctx context.Context, req *models.CreateBundleRequest) (*models.ProductBundle, error) {
	var (
		items         []models.BundleItem
		originalPrice float64
	)

	for _, reqItem := range req.Items {
		product, err := s.productService.GetProduct(ctx, reqItem.ProductID)
		if err != nil {
			return nil, err
		}

		items = append(items, models.BundleItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Quantity:    reqItem.Quantity,
			UnitPrice:   product.Price,
		})

		originalPrice += product.Price * float64(reqItem.Quantity)
	}

	originalPrice = models.Round2(originalPrice)

	if req.BundlePrice >= originalPrice {
		return nil, apperrors.InvalidBundlePriceError(
			fmt.Sprintf("Bundle price %.2f must be below the combined price %.2f", req.BundlePrice, originalPrice))
	}

	bundle := &models.ProductBundle{
		ID:               uuid.New(),
		Name:             req.Name,
		Description:      req.Description,
		Items:            items,
		OriginalPrice:    originalPrice,
		BundlePrice:      models.Round2(req.BundlePrice),
		TotalQuantity:    req.TotalQuantity,
		PerCustomerLimit: req.PerCustomerLimit,
		ValidFrom:        req.ValidFrom,
		ValidUntil:       req.ValidUntil,
		Status:           models.BundleStatusActive,
	}

	bundle.RecomputeSavings()

	if err := s.repo.CreateBundle(ctx, bundle); err != nil {
		return nil, apperrors.DatabaseError("Failed to create bundle").WithError(err)
	}

	return bundle, nil
}

func (s *BundleService) GetBundle(ctx context.Context, id uuid.UUID) (*models.ProductBundle, error) {
	bundle, err := s.repo.GetBundleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Bundle not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to retrieve bundle").WithError(err)
	}

	return bundle, nil
}

func (s *BundleService) ListBundles(ctx context.Context, page, size int) ([]models.ProductBundle, int, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 50 {
		size = 20
	}

	bundles, total, err := s.repo.ListBundles(ctx, page, size)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to fetch bundles").WithError(err)
	}

	return bundles, total, nil
}

// UpdateBundlePrice is the only trigger for a savings recompute.
// Catalog price drift never touches the frozen originalPrice.
func (s *BundleService) UpdateBundlePrice(ctx context.Context, id uuid.UUID, req *models.UpdateBundlePriceRequest) (*models.ProductBundle, error) {
	bundle, err := s.GetBundle(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.BundlePrice >= bundle.OriginalPrice {
		return nil, apperrors.InvalidBundlePriceError(
			fmt.Sprintf("Bundle price %.2f must be below the combined price %.2f", req.BundlePrice, bundle.OriginalPrice))
	}

	bundle.BundlePrice = models.Round2(req.BundlePrice)
	bundle.RecomputeSavings()

	if err := s.repo.UpdateBundlePrice(ctx, bundle); err != nil {
		return nil, apperrors.DatabaseError("Failed to update bundle price").WithError(err)
	}

	return bundle, nil
}

// ValidateForPurchase runs the availability checks in a fixed order:
// status, then remaining allowance, then validity window. The first
// failure is the one reported.
func (s *BundleService) ValidateForPurchase(ctx context.Context, id uuid.UUID, quantity int) (*models.ProductBundle, error) {
	bundle, err := s.GetBundle(ctx, id)
	if err != nil {
		return nil, err
	}

	if bundle.Status != models.BundleStatusActive {
		return nil, apperrors.BadRequestError(fmt.Sprintf("Bundle is %s", bundle.Status))
	}

	if remaining := bundle.RemainingQuantity(); remaining >= 0 && remaining < quantity {
		return nil, apperrors.InsufficientStockError(
			fmt.Sprintf("Only %d bundle(s) remaining", remaining))
	}

	now := time.Now()
	if now.Before(bundle.ValidFrom) || now.After(bundle.ValidUntil) {
		return nil, apperrors.BadRequestError("Bundle is outside its validity window")
	}

	return bundle, nil
}

// RecordSale takes quantity out of the bundle allowance atomically.
func (s *BundleService) RecordSale(ctx context.Context, id uuid.UUID, quantity int) error {
	err := s.repo.IncrementSold(ctx, id, quantity)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			return apperrors.InsufficientStockError("Bundle allowance exhausted").WithError(err)
		case errors.Is(err, repository.ErrReservationConflict):
			return apperrors.ReservationConflictError("Concurrent bundle update, retry").WithError(err)
		default:
			return apperrors.DatabaseError("Failed to record bundle sale").WithError(err)
		}
	}

	return nil
}

// ReleaseSale reverses a recorded sale after cancellation or a failed
// checkout step.
func (s *BundleService) ReleaseSale(ctx context.Context, id uuid.UUID, quantity int) error {
	if err := s.repo.DecrementSold(ctx, id, quantity); err != nil {
		return apperrors.DatabaseError("Failed to release bundle sale").WithError(err)
	}

	return nil
}

func (s *BundleService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BundleStatus) error {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFoundError("Bundle not found").WithError(err)
		}

		return apperrors.DatabaseError("Failed to update bundle status").WithError(err)
	}

	return nil
}
