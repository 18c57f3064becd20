package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/cache"
	apperrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
)

// ProductService is the Catalog collaborator: price/stock snapshots for
// the cart and checkout paths, plus plain-product stock movement.
type ProductService struct {
	repo       repository.ProductRepository
	cache      cache.Cache
	productTTL time.Duration
}

func NewProductService(repo repository.ProductRepository, c cache.Cache, productTTL time.Duration) *ProductService {
	return &ProductService{repo: repo, cache: c, productTTL: productTTL}
}

func (s *ProductService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	product := &models.Product{
		CategoryID:       req.CategoryID,
		Name:             req.Name,
		Description:      req.Description,
		Price:            models.Round2(req.Price),
		StockQuantity:    req.StockQuantity,
		SKU:              req.SKU,
		ImageURL:         req.ImageURL,
		Status:           "active",
		BackorderAllowed: req.BackorderAllowed,
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, apperrors.DatabaseError("Failed to create product").WithError(err)
	}

	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	key := cache.Key(cache.ProductKeyPrefix, fmt.Sprintf("%d", id))

	if s.cache != nil {
		var cached models.Product

		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to retrieve product").WithError(err)
	}

	if s.cache != nil {
		// best effort; a cold cache only costs a query
		_ = s.cache.Set(ctx, key, product, s.productTTL)
	}

	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id int64, req *models.UpdateProductRequest) (*models.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to retrieve product").WithError(err)
	}

	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}

	if req.Name != nil {
		product.Name = *req.Name
	}

	if req.Description != nil {
		product.Description = *req.Description
	}

	if req.Price != nil {
		product.Price = models.Round2(*req.Price)
	}

	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}

	if req.Status != nil {
		product.Status = *req.Status
	}

	if req.BackorderAllowed != nil {
		product.BackorderAllowed = *req.BackorderAllowed
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, apperrors.DatabaseError("Failed to update product").WithError(err)
	}

	s.invalidate(ctx, id)

	return product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, page, size int) ([]models.Product, int, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 50 {
		size = 20
	}

	products, total, err := s.repo.ListProducts(ctx, page, size)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to fetch products").WithError(err)
	}

	return products, total, nil
}

// DecrementStock reserves plain (non-promotional) product stock.
func (s *ProductService) DecrementStock(ctx context.Context, id int64, qty int) error {
	err := s.repo.DecrementStock(ctx, id, qty)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			return apperrors.InsufficientStockError(fmt.Sprintf("Insufficient stock for product %d", id)).WithError(err)
		case errors.Is(err, repository.ErrReservationConflict):
			return apperrors.ReservationConflictError("Concurrent stock update, retry").WithError(err)
		default:
			return apperrors.DatabaseError("Failed to decrement stock").WithError(err)
		}
	}

	s.invalidate(ctx, id)

	return nil
}

func (s *ProductService) RestoreStock(ctx context.Context, id int64, qty int) error {
	if err := s.repo.RestoreStock(ctx, id, qty); err != nil {
		return apperrors.DatabaseError("Failed to restore stock").WithError(err)
	}

	s.invalidate(ctx, id)

	return nil
}

func (s *ProductService) invalidate(ctx context.Context, id int64) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.Key(cache.ProductKeyPrefix, fmt.Sprintf("%d", id)))
	}
}
