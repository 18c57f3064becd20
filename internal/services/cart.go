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

// CartService is the cart aggregator. Every mutation runs the same
// recompute (subtotal, then discount, then total) before the cart is
// persisted, so a caller never sees stale totals.
type CartService struct {
	repo             repository.CartRepository
	productService   *ProductService
	flashSaleService *FlashSaleService
	bundleService    *BundleService
}

func NewCartService(
	repo repository.CartRepository,
	productService *ProductService,
	flashSaleService *FlashSaleService,
	bundleService *BundleService,
) *CartService {
	return &CartService{
		repo:             repo,
		productService:   productService,
		flashSaleService: flashSaleService,
		bundleService:    bundleService,
	}
}

// GetOrCreateCart returns the user's cart, creating it lazily on first
// touch.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.DatabaseError("Failed to retrieve cart").WithError(err)
	}

	cart = &models.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Lines:     []models.CartLine{},
		Currency:  "usd",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	cart.Recompute()

	if err := s.repo.CreateCart(ctx, cart); err != nil {
		return nil, apperrors.DatabaseError("Failed to create cart").WithError(err)
	}

	return cart, nil
}

// AddItem merges into an existing line when product, variant and sale
// match, otherwise appends a new line whose unit price is frozen at
// this instant: the flash price when an active sale covers the
// product, else the variant override, else the live catalog price. A
// flash line carries the sale id so checkout reserves through the
// sale, not the catalog.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productService.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	saleID, saleProduct, err := s.resolveFlashSale(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	requested := req.Quantity

	for i := range cart.Lines {
		if s.sameLine(&cart.Lines[i], req, saleID) {
			requested += cart.Lines[i].Quantity
		}
	}

	if saleProduct != nil {
		if requested > saleProduct.Stock {
			return nil, apperrors.InsufficientStockError(
				fmt.Sprintf("Only %d of %q left in the flash sale", saleProduct.Stock, product.Name))
		}
	} else if !product.BackorderAllowed && requested > product.StockQuantity {
		return nil, apperrors.InsufficientStockError(
			fmt.Sprintf("Only %d of %q available", product.StockQuantity, product.Name))
	}

	merged := false

	for i := range cart.Lines {
		if s.sameLine(&cart.Lines[i], req, saleID) {
			cart.Lines[i].Quantity += req.Quantity
			merged = true

			break
		}
	}

	if !merged {
		unitPrice := product.Price

		switch {
		case saleProduct != nil:
			unitPrice = saleProduct.FlashPrice
		case req.Variant != nil && req.Variant.PriceOverride != nil:
			unitPrice = *req.Variant.PriceOverride
		}

		cart.Lines = append(cart.Lines, models.CartLine{
			ID:          uuid.New(),
			ProductID:   req.ProductID,
			ProductName: product.Name,
			Quantity:    req.Quantity,
			UnitPrice:   models.Round2(unitPrice),
			Variant:     req.Variant,
			FlashSaleID: saleID,
			AddedAt:     time.Now(),
		})
	}

	return s.save(ctx, cart)
}

// AddBundle puts a bundle line in the cart at the bundle price. The
// allowance is checked here for early feedback; checkout revalidates
// and records the sale.
func (s *CartService) AddBundle(ctx context.Context, userID uuid.UUID, req *models.AddBundleRequest) (*models.Cart, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	requested := req.Quantity

	for i := range cart.Lines {
		if cart.Lines[i].BundleID == req.BundleID && !cart.Lines[i].SavedForLater {
			requested += cart.Lines[i].Quantity
		}
	}

	bundle, err := s.bundleService.ValidateForPurchase(ctx, req.BundleID, requested)
	if err != nil {
		return nil, err
	}

	merged := false

	for i := range cart.Lines {
		if cart.Lines[i].BundleID == req.BundleID && !cart.Lines[i].SavedForLater {
			cart.Lines[i].Quantity += req.Quantity
			merged = true

			break
		}
	}

	if !merged {
		cart.Lines = append(cart.Lines, models.CartLine{
			ID:          uuid.New(),
			ProductName: bundle.Name,
			Quantity:    req.Quantity,
			UnitPrice:   models.Round2(bundle.BundlePrice),
			BundleID:    bundle.ID,
			AddedAt:     time.Now(),
		})
	}

	return s.save(ctx, cart)
}

// resolveFlashSale returns the sale id and sale-side product entry when
// an active sale prices this product, or zero values when none does.
func (s *CartService) resolveFlashSale(ctx context.Context, productID int64) (uuid.UUID, *models.FlashSaleProduct, error) {
	sale, err := s.flashSaleService.FindActiveSaleForProduct(ctx, productID)
	if err != nil {
		return uuid.Nil, nil, err
	}

	if sale == nil {
		return uuid.Nil, nil, nil
	}

	product := sale.Product(productID)
	if product == nil {
		return uuid.Nil, nil, nil
	}

	return sale.ID, product, nil
}

// sameLine is the merge identity for catalog adds: same product, same
// variant, same sale (a flash line never merges into a plain one) and
// still purchasable.
func (s *CartService) sameLine(line *models.CartLine, req *models.AddItemRequest, saleID uuid.UUID) bool {
	return line.SameProduct(req.ProductID, req.Variant) && line.FlashSaleID == saleID && !line.SavedForLater
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID uuid.UUID, req *models.UpdateQuantityRequest) (*models.Cart, error) {
	cart, err := s.getCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	line := cart.FindLine(req.LineID)
	if line == nil {
		return nil, apperrors.BadRequestError("Item not found in the cart")
	}

	line.Quantity = req.Quantity

	return s.save(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, lineID uuid.UUID) (*models.Cart, error) {
	cart, err := s.getCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false

	for i := range cart.Lines {
		if cart.Lines[i].ID == lineID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			found = true

			break
		}
	}

	if !found {
		return nil, apperrors.BadRequestError("Item not found in the cart")
	}

	return s.save(ctx, cart)
}

// ToggleSavedForLater moves a line in or out of the purchasable set.
// Saved lines keep their price snapshot but drop out of the totals.
func (s *CartService) ToggleSavedForLater(ctx context.Context, userID uuid.UUID, lineID uuid.UUID) (*models.Cart, error) {
	cart, err := s.getCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	line := cart.FindLine(lineID)
	if line == nil {
		return nil, apperrors.BadRequestError("Item not found in the cart")
	}

	line.SavedForLater = !line.SavedForLater

	return s.save(ctx, cart)
}

// ApplyCoupon rejects a coupon whose minimum purchase the current
// subtotal misses. A discount that rounds to zero is still accepted.
func (s *CartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, req *models.ApplyCouponRequest) (*models.Cart, error) {
	cart, err := s.getCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	coupon := &models.Coupon{
		Code: req.Code,
		Discount: models.Discount{
			Type:        req.Type,
			Value:       req.Value,
			MinPurchase: req.MinPurchase,
			MaxDiscount: req.MaxDiscount,
		},
	}

	if coupon.Discount.MinPurchase > 0 && cart.Subtotal < coupon.Discount.MinPurchase {
		return nil, apperrors.CouponNotEligibleError(
			fmt.Sprintf("Coupon %q requires a minimum purchase of %.2f", coupon.Code, coupon.Discount.MinPurchase))
	}

	cart.Coupon = coupon

	return s.save(ctx, cart)
}

func (s *CartService) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.getCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Coupon = nil

	return s.save(ctx, cart)
}

// Clear empties the cart in place. The cart row survives; an order
// submission and an explicit clear both land here.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.getCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Lines = []models.CartLine{}
	cart.Coupon = nil

	return s.save(ctx, cart)
}

func (s *CartService) getCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.GetCartByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Cart not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to retrieve cart").WithError(err)
	}

	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.Recompute()
	cart.UpdatedAt = time.Now()

	if err := s.repo.UpdateCart(ctx, cart); err != nil {
		return nil, apperrors.DatabaseError("Failed to update cart").WithError(err)
	}

	return cart, nil
}
