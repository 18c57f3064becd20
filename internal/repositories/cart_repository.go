package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils"
	"github.com/google/uuid"
)

type CartRepository interface {
	CreateCart(ctx context.Context, cart *models.Cart) error
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	UpdateCart(ctx context.Context, cart *models.Cart) error
}

type cartRepository struct {
	DB *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepository {
	return &cartRepository{DB: db}
}

func (r *cartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	linesJSON, err := json.Marshal(cart.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal cart lines: %w", err)
	}

	couponJSON, err := json.Marshal(cart.Coupon)
	if err != nil {
		return fmt.Errorf("failed to marshal coupon: %w", err)
	}

	query := `
		INSERT INTO carts (id, user_id, lines, coupon, currency, subtotal, discount, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query,
		cart.ID, cart.UserID, linesJSON, couponJSON, cart.Currency,
		cart.Subtotal, cart.Discount, cart.Total,
	).Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
}

func (r *cartRepository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, lines, coupon, currency, subtotal, discount, total, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	cart := &models.Cart{}

	var linesJSON, couponJSON []byte

	err := r.DB.QueryRowContext(dbCtx, query, userID).Scan(
		&cart.ID, &cart.UserID, &linesJSON, &couponJSON, &cart.Currency,
		&cart.Subtotal, &cart.Discount, &cart.Total, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying cart: %w", err)
	}

	if err := json.Unmarshal(linesJSON, &cart.Lines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart lines: %w", err)
	}

	if len(couponJSON) > 0 {
		if err := json.Unmarshal(couponJSON, &cart.Coupon); err != nil {
			return nil, fmt.Errorf("failed to unmarshal coupon: %w", err)
		}
	}

	return cart, nil
}

func (r *cartRepository) UpdateCart(ctx context.Context, cart *models.Cart) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	linesJSON, err := json.Marshal(cart.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal cart lines: %w", err)
	}

	couponJSON, err := json.Marshal(cart.Coupon)
	if err != nil {
		return fmt.Errorf("failed to marshal coupon: %w", err)
	}

	query := `
		UPDATE carts
		SET lines = $1, coupon = $2, subtotal = $3, discount = $4, total = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.DB.ExecContext(dbCtx, query,
		linesJSON, couponJSON, cart.Subtotal, cart.Discount, cart.Total, time.Now(), cart.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update the cart: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
