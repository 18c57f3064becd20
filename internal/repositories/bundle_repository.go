package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils"
	"github.com/google/uuid"
)

type BundleRepository interface {
	CreateBundle(ctx context.Context, bundle *models.ProductBundle) error
	GetBundleByID(ctx context.Context, id uuid.UUID) (*models.ProductBundle, error)
	ListBundles(ctx context.Context, page, size int) ([]models.ProductBundle, int, error)
	UpdateBundlePrice(ctx context.Context, bundle *models.ProductBundle) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.BundleStatus) error
	IncrementSold(ctx context.Context, id uuid.UUID, qty int) error
	DecrementSold(ctx context.Context, id uuid.UUID, qty int) error
}

type bundleRepository struct {
	DB *sql.DB
}

func NewBundleRepo(db *sql.DB) BundleRepository {
	return &bundleRepository{DB: db}
}

func (r *bundleRepository) CreateBundle(ctx context.Context, bundle *models.ProductBundle) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	itemsJSON, err := json.Marshal(bundle.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal bundle items: %w", err)
	}

	query := `
		INSERT INTO bundles (id, name, description, items, original_price, bundle_price, savings_amount, savings_percentage,
		                     allow_backorder, total_quantity, sold_quantity, per_customer_limit, valid_from, valid_until, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12, $13, $14, 1, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query,
		bundle.ID, bundle.Name, bundle.Description, itemsJSON,
		bundle.OriginalPrice, bundle.BundlePrice, bundle.SavingsAmount, bundle.SavingsPercentage,
		bundle.AllowBackorder, bundle.TotalQuantity, bundle.PerCustomerLimit,
		bundle.ValidFrom, bundle.ValidUntil, bundle.Status,
	).Scan(&bundle.CreatedAt, &bundle.UpdatedAt)
}

func (r *bundleRepository) GetBundleByID(ctx context.Context, id uuid.UUID) (*models.ProductBundle, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, description, items, original_price, bundle_price, savings_amount, savings_percentage,
		       allow_backorder, total_quantity, sold_quantity, per_customer_limit, valid_from, valid_until, status, version, created_at, updated_at
		FROM bundles
		WHERE id = $1
	`

	bundle := &models.ProductBundle{}

	var itemsJSON []byte

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&bundle.ID, &bundle.Name, &bundle.Description, &itemsJSON,
		&bundle.OriginalPrice, &bundle.BundlePrice, &bundle.SavingsAmount, &bundle.SavingsPercentage,
		&bundle.AllowBackorder, &bundle.TotalQuantity, &bundle.SoldQuantity, &bundle.PerCustomerLimit,
		&bundle.ValidFrom, &bundle.ValidUntil, &bundle.Status, &bundle.Version,
		&bundle.CreatedAt, &bundle.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying bundle: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &bundle.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bundle items: %w", err)
	}

	return bundle, nil
}

func (r *bundleRepository) ListBundles(ctx context.Context, page, size int) ([]models.ProductBundle, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM bundles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bundles: %w", err)
	}

	offset := (page - 1) * size

	query := `
		SELECT id, name, description, items, original_price, bundle_price, savings_amount, savings_percentage,
		       allow_backorder, total_quantity, sold_quantity, per_customer_limit, valid_from, valid_until, status, version, created_at, updated_at
		FROM bundles
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.DB.QueryContext(dbCtx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bundles: %w", err)
	}

	defer rows.Close()

	var bundles []models.ProductBundle

	for rows.Next() {
		var bundle models.ProductBundle

		var itemsJSON []byte

		err := rows.Scan(
			&bundle.ID, &bundle.Name, &bundle.Description, &itemsJSON,
			&bundle.OriginalPrice, &bundle.BundlePrice, &bundle.SavingsAmount, &bundle.SavingsPercentage,
			&bundle.AllowBackorder, &bundle.TotalQuantity, &bundle.SoldQuantity, &bundle.PerCustomerLimit,
			&bundle.ValidFrom, &bundle.ValidUntil, &bundle.Status, &bundle.Version,
			&bundle.CreatedAt, &bundle.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan bundle: %w", err)
		}

		if err := json.Unmarshal(itemsJSON, &bundle.Items); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal bundle items: %w", err)
		}

		bundles = append(bundles, bundle)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return bundles, total, nil
}

func (r *bundleRepository) UpdateBundlePrice(ctx context.Context, bundle *models.ProductBundle) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE bundles
		SET bundle_price = $2, savings_amount = $3, savings_percentage = $4, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, bundle.ID, bundle.BundlePrice, bundle.SavingsAmount, bundle.SavingsPercentage)
	if err != nil {
		return fmt.Errorf("failed to update bundle price: %w", err)
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

func (r *bundleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BundleStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE bundles
		SET status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update bundle status: %w", err)
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

// IncrementSold takes qty out of the bundle's total-quantity allowance
// in one statement. An unlimited bundle (total_quantity = 0) always
// succeeds.
func (r *bundleRepository) IncrementSold(ctx context.Context, id uuid.UUID, qty int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE bundles
		SET sold_quantity = sold_quantity + $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND (total_quantity = 0 OR sold_quantity + $2 <= total_quantity)
	`

	result, err := r.DB.ExecContext(dbCtx, query, id, qty)
	if err != nil {
		if isSerializationFailure(err) {
			return ErrReservationConflict
		}

		return fmt.Errorf("failed to increment sold quantity: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return ErrInsufficientStock
	}

	return nil
}

func (r *bundleRepository) DecrementSold(ctx context.Context, id uuid.UUID, qty int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE bundles
		SET sold_quantity = GREATEST(sold_quantity - $2, 0), version = version + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, id, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement sold quantity: %w", err)
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
