package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils"
	"github.com/google/uuid"
)

type FlashSaleRepository interface {
	CreateFlashSale(ctx context.Context, sale *models.FlashSale) error
	GetFlashSaleByID(ctx context.Context, id uuid.UUID) (*models.FlashSale, error)
	FindActiveSaleForProduct(ctx context.Context, productID int64) (*models.FlashSale, error)
	ListFlashSales(ctx context.Context, page, size int) ([]models.FlashSale, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.FlashSaleStatus, overrideSetAt *time.Time) error
	CustomerReserved(ctx context.Context, saleID uuid.UUID, productID int64, customerID uuid.UUID) (int, error)
	ReserveStock(ctx context.Context, saleID uuid.UUID, productID int64, customerID uuid.UUID, qty, maxPerCustomer int) (*models.ReservationResult, error)
	ReleaseStock(ctx context.Context, saleID uuid.UUID, productID int64, customerID uuid.UUID, qty int) error
}

type flashSaleRepository struct {
	DB *sql.DB
}

func NewFlashSaleRepo(db *sql.DB) FlashSaleRepository {
	return &flashSaleRepository{DB: db}
}

func (r *flashSaleRepository) CreateFlashSale(ctx context.Context, sale *models.FlashSale) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	query := `
		INSERT INTO flash_sales (id, name, description, start_time, end_time, timezone, recurrence, status, banner_url, priority, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(dbCtx, query,
		sale.ID, sale.Name, sale.Description,
		sale.Schedule.StartTime, sale.Schedule.EndTime, sale.Schedule.Timezone, sale.Schedule.Recurrence,
		sale.Status, sale.BannerURL, sale.Priority,
	).Scan(&sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert flash sale: %w", err)
	}

	for _, p := range sale.Products {
		query := `
			INSERT INTO flash_sale_products (sale_id, product_id, product_name, flash_price, original_price, discount_percentage, stock, sold_count, max_per_customer)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
		`

		_, err := tx.ExecContext(dbCtx, query,
			sale.ID, p.ProductID, p.ProductName, p.FlashPrice, p.OriginalPrice,
			p.DiscountPercentage, p.Stock, p.MaxPerCustomer,
		)
		if err != nil {
			return fmt.Errorf("failed to insert flash sale product: %w", err)
		}
	}

	return tx.Commit()
}

func (r *flashSaleRepository) GetFlashSaleByID(ctx context.Context, id uuid.UUID) (*models.FlashSale, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, description, start_time, end_time, timezone, recurrence, status, override_set_at, banner_url, priority, version, created_at, updated_at
		FROM flash_sales
		WHERE id = $1
	`

	sale := &models.FlashSale{}

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&sale.ID, &sale.Name, &sale.Description,
		&sale.Schedule.StartTime, &sale.Schedule.EndTime, &sale.Schedule.Timezone, &sale.Schedule.Recurrence,
		&sale.Status, &sale.OverrideSetAt, &sale.BannerURL, &sale.Priority, &sale.Version,
		&sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying flash sale: %w", err)
	}

	if err := r.loadProducts(dbCtx, sale); err != nil {
		return nil, err
	}

	return sale, nil
}

// FindActiveSaleForProduct resolves the sale (if any) whose window is
// open right now and that carries the product. Sales with higher
// priority win when a product appears in more than one.
func (r *flashSaleRepository) FindActiveSaleForProduct(ctx context.Context, productID int64) (*models.FlashSale, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT s.id
		FROM flash_sales s
		JOIN flash_sale_products p ON p.sale_id = s.id
		WHERE p.product_id = $1
		  AND s.start_time <= NOW() AND s.end_time >= NOW()
		  AND s.status NOT IN ('ended', 'paused')
		ORDER BY s.priority DESC, s.start_time
		LIMIT 1
	`

	var saleID uuid.UUID

	err := r.DB.QueryRowContext(dbCtx, query, productID).Scan(&saleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying active sale for product: %w", err)
	}

	return r.GetFlashSaleByID(ctx, saleID)
}

func (r *flashSaleRepository) ListFlashSales(ctx context.Context, page, size int) ([]models.FlashSale, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM flash_sales`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count flash sales: %w", err)
	}

	offset := (page - 1) * size

	query := `
		SELECT id, name, description, start_time, end_time, timezone, recurrence, status, override_set_at, banner_url, priority, version, created_at, updated_at
		FROM flash_sales
		ORDER BY priority DESC, start_time DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.DB.QueryContext(dbCtx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list flash sales: %w", err)
	}

	defer rows.Close()

	var sales []models.FlashSale

	for rows.Next() {
		var sale models.FlashSale

		err := rows.Scan(
			&sale.ID, &sale.Name, &sale.Description,
			&sale.Schedule.StartTime, &sale.Schedule.EndTime, &sale.Schedule.Timezone, &sale.Schedule.Recurrence,
			&sale.Status, &sale.OverrideSetAt, &sale.BannerURL, &sale.Priority, &sale.Version,
			&sale.CreatedAt, &sale.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan flash sale: %w", err)
		}

		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range sales {
		if err := r.loadProducts(dbCtx, &sales[i]); err != nil {
			return nil, 0, err
		}
	}

	return sales, total, nil
}

func (r *flashSaleRepository) loadProducts(ctx context.Context, sale *models.FlashSale) error {
	query := `
		SELECT product_id, product_name, flash_price, original_price, discount_percentage, stock, sold_count, max_per_customer
		FROM flash_sale_products
		WHERE sale_id = $1
		ORDER BY product_id
	`

	rows, err := r.DB.QueryContext(ctx, query, sale.ID)
	if err != nil {
		return fmt.Errorf("failed to get flash sale products: %w", err)
	}

	defer rows.Close()

	var products []models.FlashSaleProduct

	for rows.Next() {
		var p models.FlashSaleProduct

		err := rows.Scan(
			&p.ProductID, &p.ProductName, &p.FlashPrice, &p.OriginalPrice,
			&p.DiscountPercentage, &p.Stock, &p.SoldCount, &p.MaxPerCustomer,
		)
		if err != nil {
			return fmt.Errorf("failed to scan flash sale product: %w", err)
		}

		products = append(products, p)
	}

	sale.Products = products

	return rows.Err()
}

func (r *flashSaleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.FlashSaleStatus, overrideSetAt *time.Time) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE flash_sales
		SET status = $2, override_set_at = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, id, status, overrideSetAt)
	if err != nil {
		return fmt.Errorf("failed to update flash sale status: %w", err)
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

func (r *flashSaleRepository) CustomerReserved(ctx context.Context, saleID uuid.UUID, productID int64, customerID uuid.UUID) (int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM flash_sale_reservations
		WHERE sale_id = $1 AND product_id = $2 AND customer_id = $3
	`

	var reserved int

	if err := r.DB.QueryRowContext(dbCtx, query, saleID, productID, customerID).Scan(&reserved); err != nil {
		return 0, fmt.Errorf("querying customer reservations: %w", err)
	}

	return reserved, nil
}

// ReserveStock performs the whole reservation in one transaction:
// decrement-if-available, bump the customer's cumulative tally against
// the per-customer cap, and flip the sale to sold_out when the last
// unit of the last product goes. Stock only moves to sold_count; the
// conditional UPDATE is what closes the check-then-decrement race.
func (r *flashSaleRepository) ReserveStock(ctx context.Context, saleID uuid.UUID, productID int64, customerID uuid.UUID, qty, maxPerCustomer int) (*models.ReservationResult, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	var remaining int

	query := `
		UPDATE flash_sale_products
		SET stock = stock - $3, sold_count = sold_count + $3
		WHERE sale_id = $1 AND product_id = $2 AND stock >= $3
		RETURNING stock
	`

	err = tx.QueryRowContext(dbCtx, query, saleID, productID, qty).Scan(&remaining)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInsufficientStock
		}

		if isSerializationFailure(err) {
			return nil, ErrReservationConflict
		}

		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	if maxPerCustomer > 0 && qty > maxPerCustomer {
		return nil, ErrPerCustomerLimit
	}

	// Cumulative per-customer tally, guarded in the same statement so a
	// pair of concurrent reservations cannot both slip under the cap.
	// The guard only fires on conflict; the first insert is covered by
	// the qty check above.
	tallyQuery := `
		INSERT INTO flash_sale_reservations (sale_id, product_id, customer_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (sale_id, product_id, customer_id)
		DO UPDATE SET quantity = flash_sale_reservations.quantity + EXCLUDED.quantity, updated_at = NOW()
		WHERE $5 = 0 OR flash_sale_reservations.quantity + EXCLUDED.quantity <= $5
	`

	result, err := tx.ExecContext(dbCtx, tallyQuery, saleID, productID, customerID, qty, maxPerCustomer)
	if err != nil {
		if isSerializationFailure(err) {
			return nil, ErrReservationConflict
		}

		return nil, fmt.Errorf("failed to record reservation: %w", err)
	}

	tallyRows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get updated rows: %w", err)
	}

	if tallyRows == 0 {
		return nil, ErrPerCustomerLimit
	}

	saleStatus := models.FlashSaleStatusActive

	if remaining == 0 {
		var exhausted bool

		err := tx.QueryRowContext(dbCtx,
			`SELECT NOT EXISTS (SELECT 1 FROM flash_sale_products WHERE sale_id = $1 AND stock > 0)`,
			saleID,
		).Scan(&exhausted)
		if err != nil {
			return nil, fmt.Errorf("failed to check exhaustion: %w", err)
		}

		if exhausted {
			// Only an active sale flips; a manual pause or force-end
			// keeps its override.
			_, err := tx.ExecContext(dbCtx,
				`UPDATE flash_sales SET status = 'sold_out', version = version + 1, updated_at = NOW() WHERE id = $1 AND status = 'active'`,
				saleID,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to mark sale sold out: %w", err)
			}

			saleStatus = models.FlashSaleStatusSoldOut
		}
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return nil, ErrReservationConflict
		}

		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	return &models.ReservationResult{
		SaleID:         saleID,
		ProductID:      productID,
		Quantity:       qty,
		RemainingStock: remaining,
		SaleStatus:     saleStatus,
	}, nil
}

// ReleaseStock reverses a reservation. A sale that went sold_out purely
// by exhaustion reverts to active; manual overrides are untouched
// because they carry a different status value.
func (r *flashSaleRepository) ReleaseStock(ctx context.Context, saleID uuid.UUID, productID int64, customerID uuid.UUID, qty int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	query := `
		UPDATE flash_sale_products
		SET stock = stock + $3, sold_count = sold_count - $3
		WHERE sale_id = $1 AND product_id = $2 AND sold_count >= $3
	`

	result, err := tx.ExecContext(dbCtx, query, saleID, productID, qty)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	_, err = tx.ExecContext(dbCtx, `
		UPDATE flash_sale_reservations
		SET quantity = GREATEST(quantity - $4, 0), updated_at = NOW()
		WHERE sale_id = $1 AND product_id = $2 AND customer_id = $3
	`, saleID, productID, customerID, qty)
	if err != nil {
		return fmt.Errorf("failed to reduce reservation tally: %w", err)
	}

	_, err = tx.ExecContext(dbCtx,
		`UPDATE flash_sales SET status = 'active', version = version + 1, updated_at = NOW() WHERE id = $1 AND status = 'sold_out'`,
		saleID,
	)
	if err != nil {
		return fmt.Errorf("failed to reactivate sale: %w", err)
	}

	return tx.Commit()
}
