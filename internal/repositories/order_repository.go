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

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]models.Order, int, error)
	UpdateStatus(ctx context.Context, order *models.Order, entry models.TimelineEntry) error
	UpdatePayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paymentRef string) error
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

// CreateOrder persists the order, its items and the opening timeline
// entry in one transaction. The pricing fields are frozen here and
// never updated afterwards.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	query := `
		INSERT INTO orders (id, order_number, customer_id, status, subtotal, shipping_fee, tax, coupon_discount,
		                    points_discount, points_applied, total_amount, currency, coupon_code, payment_status, payment_ref,
		                    shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(dbCtx, query,
		order.ID, order.OrderNumber, order.CustomerID, order.Status,
		order.Subtotal, order.ShippingFee, order.Tax, order.CouponDiscount,
		order.PointsDiscount, order.PointsApplied, order.TotalAmount, order.Currency,
		order.CouponCode, order.PaymentStatus, order.PaymentRef, addressJSON,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		query := `
			INSERT INTO order_items (id, order_id, product_id, product_name, sku, image_url, quantity, unit_price, flash_sale_id, bundle_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		`

		_, err := tx.ExecContext(dbCtx, query,
			item.ID, order.ID, item.ProductID, item.ProductName, item.SKU, item.ImageURL,
			item.Quantity, item.UnitPrice, nullUUID(item.FlashSaleID), nullUUID(item.BundleID),
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	for _, entry := range order.Timeline {
		if err := insertTimelineEntry(dbCtx, tx, order.ID, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}

	return id
}

func insertTimelineEntry(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, entry models.TimelineEntry) error {
	query := `
		INSERT INTO order_timeline (order_id, status, message, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := tx.ExecContext(ctx, query, orderID, entry.Status, entry.Message, entry.Timestamp); err != nil {
		return fmt.Errorf("failed to insert timeline entry: %w", err)
	}

	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	order := &models.Order{ID: id}

	query := `
		SELECT order_number, customer_id, status, subtotal, shipping_fee, tax, coupon_discount,
		       points_discount, points_applied, total_amount, currency, coupon_code, payment_status, payment_ref,
		       shipping_address, tracking_number, shipped_at, delivered_at, cancelled_at, refunded_at, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var (
		addressJSON    []byte
		trackingNumber sql.NullString
	)

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&order.OrderNumber, &order.CustomerID, &order.Status,
		&order.Subtotal, &order.ShippingFee, &order.Tax, &order.CouponDiscount,
		&order.PointsDiscount, &order.PointsApplied, &order.TotalAmount, &order.Currency,
		&order.CouponCode, &order.PaymentStatus, &order.PaymentRef, &addressJSON,
		&trackingNumber, &order.ShippedAt, &order.DeliveredAt, &order.CancelledAt, &order.RefundedAt,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying order: %w", err)
	}

	order.TrackingNumber = trackingNumber.String

	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}

	if err := r.loadItems(dbCtx, order); err != nil {
		return nil, err
	}

	if err := r.loadTimeline(dbCtx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, order *models.Order) error {
	query := `
		SELECT id, product_id, product_name, sku, image_url, quantity, unit_price, flash_sale_id, bundle_id, created_at
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.DB.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}

	defer rows.Close()

	var items []models.OrderItem

	for rows.Next() {
		var (
			item        models.OrderItem
			flashSaleID uuid.NullUUID
			bundleID    uuid.NullUUID
		)

		err := rows.Scan(
			&item.ID, &item.ProductID, &item.ProductName, &item.SKU, &item.ImageURL,
			&item.Quantity, &item.UnitPrice, &flashSaleID, &bundleID, &item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}

		item.OrderID = order.ID
		item.FlashSaleID = flashSaleID.UUID
		item.BundleID = bundleID.UUID

		items = append(items, item)
	}

	order.Items = items

	return rows.Err()
}

func (r *orderRepository) loadTimeline(ctx context.Context, order *models.Order) error {
	query := `
		SELECT status, message, created_at
		FROM order_timeline
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.DB.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to get order timeline: %w", err)
	}

	defer rows.Close()

	var timeline []models.TimelineEntry

	for rows.Next() {
		var entry models.TimelineEntry

		if err := rows.Scan(&entry.Status, &entry.Message, &entry.Timestamp); err != nil {
			return fmt.Errorf("failed to scan timeline entry: %w", err)
		}

		timeline = append(timeline, entry)
	}

	order.Timeline = timeline

	return rows.Err()
}

func (r *orderRepository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * size

	query := `
		SELECT id, order_number, status, subtotal, shipping_fee, tax, coupon_discount,
		       points_discount, points_applied, total_amount, currency, coupon_code, payment_status, payment_ref,
		       shipping_address, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(dbCtx, query, customerID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	defer rows.Close()

	var orders []models.Order

	for rows.Next() {
		var order models.Order

		order.CustomerID = customerID

		var addressJSON []byte

		err := rows.Scan(
			&order.ID, &order.OrderNumber, &order.Status,
			&order.Subtotal, &order.ShippingFee, &order.Tax, &order.CouponDiscount,
			&order.PointsDiscount, &order.PointsApplied, &order.TotalAmount, &order.Currency,
			&order.CouponCode, &order.PaymentStatus, &order.PaymentRef, &addressJSON,
			&order.CreatedAt, &order.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}

		if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		if err := r.loadItems(dbCtx, &orders[i]); err != nil {
			return nil, 0, err
		}
	}

	return orders, total, nil
}

// UpdateStatus writes the status plus its dedicated timestamp column
// and appends the timeline entry in one transaction.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *models.Order, entry models.TimelineEntry) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	query := `
		UPDATE orders
		SET status = $2, tracking_number = $3, shipped_at = $4, delivered_at = $5, cancelled_at = $6, refunded_at = $7, updated_at = NOW()
		WHERE id = $1
	`

	var tracking any
	if order.TrackingNumber != "" {
		tracking = order.TrackingNumber
	}

	result, err := tx.ExecContext(dbCtx, query,
		order.ID, order.Status, tracking,
		order.ShippedAt, order.DeliveredAt, order.CancelledAt, order.RefundedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	if err := insertTimelineEntry(dbCtx, tx, order.ID, entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *orderRepository) UpdatePayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paymentRef string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders
		SET payment_status = $2, payment_ref = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, id, status, paymentRef, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
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
