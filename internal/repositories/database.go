package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/config"
	"github.com/lib/pq"
)

// Sentinel errors for conditional updates. Services translate these
// into the user-facing taxonomy.
var (
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrPerCustomerLimit    = errors.New("per-customer limit exceeded")
	ErrReservationConflict = errors.New("reservation conflict")
)

// isSerializationFailure reports whether postgres aborted the
// transaction because of a concurrent-update race. Callers treat it as
// transient and retry.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error

	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}

	return false
}

type Repositories struct {
	DB           *sql.DB
	Product      ProductRepository
	Cart         CartRepository
	Bundle       BundleRepository
	FlashSale    FlashSaleRepository
	Loyalty      LoyaltyRepository
	Order        OrderRepository
	Notification NotificationRepository
}

func New(cfg *config.Config) (*Repositories, error) {
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Repositories{
		DB:           db,
		Product:      NewProductRepo(db),
		Cart:         NewCartRepo(db),
		Bundle:       NewBundleRepo(db),
		FlashSale:    NewFlashSaleRepo(db),
		Loyalty:      NewLoyaltyRepo(db),
		Order:        NewOrderRepo(db),
		Notification: NewNotificationRepo(db),
	}, nil
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}
