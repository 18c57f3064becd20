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

type LoyaltyRepository interface {
	GetSummary(ctx context.Context, userID uuid.UUID) (*models.LoyaltySummary, error)
	ApplyEntry(ctx context.Context, summary *models.LoyaltySummary, entry *models.PointsEntry) error
	ListHistory(ctx context.Context, userID uuid.UUID, page, size int) ([]models.PointsEntry, int, error)
	GetRewardByID(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	ListActiveRewards(ctx context.Context) ([]models.Reward, error)
	CreateRedemption(ctx context.Context, redemption *models.Redemption) error
	GetRedemptionByCode(ctx context.Context, code string) (*models.Redemption, error)
	UpdateRedemptionStatus(ctx context.Context, id uuid.UUID, status models.RedemptionStatus) error
	ExpireRedemptions(ctx context.Context, now time.Time) (int64, error)
}

type loyaltyRepository struct {
	DB *sql.DB
}

func NewLoyaltyRepo(db *sql.DB) LoyaltyRepository {
	return &loyaltyRepository{DB: db}
}

// GetSummary returns the balance row, lazily creating a bronze row on
// first touch.
func (r *loyaltyRepository) GetSummary(ctx context.Context, userID uuid.UUID) (*models.LoyaltySummary, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO loyalty_summaries (user_id, total_points, available_points, lifetime_points, tier, updated_at)
		VALUES ($1, 0, 0, 0, 'bronze', NOW())
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, total_points, available_points, lifetime_points, tier, updated_at
	`

	summary := &models.LoyaltySummary{}

	err := r.DB.QueryRowContext(dbCtx, query, userID).Scan(
		&summary.UserID, &summary.TotalPoints, &summary.AvailablePoints,
		&summary.LifetimePoints, &summary.Tier, &summary.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("querying loyalty summary: %w", err)
	}

	return summary, nil
}

// ApplyEntry writes the new balances and the ledger row in one
// transaction. The availability guard keeps concurrent redemptions from
// driving available_points negative.
func (r *loyaltyRepository) ApplyEntry(ctx context.Context, summary *models.LoyaltySummary, entry *models.PointsEntry) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	query := `
		UPDATE loyalty_summaries
		SET total_points = total_points + $2,
		    available_points = available_points + $2,
		    lifetime_points = lifetime_points + $3,
		    tier = $4,
		    updated_at = NOW()
		WHERE user_id = $1 AND available_points + $2 >= 0
		RETURNING total_points, available_points, lifetime_points
	`

	lifetimeDelta := 0
	if entry.Points > 0 {
		lifetimeDelta = entry.Points
	}

	err = tx.QueryRowContext(dbCtx, query, summary.UserID, entry.Points, lifetimeDelta, summary.Tier).Scan(
		&summary.TotalPoints, &summary.AvailablePoints, &summary.LifetimePoints,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrInsufficientPoints
		}

		return fmt.Errorf("failed to update loyalty balances: %w", err)
	}

	ledgerQuery := `
		INSERT INTO points_ledger (id, user_id, type, points, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	err = tx.QueryRowContext(dbCtx, ledgerQuery,
		entry.ID, entry.UserID, entry.Type, entry.Points, entry.Reference,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return tx.Commit()
}

func (r *loyaltyRepository) ListHistory(ctx context.Context, userID uuid.UUID, page, size int) ([]models.PointsEntry, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM points_ledger WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	offset := (page - 1) * size

	query := `
		SELECT id, user_id, type, points, reference, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(dbCtx, query, userID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	defer rows.Close()

	var entries []models.PointsEntry

	for rows.Next() {
		var entry models.PointsEntry

		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Type, &entry.Points, &entry.Reference, &entry.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *loyaltyRepository) GetRewardByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, type, value, minimum_points, minimum_purchase, max_discount, active, created_at
		FROM rewards
		WHERE id = $1
	`

	reward := &models.Reward{}

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&reward.ID, &reward.Name, &reward.Type, &reward.Value,
		&reward.MinimumPoints, &reward.MinimumPurchase, &reward.MaxDiscount,
		&reward.Active, &reward.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying reward: %w", err)
	}

	return reward, nil
}

func (r *loyaltyRepository) ListActiveRewards(ctx context.Context) ([]models.Reward, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, type, value, minimum_points, minimum_purchase, max_discount, active, created_at
		FROM rewards
		WHERE active
		ORDER BY minimum_points
	`

	rows, err := r.DB.QueryContext(dbCtx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}

	defer rows.Close()

	var rewards []models.Reward

	for rows.Next() {
		var reward models.Reward

		err := rows.Scan(
			&reward.ID, &reward.Name, &reward.Type, &reward.Value,
			&reward.MinimumPoints, &reward.MinimumPurchase, &reward.MaxDiscount,
			&reward.Active, &reward.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}

		rewards = append(rewards, reward)
	}

	return rewards, rows.Err()
}

func (r *loyaltyRepository) CreateRedemption(ctx context.Context, redemption *models.Redemption) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO redemptions (id, user_id, reward_id, reward_type, value, points_spent, code, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`

	return r.DB.QueryRowContext(dbCtx, query,
		redemption.ID, redemption.UserID, redemption.RewardID, redemption.RewardType,
		redemption.Value, redemption.PointsSpent, redemption.Code, redemption.Status, redemption.ExpiresAt,
	).Scan(&redemption.CreatedAt)
}

func (r *loyaltyRepository) GetRedemptionByCode(ctx context.Context, code string) (*models.Redemption, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, reward_id, reward_type, value, points_spent, code, status, expires_at, created_at
		FROM redemptions
		WHERE code = $1
	`

	redemption := &models.Redemption{}

	err := r.DB.QueryRowContext(dbCtx, query, code).Scan(
		&redemption.ID, &redemption.UserID, &redemption.RewardID, &redemption.RewardType,
		&redemption.Value, &redemption.PointsSpent, &redemption.Code, &redemption.Status,
		&redemption.ExpiresAt, &redemption.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying redemption: %w", err)
	}

	return redemption, nil
}

func (r *loyaltyRepository) UpdateRedemptionStatus(ctx context.Context, id uuid.UUID, status models.RedemptionStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE redemptions
		SET status = $2
		WHERE id = $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update redemption status: %w", err)
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

// ExpireRedemptions is run by the reconciliation sweep.
func (r *loyaltyRepository) ExpireRedemptions(ctx context.Context, now time.Time) (int64, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE redemptions
		SET status = 'expired'
		WHERE status IN ('pending', 'active') AND expires_at < $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire redemptions: %w", err)
	}

	return result.RowsAffected()
}
