package service

import (
	"context"
	"crypto/rand"
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
	"github.com/google/uuid"
)

// tierThresholds maps each tier to the lifetime points needed to reach
// it. Tiers only move up; redemptions spend AvailablePoints and never
// demote.
var tierThresholds = []struct {
	tier       models.LoyaltyTier
	points     int
	multiplier float64
}{
	{models.TierBronze, 0, 1.0},
	{models.TierSilver, 1000, 1.25},
	{models.TierGold, 5000, 1.5},
	{models.TierPlatinum, 15000, 2.0},
	{models.TierDiamond, 50000, 3.0},
}

func tierForLifetime(lifetime int) (models.LoyaltyTier, float64) {
	tier, multiplier := tierThresholds[0].tier, tierThresholds[0].multiplier

	for _, t := range tierThresholds {
		if lifetime >= t.points {
			tier, multiplier = t.tier, t.multiplier
		}
	}

	return tier, multiplier
}

func nextTierAfter(tier models.LoyaltyTier) (models.LoyaltyTier, int, bool) {
	for i, t := range tierThresholds {
		if t.tier == tier && i+1 < len(tierThresholds) {
			return tierThresholds[i+1].tier, tierThresholds[i+1].points, true
		}
	}

	return "", 0, false
}

type LoyaltyService struct {
	repo repository.LoyaltyRepository
	cfg  config.Loyalty
}

func NewLoyaltyService(repo repository.LoyaltyRepository, cfg config.Loyalty) *LoyaltyService {
	return &LoyaltyService{repo: repo, cfg: cfg}
}

// PreviewPoints computes what an order total would earn without writing
// anything. Earn rate is dollars times the program rate times the
// customer's current tier multiplier, floored to whole points.
func (s *LoyaltyService) PreviewPoints(ctx context.Context, userID uuid.UUID, orderTotal float64) (int, error) {
	summary, err := s.getSummary(ctx, userID)
	if err != nil {
		return 0, err
	}

	_, multiplier := tierForLifetime(summary.LifetimePoints)

	return int(math.Floor(orderTotal * s.cfg.PointsPerDollar * multiplier)), nil
}

// EarnPoints credits an order's points and promotes the tier if the new
// lifetime total crosses a threshold. The promotion applies to future
// earns only; the current earn uses the tier the customer held going in.
func (s *LoyaltyService) EarnPoints(ctx context.Context, userID uuid.UUID, orderTotal float64, reference string) (*models.PointsEntry, error) {
	summary, err := s.getSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, multiplier := tierForLifetime(summary.LifetimePoints)

	points := int(math.Floor(orderTotal * s.cfg.PointsPerDollar * multiplier))
	if points <= 0 {
		return nil, nil
	}

	entry := &models.PointsEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      models.PointsEntryEarn,
		Points:    points,
		Reference: reference,
	}

	summary.Tier, _ = tierForLifetime(summary.LifetimePoints + points)

	if err := s.repo.ApplyEntry(ctx, summary, entry); err != nil {
		return nil, apperrors.DatabaseError("Failed to credit points").WithError(err)
	}

	metrics.ObservePoints(string(models.PointsEntryEarn), points)

	return entry, nil
}

// DeductPoints debits points already validated against the balance,
// typically the redemption leg of a checkout.
func (s *LoyaltyService) DeductPoints(ctx context.Context, userID uuid.UUID, points int, reference string) error {
	if points <= 0 {
		return nil
	}

	summary, err := s.getSummary(ctx, userID)
	if err != nil {
		return err
	}

	entry := &models.PointsEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      models.PointsEntryRedeem,
		Points:    -points,
		Reference: reference,
	}

	if err := s.repo.ApplyEntry(ctx, summary, entry); err != nil {
		if errors.Is(err, repository.ErrInsufficientPoints) {
			return apperrors.InsufficientPointsError("Not enough points available").WithError(err)
		}

		return apperrors.DatabaseError("Failed to deduct points").WithError(err)
	}

	metrics.ObservePoints(string(models.PointsEntryRedeem), points)

	return nil
}

// RefundPoints returns previously deducted points after a cancelled or
// refunded order.
func (s *LoyaltyService) RefundPoints(ctx context.Context, userID uuid.UUID, points int, reference string) error {
	if points <= 0 {
		return nil
	}

	summary, err := s.getSummary(ctx, userID)
	if err != nil {
		return err
	}

	entry := &models.PointsEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      models.PointsEntryRefund,
		Points:    points,
		Reference: reference,
	}

	if err := s.repo.ApplyEntry(ctx, summary, entry); err != nil {
		return apperrors.DatabaseError("Failed to refund points").WithError(err)
	}

	metrics.ObservePoints(string(models.PointsEntryRefund), points)

	return nil
}

// ApplyPointsAsDiscount validates a points application against the
// balance and the cap, and returns the dollar discount it is worth.
// Nothing is deducted here; the deduction happens when the order
// commits.
func (s *LoyaltyService) ApplyPointsAsDiscount(ctx context.Context, userID uuid.UUID, req *models.ApplyPointsRequest) (*models.PointsDiscountPreview, error) {
	summary, err := s.getSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Points > summary.AvailablePoints {
		return nil, apperrors.InsufficientPointsError(
			fmt.Sprintf("Only %d points available", summary.AvailablePoints))
	}

	discount := models.Round2(float64(req.Points) / float64(s.cfg.PointsPerDiscount))

	cap := models.Round2(req.OrderTotal * s.cfg.DiscountCapPercent / 100)
	if discount > cap {
		return nil, apperrors.DiscountCapExceededError(
			fmt.Sprintf("Points discount cannot exceed %.0f%% of the order total (%.2f)",
				s.cfg.DiscountCapPercent, cap))
	}

	return &models.PointsDiscountPreview{Points: req.Points, Discount: discount}, nil
}

// GetStatus returns the balance row plus tier progress toward the next
// threshold.
func (s *LoyaltyService) GetStatus(ctx context.Context, userID uuid.UUID) (*models.LoyaltyStatusResponse, error) {
	summary, err := s.getSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	tier, multiplier := tierForLifetime(summary.LifetimePoints)
	summary.Tier = tier

	resp := &models.LoyaltyStatusResponse{
		Summary:    summary,
		Multiplier: multiplier,
	}

	if next, threshold, ok := nextTierAfter(tier); ok {
		resp.NextTier = next
		resp.PointsToGo = threshold - summary.LifetimePoints

		var floor int

		for _, t := range tierThresholds {
			if t.tier == tier {
				floor = t.points
			}
		}

		summary.TierProgress = models.Round2(float64(summary.LifetimePoints-floor) / float64(threshold-floor) * 100)
	} else {
		summary.TierProgress = 100
	}

	return resp, nil
}

func (s *LoyaltyService) GetHistory(ctx context.Context, userID uuid.UUID, page, size int) ([]models.PointsEntry, int, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 100 {
		size = 20
	}

	entries, total, err := s.repo.ListHistory(ctx, userID, page, size)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to fetch points history").WithError(err)
	}

	return entries, total, nil
}

func (s *LoyaltyService) ListRewards(ctx context.Context) ([]models.Reward, error) {
	rewards, err := s.repo.ListActiveRewards(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to fetch rewards").WithError(err)
	}

	return rewards, nil
}

// Redeem converts points into a discount code. The deduction and the
// redemption row are separate writes; a crash between them loses the
// code, not the points, which is the safer failure.
func (s *LoyaltyService) Redeem(ctx context.Context, userID uuid.UUID, req *models.RedeemRequest) (*models.Redemption, error) {
	reward, err := s.repo.GetRewardByID(ctx, req.RewardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Reward not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to fetch reward").WithError(err)
	}

	if !reward.Active {
		return nil, apperrors.BadRequestError("Reward is no longer available")
	}

	if err := s.DeductPoints(ctx, userID, reward.MinimumPoints, "reward:"+reward.ID.String()); err != nil {
		return nil, err
	}

	code, err := generateRedemptionCode()
	if err != nil {
		return nil, apperrors.InternalError("Failed to generate redemption code").WithError(err)
	}

	redemption := &models.Redemption{
		ID:          uuid.New(),
		UserID:      userID,
		RewardID:    reward.ID,
		RewardType:  reward.Type,
		Value:       reward.Value,
		PointsSpent: reward.MinimumPoints,
		Code:        code,
		Status:      models.RedemptionStatusActive,
		ExpiresAt:   time.Now().Add(s.cfg.RedemptionValidity),
	}

	if err := s.repo.CreateRedemption(ctx, redemption); err != nil {
		// best effort: give the points back rather than strand them
		_ = s.RefundPoints(ctx, userID, reward.MinimumPoints, "reward-rollback:"+reward.ID.String())

		return nil, apperrors.DatabaseError("Failed to create redemption").WithError(err)
	}

	return redemption, nil
}

// MarkRedemptionUsed consumes a code at checkout. Expired codes are
// rejected here even if the expiry sweep has not run yet.
func (s *LoyaltyService) MarkRedemptionUsed(ctx context.Context, code string) (*models.Redemption, error) {
	redemption, err := s.repo.GetRedemptionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Redemption code not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to fetch redemption").WithError(err)
	}

	if redemption.Status != models.RedemptionStatusActive {
		return nil, apperrors.BadRequestError(fmt.Sprintf("Redemption code is %s", redemption.Status))
	}

	if time.Now().After(redemption.ExpiresAt) {
		return nil, apperrors.BadRequestError("Redemption code has expired")
	}

	if err := s.repo.UpdateRedemptionStatus(ctx, redemption.ID, models.RedemptionStatusUsed); err != nil {
		return nil, apperrors.DatabaseError("Failed to mark redemption used").WithError(err)
	}

	redemption.Status = models.RedemptionStatusUsed

	return redemption, nil
}

// ExpireRedemptions is the periodic sweep flipping past-expiry codes.
func (s *LoyaltyService) ExpireRedemptions(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireRedemptions(ctx, time.Now())
	if err != nil {
		return 0, apperrors.DatabaseError("Failed to expire redemptions").WithError(err)
	}

	return expired, nil
}

func (s *LoyaltyService) getSummary(ctx context.Context, userID uuid.UUID) (*models.LoyaltySummary, error) {
	summary, err := s.repo.GetSummary(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to fetch loyalty summary").WithError(err)
	}

	return summary, nil
}

const redemptionCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateRedemptionCode() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	code := make([]byte, len(buf))
	for i, b := range buf {
		code[i] = redemptionCodeAlphabet[int(b)%len(redemptionCodeAlphabet)]
	}

	return "RDM-" + string(code), nil
}
