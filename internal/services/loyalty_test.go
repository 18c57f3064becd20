package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/config"
	appErrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
	service "github.com/adityamenon-dev/promo-commerce-platform/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testLoyaltyCfg = config.Loyalty{
	PointsPerDollar:    1,
	PointsPerDiscount:  100,
	DiscountCapPercent: 50,
	RedemptionValidity: 90 * 24 * time.Hour,
}

func newLoyaltyFixture() (*repository.MockLoyaltyRepository, *service.LoyaltyService) {
	loyaltyRepo := repository.NewMockLoyaltyRepository()
	loyaltyService := service.NewLoyaltyService(loyaltyRepo, testLoyaltyCfg)

	return loyaltyRepo, loyaltyService
}

func bronzeSummary(userID uuid.UUID) *models.LoyaltySummary {
	return &models.LoyaltySummary{
		UserID:          userID,
		TotalPoints:     500,
		AvailablePoints: 500,
		LifetimePoints:  500,
		Tier:            models.TierBronze,
	}
}

func TestEarnPoints(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success - Bronze Earns At Base Rate", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		loyaltyRepo.On("GetSummary", ctx, userID).Return(bronzeSummary(userID), nil).Once()
		loyaltyRepo.On("ApplyEntry", ctx, mock.AnythingOfType("*models.LoyaltySummary"), mock.AnythingOfType("*models.PointsEntry")).Return(nil).Once()

		// Act: a $50 order at 1 point per dollar, multiplier 1.0
		entry, err := loyaltyService.EarnPoints(ctx, userID, 50, "order:abc")

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 50, entry.Points)
		assert.Equal(t, models.PointsEntryEarn, entry.Type)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Success - Silver Multiplier Applied And Floored", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		silver := bronzeSummary(userID)
		silver.LifetimePoints = 1200
		silver.Tier = models.TierSilver
		loyaltyRepo.On("GetSummary", ctx, userID).Return(silver, nil).Once()
		loyaltyRepo.On("ApplyEntry", ctx, mock.AnythingOfType("*models.LoyaltySummary"), mock.AnythingOfType("*models.PointsEntry")).Return(nil).Once()

		// Act: 50 * 1.25 = 62.5, floored to 62
		entry, err := loyaltyService.EarnPoints(ctx, userID, 50, "order:abc")

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 62, entry.Points)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Success - Earn Crossing A Threshold Promotes", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		nearSilver := bronzeSummary(userID)
		nearSilver.LifetimePoints = 980
		loyaltyRepo.On("GetSummary", ctx, userID).Return(nearSilver, nil).Once()
		loyaltyRepo.On("ApplyEntry", ctx, mock.MatchedBy(func(s *models.LoyaltySummary) bool {
			return s.Tier == models.TierSilver
		}), mock.AnythingOfType("*models.PointsEntry")).Return(nil).Once()

		// Act: 980 + 50 crosses 1000; the earn itself stays at the bronze rate
		entry, err := loyaltyService.EarnPoints(ctx, userID, 50, "order:abc")

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 50, entry.Points)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Success - Zero Point Earn Writes Nothing", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		loyaltyRepo.On("GetSummary", ctx, userID).Return(bronzeSummary(userID), nil).Once()

		// Act
		entry, err := loyaltyService.EarnPoints(ctx, userID, 0.50, "order:abc")

		// Assert
		assert.NoError(t, err)
		assert.Nil(t, entry)
		loyaltyRepo.AssertExpectations(t)
	})
}

func TestDeductPoints(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Failure - Balance Too Low", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		loyaltyRepo.On("GetSummary", ctx, userID).Return(bronzeSummary(userID), nil).Once()
		loyaltyRepo.On("ApplyEntry", ctx, mock.AnythingOfType("*models.LoyaltySummary"), mock.AnythingOfType("*models.PointsEntry")).
			Return(repository.ErrInsufficientPoints).Once()

		// Act
		err := loyaltyService.DeductPoints(ctx, userID, 9999, "order:abc")

		// Assert
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInsufficientPoints, appErr.Code)
		loyaltyRepo.AssertExpectations(t)
	})
}

func TestApplyPointsAsDiscount(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success - Points Convert To Dollars", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		loyaltyRepo.On("GetSummary", ctx, userID).Return(bronzeSummary(userID), nil).Once()

		// Act: 200 points at 100 points per dollar on a $100 order
		preview, err := loyaltyService.ApplyPointsAsDiscount(ctx, userID, &models.ApplyPointsRequest{Points: 200, OrderTotal: 100})

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 2.0, preview.Discount)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Failure - More Points Than Available", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		loyaltyRepo.On("GetSummary", ctx, userID).Return(bronzeSummary(userID), nil).Once()

		// Act
		preview, err := loyaltyService.ApplyPointsAsDiscount(ctx, userID, &models.ApplyPointsRequest{Points: 600, OrderTotal: 100})

		// Assert
		assert.Nil(t, preview)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeInsufficientPoints, appErr.Code)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Failure - Discount Above Cap", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		loyaltyRepo.On("GetSummary", ctx, userID).Return(bronzeSummary(userID), nil).Once()

		// Act: 500 points is $5, above 50% of a $8 order
		preview, err := loyaltyService.ApplyPointsAsDiscount(ctx, userID, &models.ApplyPointsRequest{Points: 500, OrderTotal: 8})

		// Assert
		assert.Nil(t, preview)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeDiscountCapExceeded, appErr.Code)
		loyaltyRepo.AssertExpectations(t)
	})
}

func TestGetStatus(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success - Progress Toward Silver", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		loyaltyRepo.On("GetSummary", ctx, userID).Return(bronzeSummary(userID), nil).Once()

		// Act
		resp, err := loyaltyService.GetStatus(ctx, userID)

		// Assert: 500 of the 1000 needed for silver
		assert.NoError(t, err)
		assert.Equal(t, models.TierBronze, resp.Summary.Tier)
		assert.Equal(t, models.TierSilver, resp.NextTier)
		assert.Equal(t, 500, resp.PointsToGo)
		assert.Equal(t, 50.0, resp.Summary.TierProgress)
		assert.Equal(t, 1.0, resp.Multiplier)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Success - Diamond Has No Next Tier", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		diamond := bronzeSummary(userID)
		diamond.LifetimePoints = 60000
		loyaltyRepo.On("GetSummary", ctx, userID).Return(diamond, nil).Once()

		// Act
		resp, err := loyaltyService.GetStatus(ctx, userID)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.TierDiamond, resp.Summary.Tier)
		assert.Empty(t, resp.NextTier)
		assert.Equal(t, 100.0, resp.Summary.TierProgress)
		assert.Equal(t, 3.0, resp.Multiplier)
		loyaltyRepo.AssertExpectations(t)
	})
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	rewardID := uuid.New()

	activeReward := func() *models.Reward {
		return &models.Reward{
			ID:            rewardID,
			Name:          "$5 off",
			Type:          models.RewardFixedDiscount,
			Value:         5,
			MinimumPoints: 500,
			Active:        true,
		}
	}

	t.Run("Success - Code Issued And Points Spent", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		loyaltyRepo.On("GetRewardByID", ctx, rewardID).Return(activeReward(), nil).Once()
		loyaltyRepo.On("GetSummary", ctx, userID).Return(bronzeSummary(userID), nil).Once()
		loyaltyRepo.On("ApplyEntry", ctx, mock.AnythingOfType("*models.LoyaltySummary"), mock.MatchedBy(func(e *models.PointsEntry) bool {
			return e.Type == models.PointsEntryRedeem && e.Points == -500
		})).Return(nil).Once()
		loyaltyRepo.On("CreateRedemption", ctx, mock.AnythingOfType("*models.Redemption")).Return(nil).Once()

		// Act
		redemption, err := loyaltyService.Redeem(ctx, userID, &models.RedeemRequest{RewardID: rewardID})

		// Assert
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(redemption.Code, "RDM-"))
		assert.Len(t, redemption.Code, 14)
		assert.Equal(t, 500, redemption.PointsSpent)
		assert.Equal(t, models.RedemptionStatusActive, redemption.Status)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Failure - Inactive Reward", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		retired := activeReward()
		retired.Active = false
		loyaltyRepo.On("GetRewardByID", ctx, rewardID).Return(retired, nil).Once()

		// Act
		redemption, err := loyaltyService.Redeem(ctx, userID, &models.RedeemRequest{RewardID: rewardID})

		// Assert
		assert.Nil(t, redemption)
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Failure - Persist Fails, Points Refunded", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		loyaltyRepo.On("GetRewardByID", ctx, rewardID).Return(activeReward(), nil).Once()
		loyaltyRepo.On("GetSummary", ctx, userID).Return(bronzeSummary(userID), nil).Twice()
		loyaltyRepo.On("ApplyEntry", ctx, mock.AnythingOfType("*models.LoyaltySummary"), mock.MatchedBy(func(e *models.PointsEntry) bool {
			return e.Type == models.PointsEntryRedeem
		})).Return(nil).Once()
		loyaltyRepo.On("CreateRedemption", ctx, mock.AnythingOfType("*models.Redemption")).Return(errors.New("db down")).Once()
		loyaltyRepo.On("ApplyEntry", ctx, mock.AnythingOfType("*models.LoyaltySummary"), mock.MatchedBy(func(e *models.PointsEntry) bool {
			return e.Type == models.PointsEntryRefund && e.Points == 500
		})).Return(nil).Once()

		// Act
		redemption, err := loyaltyService.Redeem(ctx, userID, &models.RedeemRequest{RewardID: rewardID})

		// Assert
		assert.Nil(t, redemption)
		assert.Error(t, err)
		loyaltyRepo.AssertExpectations(t)
	})
}

func TestMarkRedemptionUsed(t *testing.T) {
	ctx := context.Background()

	storedRedemption := func() *models.Redemption {
		return &models.Redemption{
			ID:        uuid.New(),
			Code:      "RDM-ABCDEFGH23",
			Status:    models.RedemptionStatusActive,
			ExpiresAt: time.Now().Add(time.Hour),
		}
	}

	t.Run("Success", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		stored := storedRedemption()
		loyaltyRepo.On("GetRedemptionByCode", ctx, stored.Code).Return(stored, nil).Once()
		loyaltyRepo.On("UpdateRedemptionStatus", ctx, stored.ID, models.RedemptionStatusUsed).Return(nil).Once()

		// Act
		redemption, err := loyaltyService.MarkRedemptionUsed(ctx, stored.Code)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.RedemptionStatusUsed, redemption.Status)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Failure - Already Used", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		used := storedRedemption()
		used.Status = models.RedemptionStatusUsed
		loyaltyRepo.On("GetRedemptionByCode", ctx, used.Code).Return(used, nil).Once()

		// Act
		_, err := loyaltyService.MarkRedemptionUsed(ctx, used.Code)

		// Assert
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
		loyaltyRepo.AssertExpectations(t)
	})

	t.Run("Failure - Expired Before The Sweep Ran", func(t *testing.T) {
		loyaltyRepo, loyaltyService := newLoyaltyFixture()
		expired := storedRedemption()
		expired.ExpiresAt = time.Now().Add(-time.Minute)
		loyaltyRepo.On("GetRedemptionByCode", ctx, expired.Code).Return(expired, nil).Once()

		// Act
		_, err := loyaltyService.MarkRedemptionUsed(ctx, expired.Code)

		// Assert
		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
		loyaltyRepo.AssertExpectations(t)
	})
}
