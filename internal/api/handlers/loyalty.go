package handlers

import (
	"net/http"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	service "github.com/adityamenon-dev/promo-commerce-platform/internal/services"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type LoyaltyHandler struct {
	loyaltyService *service.LoyaltyService
	validator      *validator.Validate
}

func NewLoyaltyHandler(loyaltyService *service.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{loyaltyService: loyaltyService, validator: validator.New()}
}

func (h *LoyaltyHandler) GetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromRequest(w, r)
		if !ok {
			return
		}

		status, err := h.loyaltyService.GetStatus(r.Context(), claims.UserID)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, status)
	}
}

func (h *LoyaltyHandler) GetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromRequest(w, r)
		if !ok {
			return
		}

		page, size := pagination(r)

		entries, total, err := h.loyaltyService.GetHistory(r.Context(), claims.UserID, page, size)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, models.PaginatedResponse{
			Data:     entries,
			Total:    total,
			Page:     page,
			PageSize: size,
		})
	}
}

func (h *LoyaltyHandler) ListRewards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rewards, err := h.loyaltyService.ListRewards(r.Context())
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, rewards)
	}
}

func (h *LoyaltyHandler) Redeem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromRequest(w, r)
		if !ok {
			return
		}

		var req models.RedeemRequest
		if !parseAndValidate(w, r, h.validator, &req) {
			return
		}

		redemption, err := h.loyaltyService.Redeem(r.Context(), claims.UserID, &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusCreated, redemption)
	}
}

// PreviewDiscount validates a points application against the balance
// and the cap without spending anything.
func (h *LoyaltyHandler) PreviewDiscount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromRequest(w, r)
		if !ok {
			return
		}

		var req models.ApplyPointsRequest
		if !parseAndValidate(w, r, h.validator, &req) {
			return
		}

		preview, err := h.loyaltyService.ApplyPointsAsDiscount(r.Context(), claims.UserID, &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, preview)
	}
}
