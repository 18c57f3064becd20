package handlers

import (
	"context"
	"net/http"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	service "github.com/adityamenon-dev/promo-commerce-platform/internal/services"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type FlashSaleHandler struct {
	flashSaleService *service.FlashSaleService
	validator        *validator.Validate
}

func NewFlashSaleHandler(flashSaleService *service.FlashSaleService) *FlashSaleHandler {
	return &FlashSaleHandler{flashSaleService: flashSaleService, validator: validator.New()}
}

func (h *FlashSaleHandler) CreateFlashSale() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateFlashSaleRequest
		if !parseAndValidate(w, r, h.validator, &req) {
			return
		}

		sale, err := h.flashSaleService.CreateFlashSale(r.Context(), &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusCreated, sale)
	}
}

func (h *FlashSaleHandler) GetFlashSale() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		sale, err := h.flashSaleService.GetFlashSale(r.Context(), id)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, sale)
	}
}

func (h *FlashSaleHandler) ListFlashSales() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, size := pagination(r)

		sales, total, err := h.flashSaleService.ListFlashSales(r.Context(), page, size)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, models.PaginatedResponse{
			Data:     sales,
			Total:    total,
			Page:     page,
			PageSize: size,
		})
	}
}

func (h *FlashSaleHandler) Countdown() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		remaining, err := h.flashSaleService.Countdown(r.Context(), id)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, remaining)
	}
}

func (h *FlashSaleHandler) ReserveStock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromRequest(w, r)
		if !ok {
			return
		}

		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		var req models.ReserveStockRequest
		if !parseAndValidate(w, r, h.validator, &req) {
			return
		}

		result, err := h.flashSaleService.ReserveStock(r.Context(), id, claims.UserID, &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, result)
	}
}

func (h *FlashSaleHandler) ReleaseStock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromRequest(w, r)
		if !ok {
			return
		}

		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		var req models.ReserveStockRequest
		if !parseAndValidate(w, r, h.validator, &req) {
			return
		}

		err := h.flashSaleService.ReleaseStock(r.Context(), id, claims.UserID, req.ProductID, req.Quantity)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, map[string]string{"status": "released"})
	}
}

func (h *FlashSaleHandler) Pause() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.applyOverride(w, r, h.flashSaleService.Pause)
	}
}

func (h *FlashSaleHandler) Resume() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.applyOverride(w, r, h.flashSaleService.Resume)
	}
}

func (h *FlashSaleHandler) ForceEnd() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.applyOverride(w, r, h.flashSaleService.ForceEnd)
	}
}

func (h *FlashSaleHandler) applyOverride(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*models.FlashSale, error)) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	sale, err := op(r.Context(), id)
	if err != nil {
		response.Error(w, err)

		return
	}

	response.Success(w, http.StatusOK, sale)
}
