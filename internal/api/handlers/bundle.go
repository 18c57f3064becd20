package handlers

import (
	"net/http"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	service "github.com/adityamenon-dev/promo-commerce-platform/internal/services"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type BundleHandler struct {
	bundleService *service.BundleService
	validator     *validator.Validate
}

func NewBundleHandler(bundleService *service.BundleService) *BundleHandler {
	return &BundleHandler{bundleService: bundleService, validator: validator.New()}
}

func (h *BundleHandler) CreateBundle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateBundleRequest
		if !parseAndValidate(w, r, h.validator, &req) {
			return
		}

		bundle, err := h.bundleService.CreateBundle(r.Context(), &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusCreated, bundle)
	}
}

func (h *BundleHandler) GetBundle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		bundle, err := h.bundleService.GetBundle(r.Context(), id)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, bundle)
	}
}

func (h *BundleHandler) ListBundles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, size := pagination(r)

		bundles, total, err := h.bundleService.ListBundles(r.Context(), page, size)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, models.PaginatedResponse{
			Data:     bundles,
			Total:    total,
			Page:     page,
			PageSize: size,
		})
	}
}

func (h *BundleHandler) UpdateBundlePrice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		var req models.UpdateBundlePriceRequest
		if !parseAndValidate(w, r, h.validator, &req) {
			return
		}

		bundle, err := h.bundleService.UpdateBundlePrice(r.Context(), id, &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, bundle)
	}
}
