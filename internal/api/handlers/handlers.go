package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/api/middleware"
	apperrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// claimsFromRequest pulls the authenticated user out of the request
// context. The auth middleware guarantees it for protected routes.
func claimsFromRequest(w http.ResponseWriter, r *http.Request) (*models.Claims, bool) {
	claims, ok := r.Context().Value(middleware.UserContextKey).(*models.Claims)
	if !ok {
		response.Error(w, apperrors.UnauthorizedError("Authentication required"))

		return nil, false
	}

	return claims, true
}

// parseAndValidate decodes the JSON body into dest and runs struct
// validation, writing the error response itself on failure.
func parseAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dest any) bool {
	if err := utils.DecodeJSONBody(r, dest); err != nil {
		response.Error(w, apperrors.BadRequestError(err.Error()))

		return false
	}

	if err := utils.ValidateStruct(validate, dest); err != nil {
		var validationErrs validator.ValidationErrors

		if errors.As(err, &validationErrs) {
			response.ValidationError(w, validationErrs)
		} else {
			response.Error(w, apperrors.BadRequestError(err.Error()))
		}

		return false
	}

	return true
}

// decodeOptionalBody decodes the body if one was sent. An empty body
// leaves dest zero-valued.
func decodeOptionalBody(r *http.Request, dest any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	return utils.DecodeJSONBody(r, dest)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		response.Error(w, apperrors.BadRequestError("Invalid "+name))

		return uuid.Nil, false
	}

	return id, true
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, apperrors.BadRequestError("Invalid "+name))

		return 0, false
	}

	return id, true
}

// pagination reads ?page= and ?size= with defaults. Services clamp the
// upper bound themselves.
func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size < 1 {
		size = 20
	}

	return page, size
}
