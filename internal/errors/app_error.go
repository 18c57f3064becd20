package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeDatabaseError  = "DATABASE_ERROR"
	ErrCodeDuplicateEntry = "DUPLICATE_ENTRY"
	ErrCodeThirdParty     = "THIRD_PARTY_ERROR"
	ErrCodeTooManyRequest = "TOO_MANY_REQUESTS"

	// Pricing / inventory domain codes.
	ErrCodeInsufficientStock        = "INSUFFICIENT_STOCK"
	ErrCodePerCustomerLimitExceeded = "PER_CUSTOMER_LIMIT_EXCEEDED"
	ErrCodeInvalidBundlePrice       = "INVALID_BUNDLE_PRICE"
	ErrCodeCouponNotEligible        = "COUPON_NOT_ELIGIBLE"
	ErrCodeInsufficientPoints       = "INSUFFICIENT_POINTS"
	ErrCodeDiscountCapExceeded      = "DISCOUNT_CAP_EXCEEDED"
	ErrCodeInvalidStateTransition   = "INVALID_STATE_TRANSITION"
	ErrCodePaymentFailed            = "PAYMENT_FAILED"
	ErrCodeReservationConflict      = "RESERVATION_CONFLICT"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

func DuplicateEntryError(message string) *AppError {
	return NewAppError(ErrCodeDuplicateEntry, message, http.StatusConflict)
}

func ThirdPartyError(message string) *AppError {
	return NewAppError(ErrCodeThirdParty, message, http.StatusInternalServerError)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(ErrCodeTooManyRequest, message, http.StatusTooManyRequests)
}

func InsufficientStockError(message string) *AppError {
	return NewAppError(ErrCodeInsufficientStock, message, http.StatusConflict)
}

func PerCustomerLimitError(message string) *AppError {
	return NewAppError(ErrCodePerCustomerLimitExceeded, message, http.StatusConflict)
}

func InvalidBundlePriceError(message string) *AppError {
	return NewAppError(ErrCodeInvalidBundlePrice, message, http.StatusBadRequest)
}

func CouponNotEligibleError(message string) *AppError {
	return NewAppError(ErrCodeCouponNotEligible, message, http.StatusBadRequest)
}

func InsufficientPointsError(message string) *AppError {
	return NewAppError(ErrCodeInsufficientPoints, message, http.StatusBadRequest)
}

func DiscountCapExceededError(message string) *AppError {
	return NewAppError(ErrCodeDiscountCapExceeded, message, http.StatusBadRequest)
}

func InvalidStateTransitionError(message string) *AppError {
	return NewAppError(ErrCodeInvalidStateTransition, message, http.StatusConflict)
}

func PaymentFailedError(message string) *AppError {
	return NewAppError(ErrCodePaymentFailed, message, http.StatusBadGateway)
}

// ReservationConflictError marks a transient optimistic-concurrency loss.
// Callers retry a bounded number of times before reporting INSUFFICIENT_STOCK.
func ReservationConflictError(message string) *AppError {
	return NewAppError(ErrCodeReservationConflict, message, http.StatusConflict)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

func HasCode(err error, code string) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code == code
	}

	return false
}

// field validation error.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}
