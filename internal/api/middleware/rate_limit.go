package middleware

import (
	"fmt"
	"net/http"

	apperrors "github.com/adityamenon-dev/promo-commerce-platform/internal/errors"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/models"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/utils/response"
)

// CheckoutRateLimit throttles the checkout path per authenticated
// customer. Runs after Authenticate; unauthenticated requests never
// reach it.
func CheckoutRateLimit(repo repository.RateLimitRepository) func(http.Handler) http.HandlerFunc {
	return func(next http.Handler) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			logger := LoggerFromContext(r.Context())

			claims, ok := r.Context().Value(UserContextKey).(*models.Claims)
			if !ok {
				response.Error(w, apperrors.UnauthorizedError("Authentication required"))

				return
			}

			allowed, remaining, retryAfter, err := repo.CheckCheckoutRateLimit(r.Context(), claims.UserID.String())
			if err != nil {
				// fail open: a Redis outage must not block checkout
				logger.Error("rate limit check failed", "error", err.Error())
				next.ServeHTTP(w, r)

				return
			}

			if !allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				response.Error(w, apperrors.TooManyRequestsError(
					fmt.Sprintf("Too many checkout attempts, retry in %d seconds", retryAfter)))

				return
			}

			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

			next.ServeHTTP(w, r)
		}
	}
}
