package utils

import (
	"context"
	"time"
)

// dbTimeout bounds every repository round trip. Reservation updates
// hold row locks, so this stays short.
const dbTimeout = 3 * time.Second

func WithDBTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, dbTimeout)
}
