package interfaces

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
)

// Limiter spends one unit of key's budget. It returns limiter.ErrRateLimited
// once the budget for the current window is gone.
type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}
