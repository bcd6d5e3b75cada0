package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/bangunhq/estimator/pkg/errors"
)

// RateLimiter is a fixed-window request counter keyed per client.  The
// counter key carries the window number, so stale windows expire on their
// own and no sweeping is needed.
type RateLimiter struct {
	client *Client
	limit  int
	window time.Duration
}

// NewRateLimiter builds a limiter allowing limit requests per window.
func (c *Client) NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: c, limit: limit, window: window}
}

// Allow counts one request for the caller and reports whether it is within
// the limit.  Fails open on redis errors: throttling is protection, not a
// correctness guarantee.
func (r *RateLimiter) Allow(ctx context.Context, caller string) (bool, error) {
	windowID := time.Now().Unix() / int64(r.window.Seconds())
	key := r.client.key("ratelimit", caller, strconv.FormatInt(windowID, 10))

	pipe := r.client.rdb.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, errors.Wrap(err, errors.ErrCodeCacheError, "rate limit counter failed")
	}
	return count.Val() <= int64(r.limit), nil
}
