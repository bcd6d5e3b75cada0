package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bangunhq/estimator/pkg/errors"
)

// ErrLockNotHeld is returned by Unlock when the lock expired or belongs to
// another owner.
var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held by this owner")

// unlockScript deletes the lock only when the stored token matches, so an
// expired-and-reacquired lock is never released by the previous holder.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Lock is a single-holder SET NX lock with a TTL so a crashed holder cannot
// wedge its resource forever.
type Lock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// JobLock returns the dispatch lock for one job id.  Satisfies the
// orchestrator's LockProvider contract.
func (c *Client) JobLock(jobID string) *Lock {
	return c.NewLock(c.key("lock", "job", jobID), c.cfg.LockTTL)
}

// NewLock builds a lock on an arbitrary key.
func (c *Client) NewLock(key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lock{
		client: c,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	acquired, err := l.client.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquisition failed")
	}
	return acquired, nil
}

// Unlock releases the lock if this instance still holds it.
func (l *Lock) Unlock(ctx context.Context) error {
	res, err := unlockScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed")
	}
	if res.(int64) == 0 {
		return ErrLockNotHeld
	}
	return nil
}
