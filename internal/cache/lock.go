package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/config"
)

// ErrLockNotAcquired is returned when a lock is still held by someone else
// once the caller's context is done.
var ErrLockNotAcquired = errors.New("lock not acquired")

const lockPollInterval = 10 * time.Millisecond

// releaseScript deletes the key only while it still carries our token, so an
// expired lease never removes a lock another holder has since taken.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived advisory locks.
type Locker interface {
	// Acquire blocks until the lock is held or ctx is done. The returned
	// function releases it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// NewLocker returns a redis-backed Locker when purchases locking is enabled
// and a noop Locker otherwise.
func NewLocker(cfg config.Config, client *goredis.Client, logger *zap.Logger) Locker {
	if !cfg.Purchases.LockEnabled || client == nil {
		logger.Info("advisory locking disabled")
		return NoopLocker{}
	}
	return NewRedisLocker(client)
}

// NoopLocker grants every lock immediately.
type NoopLocker struct{}

// Acquire implements Locker.
func (NoopLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// lockClient is the subset of the redis client the locker needs.
type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	goredis.Scripter
}

// RedisLocker implements Locker with SET NX PX and a token-checked release.
type RedisLocker struct {
	client lockClient
	token  func() string
}

// NewRedisLocker builds a RedisLocker over client.
func NewRedisLocker(client lockClient) *RedisLocker {
	return &RedisLocker{client: client, token: uuid.NewString}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := l.token()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.Join(ErrLockNotAcquired, ctxErr)
			}
			return nil, err
		}
		if ok {
			return func(releaseCtx context.Context) error {
				return releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}
