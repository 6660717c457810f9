package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/mediasync/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const lockKeyPrefix = "mediasync:lock:"

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another run holds the lock")

// releaseScript deletes the key only while it still carries our token, so
// a run whose lock expired cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a Redis-backed mutual exclusion lock across processes and hosts.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunLock connects to Redis and verifies the connection.
func NewRunLock(ctx context.Context, cfg config.LockConfig) (*RunLock, error) {
	client, ttl, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &RunLock{client: client, ttl: ttl}, nil
}

// Lock takes the named lock or fails with ErrLocked. The returned function releases it.
func (l *RunLock) Lock(ctx context.Context, name string) (func(), error) {
	key := lockKeyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s failed: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, name)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to release run lock")
		}
	}, nil
}

// Close closes the Redis connection.
func (l *RunLock) Close() error {
	return l.client.Close()
}
