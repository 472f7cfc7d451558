package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix  = "lock:session:"
	defaultExpiry     = 8 * time.Second
	defaultTries      = 32
	defaultRetryDelay = 50 * time.Millisecond
)

// RedisConfig holds configuration for the redsync backed locker
type RedisConfig struct {
	RedisClient *redis.Client

	// KeyPrefix is prepended to every key
	KeyPrefix string

	// Expiry bounds how long a crashed holder keeps the lock
	Expiry time.Duration

	// Tries is the number of acquisition attempts before giving up
	Tries int

	// RetryDelay is the pause between attempts
	RetryDelay time.Duration

	Logger *zap.Logger
}

// Redis is a Locker shared by every process talking to the same Redis
type Redis struct {
	rs         *redsync.Redsync
	prefix     string
	expiry     time.Duration
	tries      int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewRedis creates a redsync backed locker
func NewRedis(cfg *RedisConfig) (*Redis, error) {
	if cfg == nil || cfg.RedisClient == nil {
		return nil, ErrNilRedisClient
	}

	r := &Redis{
		rs:         redsync.New(goredis.NewPool(cfg.RedisClient)),
		prefix:     defaultKeyPrefix,
		expiry:     defaultExpiry,
		tries:      defaultTries,
		retryDelay: defaultRetryDelay,
		logger:     cfg.Logger,
	}
	if cfg.KeyPrefix != "" {
		r.prefix = cfg.KeyPrefix
	}
	if cfg.Expiry > 0 {
		r.expiry = cfg.Expiry
	}
	if cfg.Tries > 0 {
		r.tries = cfg.Tries
	}
	if cfg.RetryDelay > 0 {
		r.retryDelay = cfg.RetryDelay
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	return r, nil
}

// Lock acquires the distributed mutex for key
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	name := r.prefix + key
	mutex := r.rs.NewMutex(name,
		redsync.WithExpiry(r.expiry),
		redsync.WithTries(r.tries),
		redsync.WithRetryDelay(r.retryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	return func() {
		// Unlock must still run when the caller's context is already cancelled
		ok, err := mutex.UnlockContext(context.Background())
		if err != nil || !ok {
			r.logger.Warn("failed to release lock",
				zap.String("key", name),
				zap.Bool("released", ok),
				zap.Error(err))
		}
	}, nil
}
