package lock

import (
	"context"
	"errors"
)

// ErrNilRedisClient is returned when the redis locker is built without a client
var ErrNilRedisClient = errors.New("redis client cannot be nil")

// Locker serializes work on a single key. Lock returns an unlock func that
// must be called exactly once after a successful Lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
