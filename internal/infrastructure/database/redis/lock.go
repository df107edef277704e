package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

var ErrLockHeld = errors.New(errors.ErrCodeConflict, "run lock is held by another process")

// unlockScript deletes the lock only when the caller still owns it.
var unlockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RunLock guards a screening run against concurrent execution over the same
// data directory.  It is a single-attempt lock: acquisition either succeeds
// immediately or reports the conflict.
type RunLock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRunLock builds a lock for the named scope (typically the data
// directory).
func NewRunLock(client *Client, prefix, scope string, ttl time.Duration) *RunLock {
	if prefix == "" {
		prefix = "chemscreen"
	}
	return &RunLock{
		client: client,
		key:    prefix + ":runlock:" + scope,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire takes the lock, returning ErrLockHeld if another process owns it.
func (l *RunLock) Acquire(ctx context.Context) error {
	rdb, err := l.client.Raw()
	if err != nil {
		return err
	}
	ok, err := rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "acquiring run lock")
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release frees the lock if this instance still owns it.  Releasing an
// expired or stolen lock is not an error.
func (l *RunLock) Release(ctx context.Context) error {
	rdb, err := l.client.Raw()
	if err != nil {
		return err
	}
	if err := unlockScript.Run(ctx, rdb, []string{l.key}, l.token).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "releasing run lock")
	}
	return nil
}

// Refresh extends the lock's TTL while a long run is in progress.
func (l *RunLock) Refresh(ctx context.Context) error {
	rdb, err := l.client.Raw()
	if err != nil {
		return err
	}
	ok, err := rdb.Expire(ctx, l.key, l.ttl).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "refreshing run lock")
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}
