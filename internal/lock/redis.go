package lock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds the token of the releasing run
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedis returns a lock shared by every process using the same redis key. The key expires after ttl so
// a crashed run cannot block generation forever.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) RunLock {
	return &redisLock{client: client, key: key, ttl: ttl}
}

func (lock *redisLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	acquired, err := lock.client.SetNX(ctx, lock.key, token, lock.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire redis run lock")
	}
	if !acquired {
		return nil, ErrRunInProgress
	}

	return sync.OnceFunc(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, lock.client, []string{lock.key}, token).Err(); err != nil {
			slog.Error("cannot release redis run lock", "key", lock.key, "error", err)
		}
	}), nil
}
