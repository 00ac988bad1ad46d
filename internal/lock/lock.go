package lock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/limaJavier/schooltimetable/internal/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrRunInProgress is returned by Acquire while another run holds the lock
var ErrRunInProgress = errors.New("another timetable generation is in progress")

// RunLock serializes generation runs
type RunLock interface {
	// Acquire takes the lock without waiting and returns the function releasing it
	Acquire(ctx context.Context) (release func(), err error)
}

type localLock struct {
	mutex sync.Mutex
}

// NewLocal returns a lock shared by the runs of this process
func NewLocal() RunLock {
	return &localLock{}
}

func (lock *localLock) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !lock.mutex.TryLock() {
		return nil, ErrRunInProgress
	}
	return sync.OnceFunc(lock.mutex.Unlock), nil
}

// New returns a redis lock when an address is configured, else an in-process one
func New(configuration config.Redis) RunLock {
	if configuration.Addr == "" {
		return NewLocal()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     configuration.Addr,
		Password: configuration.Password,
		DB:       configuration.DB,
	})
	slog.Info("using redis run lock", "addr", configuration.Addr, "key", configuration.LockKey)
	return NewRedis(client, configuration.LockKey, configuration.LockTTL)
}
