package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ImportLock admits at most one import at a time.
type ImportLock interface {
	// TryAcquire takes the lock without waiting. ok is false when another
	// import holds it; release must be called once when ok is true.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// LocalLock serializes imports within one process.
type LocalLock struct {
	mu sync.Mutex
}

func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

func (l *LocalLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}

const importLockKey = "relief:backup:import-lock"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock serializes imports across every process sharing one redis.
type RedisLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	log    *logrus.Logger
}

func NewRedisLock(client redis.UniversalClient, ttl time.Duration, log *logrus.Logger) *RedisLock {
	return &RedisLock{client: client, key: importLockKey, ttl: ttl, log: log}
}

func (l *RedisLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire import lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
				l.log.WithError(err).Warn("failed to release import lock; it expires after its ttl")
			}
		})
	}
	return release, true, nil
}
