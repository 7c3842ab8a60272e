package businessflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SendLocker serializes sends of the same campaign
type SendLocker interface {
	// TryLock returns ok=false when another send holds the key
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// releaseScript deletes the key only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSendLocker holds the lock as a SET NX PX key so it spans instances
type RedisSendLocker struct {
	rc     *redis.Client
	prefix string
}

func NewRedisSendLocker(rc *redis.Client, prefix string) *RedisSendLocker {
	return &RedisSendLocker{rc: rc, prefix: prefix + "campaign-send:"}
}

func (l *RedisSendLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token, err := lockToken()
	if err != nil {
		return nil, false, err
	}

	redisKey := l.prefix + key
	ok, err := l.rc.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire send lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rc, []string{redisKey}, token).Err()
	}
	return unlock, true, nil
}

// LocalSendLocker is the in-process fallback used without redis
type LocalSendLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalSendLocker() *LocalSendLocker {
	return &LocalSendLocker{held: make(map[string]struct{})}
}

func (l *LocalSendLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}
	return unlock, true, nil
}

func lockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
