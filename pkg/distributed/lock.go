package distributed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Unlock when the key expired or was taken over.
var ErrNotHeld = errors.New("lock was not held by this instance")

// unlockScript deletes the key only while it still carries our value.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// renewScript extends the TTL only while it still carries our value.
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// DistributedLock provides distributed locking using Redis. A lock can be
// acquired again after Unlock; each acquisition uses a fresh holder value.
type DistributedLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration

	mu        sync.Mutex
	value     string
	stopRenew chan struct{}
}

func NewDistributedLock(client redis.UniversalClient, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func generateLockValue() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// TryLock attempts to acquire the lock without blocking. While held the TTL is
// renewed at half its length.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopRenew != nil {
		return false, fmt.Errorf("lock %s already held by this instance", l.key)
	}

	value := generateLockValue()
	acquired, err := l.client.SetNX(ctx, l.key, value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to try lock: %w", err)
	}
	if !acquired {
		return false, nil
	}

	l.value = value
	l.stopRenew = make(chan struct{})
	go l.renewLock(value, l.stopRenew)
	return true, nil
}

// Lock acquires the lock, polling until it's available or ctx is done.
func (l *DistributedLock) Lock(ctx context.Context) error {
	for {
		acquired, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Unlock releases the lock
func (l *DistributedLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	value, stop := l.value, l.stopRenew
	l.value, l.stopRenew = "", nil
	l.mu.Unlock()

	if stop == nil {
		return ErrNotHeld
	}
	close(stop)

	result, err := unlockScript.Run(ctx, l.client, []string{l.key}, value).Int64()
	if err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}
	if result == 0 {
		return ErrNotHeld
	}
	return nil
}

func (l *DistributedLock) renewLock(value string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/2)
			renewed, err := renewScript.Run(ctx, l.client, []string{l.key}, value, l.ttl.Milliseconds()).Int64()
			cancel()
			if err != nil || renewed == 0 {
				return
			}
		case <-stop:
			return
		}
	}
}

// IsLocked checks if any instance currently holds the lock
func (l *DistributedLock) IsLocked(ctx context.Context) (bool, error) {
	exists, err := l.client.Exists(ctx, l.key).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// LockManager hands out locks under a common key prefix.
type LockManager struct {
	client redis.UniversalClient
	prefix string
}

func NewLockManager(client redis.UniversalClient, prefix string) *LockManager {
	return &LockManager{
		client: client,
		prefix: prefix,
	}
}

func (lm *LockManager) AcquireLock(key string, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(lm.client, lm.prefix+key, ttl)
}
