package distlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// RedisLocker provides distributed locking via Redis SET NX with a TTL.
// Each lock carries a random ownership value so a process never releases
// a lock that expired and was taken by someone else.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a Redis-backed locker
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

// RedisLock is a held Redis lock
type RedisLock struct {
	client *redis.Client
	key    string
	value  string
}

// TryAcquire tries to set the lock key
func (l *RedisLocker) TryAcquire(ctx context.Context, key string) (Lock, bool, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, false, err
	}
	lock := &RedisLock{
		client: l.client,
		key:    fmt.Sprintf("lock:%s", key),
		value:  hex.EncodeToString(b),
	}
	ok, err := l.client.SetNX(ctx, lock.key, lock.value, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", lock.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return lock, true, nil
}

// Release releases the lock only if we still own it
func (l *RedisLock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Err()
}

// Extend pushes the TTL out for long-running holders
func (l *RedisLock) Extend(ctx context.Context, ttl time.Duration) error {
	return extendScript.Run(ctx, l.client, []string{l.key}, l.value, ttl.Milliseconds()).Err()
}
