package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a held lock
type Lock interface {
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Locker hands out named non-blocking locks
type Locker interface {
	// TryAcquire returns ok=false without waiting when the key is already held.
	TryAcquire(ctx context.Context, key string) (Lock, bool, error)
}

// NewLocker picks the best available backend: Redis for cross-host locking,
// then PostgreSQL advisory locks, then an in-process lock.
func NewLocker(redisClient *redis.Client, db *sql.DB, ttl time.Duration) Locker {
	if redisClient != nil {
		return NewRedisLocker(redisClient, ttl)
	}
	if db != nil {
		return NewPGLocker(db)
	}
	return NewLocalLocker()
}

// =============================================================================
// PostgreSQL Advisory Lock (fallback when Redis is unavailable)
// =============================================================================
// pg_try_advisory_lock is session-scoped, so the lock pins one pooled
// connection until Release. A dropped connection frees the lock.

// PGLocker implements Locker using PostgreSQL advisory locks
type PGLocker struct {
	db *sql.DB
}

// NewPGLocker creates an advisory-lock backed locker
func NewPGLocker(db *sql.DB) *PGLocker {
	return &PGLocker{db: db}
}

type pgLock struct {
	conn   *sql.Conn
	lockID int64
}

func advisoryID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// TryAcquire tries the advisory lock derived from key
func (l *PGLocker) TryAcquire(ctx context.Context, key string) (Lock, bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get connection for lock %s: %w", key, err)
	}
	id := advisoryID(key)
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", id).Scan(&acquired); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		conn.Close()
		return nil, false, nil
	}
	return &pgLock{conn: conn, lockID: id}, true, nil
}

// Release unlocks and returns the connection to the pool
func (l *pgLock) Release(ctx context.Context) error {
	defer l.conn.Close()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

// =============================================================================
// In-process lock (single replica, memory store)
// =============================================================================

// LocalLocker implements Locker with in-process mutexes
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

type localLock struct {
	owner *LocalLocker
	key   string
}

// TryAcquire marks key as held unless it already is
func (l *LocalLocker) TryAcquire(_ context.Context, key string) (Lock, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return &localLock{owner: l, key: key}, true, nil
}

// Release frees the key
func (l *localLock) Release(context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	delete(l.owner.held, l.key)
	return nil
}
