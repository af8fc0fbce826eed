package cache

import (
	"sync"
	"time"
)

const (
	janitorInterval = 5 * time.Minute
	maxMemoryItems  = 10000
)

// MemoryStore is the single-process stand-in for RedisStore. It holds intent
// classifications and OAuth state when Redis is disabled.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore starts a store whose janitor runs until Close
func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go ms.janitor()
	return ms
}

// Set stores value until expiration elapses. A full store first drops expired
// entries, then the one closest to expiring.
func (ms *MemoryStore) Set(key string, value string, expiration time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	if _, exists := ms.items[key]; !exists && len(ms.items) >= maxMemoryItems {
		ms.evictLocked(now)
	}
	ms.items[key] = memoryItem{value: value, expiresAt: now.Add(expiration)}
}

// Get returns the value while it is live. Expired entries are removed on read.
func (ms *MemoryStore) Get(key string) (string, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	item, exists := ms.items[key]
	if !exists {
		return "", false
	}
	if !ms.now().Before(item.expiresAt) {
		delete(ms.items, key)
		return "", false
	}
	return item.value, true
}

// Delete removes a key
func (ms *MemoryStore) Delete(key string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.items, key)
}

// Len counts stored entries, expired ones included until swept
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.items)
}

// Close stops the janitor
func (ms *MemoryStore) Close() {
	ms.once.Do(func() { close(ms.stop) })
}

func (ms *MemoryStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.stop:
			return
		case <-ticker.C:
			ms.mu.Lock()
			ms.sweepLocked(ms.now())
			ms.mu.Unlock()
		}
	}
}

func (ms *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for key, item := range ms.items {
		if !now.Before(item.expiresAt) {
			delete(ms.items, key)
			removed++
		}
	}
	return removed
}

func (ms *MemoryStore) evictLocked(now time.Time) {
	if ms.sweepLocked(now) > 0 {
		return
	}
	var (
		victim string
		soon   time.Time
	)
	for key, item := range ms.items {
		if victim == "" || item.expiresAt.Before(soon) {
			victim, soon = key, item.expiresAt
		}
	}
	delete(ms.items, victim)
}
