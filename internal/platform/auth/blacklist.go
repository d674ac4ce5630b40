package auth

import (
	"context"
	"sync"
	"time"
)

// Blacklist records revoked access tokens. Entries are append-only: a
// blacklisted JTI stays blacklisted until the token would have expired anyway.
type Blacklist interface {
	Add(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

type memoryEntry struct {
	ExpiresAt time.Time
	UserID    string
}

// MemoryBlacklist is an in-memory Blacklist with periodic cleanup of entries
// whose tokens have expired. Thread-safe.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	done    chan struct{}
}

// NewMemoryBlacklist creates a blacklist and starts a background goroutine
// that drops expired entries every 5 minutes.
func NewMemoryBlacklist() *MemoryBlacklist {
	b := &MemoryBlacklist{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	go b.cleanupLoop()
	return b
}

func (b *MemoryBlacklist) Add(_ context.Context, jti, userID string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[jti] = memoryEntry{ExpiresAt: expiresAt, UserID: userID}
	return nil
}

func (b *MemoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[jti]
	return ok, nil
}

// Count returns the number of currently blacklisted tokens.
func (b *MemoryBlacklist) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close stops the cleanup goroutine.
func (b *MemoryBlacklist) Close() {
	close(b.done)
}

func (b *MemoryBlacklist) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.removeExpired(time.Now())
		case <-b.done:
			return
		}
	}
}

func (b *MemoryBlacklist) removeExpired(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for jti, e := range b.entries {
		if now.After(e.ExpiresAt) {
			delete(b.entries, jti)
		}
	}
}
