package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no physical expiry
}

// MemoryBackend is an in-process Backend. It is the default for standalone
// runs and the workhorse of the unit tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   Clock
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithMemoryClock sets the clock used for physical expiry checks.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(b *MemoryBackend) {
		if clock != nil {
			b.clock = clock
		}
	}
}

func NewMemory(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	entry, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok || b.physicallyExpired(entry) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (b *MemoryBackend) GetDel(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[key]
	if !ok {
		return "", false, nil
	}
	delete(b.entries, key)
	if b.physicallyExpired(entry) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = b.clock().Add(ttl)
	}
	b.mu.Lock()
	b.entries[key] = entry
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var keys []string
	for key, entry := range b.entries {
		if strings.HasPrefix(key, prefix) && !b.physicallyExpired(entry) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports the number of live entries; used by tests.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, entry := range b.entries {
		if !b.physicallyExpired(entry) {
			n++
		}
	}
	return n
}

func (b *MemoryBackend) physicallyExpired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && b.clock().After(entry.expiresAt)
}
