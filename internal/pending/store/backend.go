package store

import (
	"context"
	"time"
)

// Backend is the physical key-value storage beneath the store. Implementations
// exist for memory, Redis and Postgres; all values are UTF-8 text.
//
// The ttl passed to Set is a tidiness hint: backends that support physical
// expiry (Redis, Postgres) honor it, but the store's lazy expiry-on-read is
// what guarantees correctness, so a backend that ignores ttl is still valid.
// A ttl <= 0 means no physical expiry.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// GetDel returns and removes the value in one step, so two concurrent
	// takers never both observe it.
	GetDel(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete is idempotent; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns every key starting with prefix, sorted lexicographically.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
