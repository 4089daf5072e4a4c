// Package store persists pending action envelopes under a fixed key
// namespace with a TTL enforced lazily at read time. No background timer is
// required for correctness: any read that notices an elapsed TTL deletes the
// entry and reports it absent. Timers do not survive process restarts; a
// read-time check does not need to.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/metrics"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/models"
)

// Clock supplies the current time; injected for TTL boundary tests.
type Clock func() time.Time

const (
	// DefaultPrefix namespaces every key this store owns. A full-namespace
	// scan enumerates exactly the live pending actions plus the redirect
	// slot, nothing else.
	DefaultPrefix = "pending_action_"

	// DefaultTTL bounds how long a deferred intent stays replayable.
	DefaultTTL = 30 * time.Minute

	// redirectSlot is the reserved id of the post-authentication return
	// path. It shares the namespace but not the TTL rule.
	redirectSlot = "redirect_url"
)

// Entry is one live pending action as returned by ScanAll.
type Entry struct {
	Kind     models.Kind
	ID       string
	Envelope models.Envelope
}

// Store is a typed, namespaced, TTL-aware view over a Backend.
type Store struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New constructs a Store over the given backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		prefix:  DefaultPrefix,
		ttl:     DefaultTTL,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL reports the configured envelope lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put validates and persists an action under its identity key, stamping the
// envelope with the current time. Writing an identity key that already exists
// replaces the older envelope (last write wins). A validation or
// serialization failure drops the action with a logged warning and is not an
// error to the caller; there is nothing meaningful to retry.
func (s *Store) Put(ctx context.Context, action models.Action) error {
	env, err := models.Encode(action, s.clock())
	if err != nil {
		s.warn(ctx, "dropping unencodable pending action", "kind", action.Kind(), "error", err)
		return nil
	}
	raw, err := models.Marshal(env)
	if err != nil {
		s.warn(ctx, "dropping unserializable pending action", "kind", action.Kind(), "error", err)
		return nil
	}
	key := s.key(env.Kind(), action.TargetID())
	if err := s.backend.Set(ctx, key, string(raw), s.ttl); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if s.metrics != nil {
		s.metrics.IncDeferred(string(env.Kind()))
	}
	return nil
}

// Get returns the live envelope for (kind, id). A malformed or expired entry
// is deleted as a side effect and reported absent.
func (s *Store) Get(ctx context.Context, kind models.Kind, id string) (models.Envelope, bool, error) {
	key := s.key(kind, id)
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return models.Envelope{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return models.Envelope{}, false, nil
	}
	env, live := s.decodeLive(ctx, kind, key, raw)
	if !live {
		return models.Envelope{}, false, nil
	}
	return env, true, nil
}

// Remove deletes the envelope for (kind, id). Removing an absent key is a
// no-op; replay relies on that when concurrent passes race over one key.
func (s *Store) Remove(ctx context.Context, kind models.Kind, id string) error {
	key := s.key(kind, id)
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// ScanAll enumerates every live pending action, oldest first. Malformed and
// expired entries are dropped (physically deleted) without failing the scan.
// Ascending createdAt order is the queue's only fairness guarantee; ties
// break on key so the order is deterministic.
func (s *Store) ScanAll(ctx context.Context) ([]Entry, error) {
	keys, err := s.backend.Keys(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("scan keys: %w", err)
	}

	var entries []Entry
	for _, key := range keys {
		rest := strings.TrimPrefix(key, s.prefix)
		if rest == redirectSlot {
			continue
		}
		kindPart, id, found := strings.Cut(rest, "_")
		kind := models.Kind(kindPart)
		if !found || id == "" || !kind.Valid() {
			s.dropMalformed(ctx, key, fmt.Errorf("unrecognized key shape"))
			continue
		}
		raw, ok, err := s.backend.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("scan read %s: %w", key, err)
		}
		if !ok {
			// Deleted between Keys and Get; treat as absent.
			continue
		}
		env, live := s.decodeLive(ctx, kind, key, raw)
		if !live {
			continue
		}
		entries = append(entries, Entry{Kind: kind, ID: id, Envelope: env})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Envelope.CreatedAt.Equal(entries[j].Envelope.CreatedAt) {
			return entries[i].Envelope.CreatedAt.Before(entries[j].Envelope.CreatedAt)
		}
		return s.key(entries[i].Kind, entries[i].ID) < s.key(entries[j].Kind, entries[j].ID)
	})
	return entries, nil
}

// ClearAll deletes every key under the namespace prefix, redirect slot
// included. Used on logout so another user on the same session never sees or
// replays the previous user's intents.
func (s *Store) ClearAll(ctx context.Context) error {
	keys, err := s.backend.Keys(ctx, s.prefix)
	if err != nil {
		return fmt.Errorf("clear keys: %w", err)
	}
	for _, key := range keys {
		if err := s.backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

// RememberReturnPath overwrites the post-authentication return path. The
// slot has no TTL; it lives until taken or cleared.
func (s *Store) RememberReturnPath(ctx context.Context, path string) error {
	key := s.prefix + redirectSlot
	if err := s.backend.Set(ctx, key, path, 0); err != nil {
		return fmt.Errorf("remember return path: %w", err)
	}
	return nil
}

// TakeReturnPath returns the remembered path and clears it in the same step,
// so a second caller never sees a stale path.
func (s *Store) TakeReturnPath(ctx context.Context) (string, bool, error) {
	key := s.prefix + redirectSlot
	path, ok, err := s.backend.GetDel(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("take return path: %w", err)
	}
	return path, ok, nil
}

func (s *Store) key(kind models.Kind, id string) string {
	return s.prefix + string(kind) + "_" + id
}

// decodeLive parses raw and applies lazy expiry. Malformed and expired
// entries are physically deleted here, realizing the "drop on read" rule.
func (s *Store) decodeLive(ctx context.Context, kind models.Kind, key, raw string) (models.Envelope, bool) {
	// Unmarshal fails only with *ParseError, and every failure means the
	// stored text is unusable: delete it and move on.
	env, err := models.Unmarshal(kind, []byte(raw))
	if err != nil {
		s.dropMalformed(ctx, key, err)
		return models.Envelope{}, false
	}
	if env.Expired(s.clock(), s.ttl) {
		if delErr := s.backend.Delete(ctx, key); delErr != nil {
			s.warn(ctx, "failed to delete expired entry", "key", key, "error", delErr)
		}
		if s.metrics != nil {
			s.metrics.IncExpiredDropped()
		}
		return models.Envelope{}, false
	}
	return env, true
}

func (s *Store) dropMalformed(ctx context.Context, key string, cause error) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.warn(ctx, "failed to delete malformed entry", "key", key, "error", err)
	}
	if s.metrics != nil {
		s.metrics.IncMalformedDropped()
	}
	s.warn(ctx, "dropped malformed pending entry", "key", key, "error", cause)
}

func (s *Store) warn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
