// Package service orchestrates the pending-action store and replay engine
// for one multi-visitor process. Each anonymous session gets its own key
// scope under the shared namespace prefix, so clearing one visitor's intents
// on logout never touches another's.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/metrics"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/models"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/replay"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/store"
)

// Service exposes the deferred-action queue operations keyed by session
// scope.
type Service struct {
	backend store.Backend
	engine  *replay.Engine
	prefix  string
	ttl     time.Duration
	clock   store.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(clock store.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service over the shared backend and replay engine.
func New(backend store.Backend, engine *replay.Engine, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		engine:  engine,
		prefix:  store.DefaultPrefix,
		ttl:     store.DefaultTTL,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scopeSegment makes an untrusted session scope safe to embed in the key
// prefix. Bytes outside [A-Za-z0-9_-] get %-encoded ('%' included), so the
// encoded segment never contains the ':' delimiter and no scope value can
// alias or nest inside another scope's namespace.
func scopeSegment(scope string) string {
	var b strings.Builder
	for i := 0; i < len(scope); i++ {
		c := scope[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// storeFor builds the scoped store view for one visitor session. Stores are
// cheap views over the shared backend; constructing one per call is fine.
func (s *Service) storeFor(scope string) *store.Store {
	return store.New(s.backend,
		store.WithPrefix(s.prefix+scopeSegment(scope)+":"),
		store.WithTTL(s.ttl),
		store.WithClock(s.clock),
		store.WithLogger(s.logger),
		store.WithMetrics(s.metrics),
	)
}

// Defer persists an action for later replay.
func (s *Service) Defer(ctx context.Context, scope string, action models.Action) error {
	return s.storeFor(scope).Put(ctx, action)
}

// List returns the session's live pending actions, oldest first.
func (s *Service) List(ctx context.Context, scope string) ([]store.Entry, error) {
	return s.storeFor(scope).ScanAll(ctx)
}

// Clear wipes every pending action and the redirect slot for the session.
func (s *Service) Clear(ctx context.Context, scope string) error {
	return s.storeFor(scope).ClearAll(ctx)
}

// RememberReturnPath records where to send the user after authentication.
func (s *Service) RememberReturnPath(ctx context.Context, scope, path string) error {
	return s.storeFor(scope).RememberReturnPath(ctx, path)
}

// TakeReturnPath returns and clears the remembered path in one step.
func (s *Service) TakeReturnPath(ctx context.Context, scope string) (string, bool, error) {
	return s.storeFor(scope).TakeReturnPath(ctx)
}

// Replay runs one replay pass for the session on behalf of the
// now-authenticated user. It never returns an error.
func (s *Service) Replay(ctx context.Context, scope string, user models.AuthenticatedUser) models.Report {
	return s.engine.Run(ctx, s.storeFor(scope), user)
}
