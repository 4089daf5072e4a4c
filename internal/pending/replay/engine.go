// Package replay converts a batch of pending envelopes into externally
// confirmed effects once authentication succeeds, tolerating partial failure.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/metrics"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/models"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/store"
)

// Dispatcher fulfills deferred actions against the external mutation
// endpoints. Implementations live outside the core; tests inject stubs.
type Dispatcher interface {
	SubmitReview(ctx context.Context, sub models.ReviewSubmission) error
	SubmitVote(ctx context.Context, sub models.VoteSubmission) error
	SubmitFlag(ctx context.Context, sub models.FlagSubmission) error
}

// Level classifies the aggregate notification for one replay pass.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier surfaces the aggregate outcome to the user. The engine computes
// the aggregate; it never renders.
type Notifier interface {
	Notify(ctx context.Context, level Level, title, message string)
}

// Engine replays pending actions on an authenticated signal. One Run is one
// pass: scan, dispatch everything concurrently, reconcile, notify. A pass
// never returns an error; every failure mode degrades to fewer successes in
// the aggregate report.
//
// Concurrent passes over the same store are not serialized. Two overlapping
// authentication signals can dispatch the same envelope twice before the
// first removal lands; removal is idempotent so the store stays consistent,
// and the duplicate submission is an accepted cost.
type Engine struct {
	dispatcher  Dispatcher
	notifier    Notifier
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithConcurrency caps in-flight dispatches per pass. Zero means unlimited.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New constructs an Engine.
func New(dispatcher Dispatcher, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{dispatcher: dispatcher, notifier: notifier}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one replay pass for the now-authenticated user over st.
//
// Dispatches are started in ascending createdAt order, but starting is
// scheduling, not execution: once more than one dispatch may be in flight
// the runtime decides interleaving, so oldest-first is best-effort. Only a
// concurrency cap of one serializes execution in that order. Each dispatch
// settles independently (no fail-fast). A dispatch success
// removes its envelope immediately so a retriggered replay does not resubmit
// it; a failure leaves the envelope in place for a future pass, bounded by
// its TTL. An empty scan produces no dispatches and no notification.
func (e *Engine) Run(ctx context.Context, st *store.Store, user models.AuthenticatedUser) models.Report {
	tr := otel.Tracer("pending/replay")
	ctx, span := tr.Start(ctx, "replay.pass",
		trace.WithAttributes(attribute.String("user.id", user.ID)),
	)
	defer span.End()

	start := time.Now()

	entries, err := st.ScanAll(ctx)
	if err != nil {
		e.warn(ctx, "replay scan failed, skipping pass", "error", err)
		e.incPass("error")
		return models.Report{}
	}
	if len(entries) == 0 {
		e.incPass("empty")
		return models.Report{}
	}

	// Settle every dispatch: each task records its own outcome and returns
	// nil so one failure never cancels the rest. The group provides the
	// structured wait and the concurrency cap.
	results := make([]error, len(entries))
	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := e.dispatch(ctx, entry, user); err != nil {
				results[i] = err
				return nil
			}
			if err := st.Remove(ctx, entry.Kind, entry.ID); err != nil {
				// The dispatch landed; a failed removal only risks a
				// duplicate on the next pass.
				e.warn(ctx, "failed to remove replayed envelope", "kind", entry.Kind, "id", entry.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var report models.Report
	for i, res := range results {
		kind := string(entries[i].Kind)
		if res != nil {
			report.Failed++
			e.incDispatch(kind, "failure")
			e.warn(ctx, "replay dispatch failed", "kind", kind, "id", entries[i].ID, "error", res)
			continue
		}
		report.Succeeded++
		e.incDispatch(kind, "success")
	}

	span.SetAttributes(
		attribute.Int("replay.succeeded", report.Succeeded),
		attribute.Int("replay.failed", report.Failed),
	)
	e.incPass(passOutcome(report))
	if e.metrics != nil {
		e.metrics.ObserveReplayDuration(time.Since(start))
	}
	e.info(ctx, "replay pass reconciled",
		"user_id", user.ID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	e.notify(ctx, report)
	return report
}

// dispatch routes one envelope to the mutation matching its kind,
// substituting the authenticated identity where the action needs an acting
// user. The switch is exhaustive over the closed action set.
func (e *Engine) dispatch(ctx context.Context, entry store.Entry, user models.AuthenticatedUser) error {
	switch a := entry.Envelope.Action.(type) {
	case models.Review:
		return e.dispatcher.SubmitReview(ctx, models.ReviewSubmission{
			Rating:     a.Rating,
			Comment:    a.Comment,
			UserID:     user.ID,
			UserName:   user.Name,
			BusinessID: a.BusinessID,
		})
	case models.Vote:
		return e.dispatcher.SubmitVote(ctx, models.VoteSubmission{
			ReviewID:  a.ReviewID,
			UserID:    user.ID,
			IsHelpful: a.IsHelpful,
		})
	case models.Flag:
		reason := a.Reason
		if a.CustomReason != "" {
			reason = a.CustomReason
		}
		return e.dispatcher.SubmitFlag(ctx, models.FlagSubmission{
			ReviewID: a.ReviewID,
			Reason:   reason,
		})
	default:
		return fmt.Errorf("dispatch: unknown action type %T", entry.Envelope.Action)
	}
}

func (e *Engine) notify(ctx context.Context, report models.Report) {
	if e.notifier == nil || report.Empty() {
		return
	}
	switch {
	case report.Failed == 0:
		e.notifier.Notify(ctx, LevelSuccess, "Pending actions completed",
			fmt.Sprintf("%d deferred action(s) were submitted.", report.Succeeded))
	case report.Succeeded == 0:
		e.notifier.Notify(ctx, LevelError, "Pending actions failed",
			fmt.Sprintf("%d deferred action(s) could not be submitted. They will be retried on your next sign-in.", report.Failed))
	default:
		e.notifier.Notify(ctx, LevelWarning, "Some pending actions failed",
			fmt.Sprintf("%d deferred action(s) were submitted, %d failed. Failed actions will be retried on your next sign-in.", report.Succeeded, report.Failed))
	}
}

func passOutcome(report models.Report) string {
	switch {
	case report.Failed == 0:
		return "success"
	case report.Succeeded == 0:
		return "failure"
	default:
		return "partial"
	}
}

func (e *Engine) incPass(outcome string) {
	if e.metrics != nil {
		e.metrics.IncReplayPass(outcome)
	}
}

func (e *Engine) incDispatch(kind, outcome string) {
	if e.metrics != nil {
		e.metrics.IncDispatch(kind, outcome)
	}
}

func (e *Engine) warn(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.WarnContext(ctx, msg, args...)
	}
}

func (e *Engine) info(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.InfoContext(ctx, msg, args...)
	}
}
