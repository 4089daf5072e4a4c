// Package handler wires the deferred-action queue to HTTP. Anonymous
// endpoints are scoped by the visitor's session header; the replay trigger
// requires an authenticated bearer token.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/models"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/store"
	"github.com/ianMuchesia/MockPay-sub000/internal/platform/middleware"
	"github.com/ianMuchesia/MockPay-sub000/pkg/platform/sentinel"
)

const sessionHeader = "X-Session-ID"

// Service defines the queue operations the handler depends on.
type Service interface {
	Defer(ctx context.Context, scope string, action models.Action) error
	List(ctx context.Context, scope string) ([]store.Entry, error)
	Clear(ctx context.Context, scope string) error
	RememberReturnPath(ctx context.Context, scope, path string) error
	TakeReturnPath(ctx context.Context, scope string) (string, bool, error)
	Replay(ctx context.Context, scope string, user models.AuthenticatedUser) models.Report
}

// Handler exposes the pending-action queue over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the anonymous queue endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Route("/pending", func(r chi.Router) {
		r.Post("/review", h.HandleDeferReview)
		r.Post("/vote", h.HandleDeferVote)
		r.Post("/flag", h.HandleDeferFlag)
		r.Get("/", h.HandleList)
		r.Delete("/", h.HandleClear)
		r.Put("/redirect", h.HandleRememberRedirect)
		r.Post("/redirect/take", h.HandleTakeRedirect)
	})
}

// RegisterProtected mounts the replay trigger; callers wrap the router in
// RequireAuth so only an authenticated signal can start a pass.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/replay", h.HandleReplay)
}

func (h *Handler) HandleDeferReview(w http.ResponseWriter, r *http.Request) {
	deferAction(h, w, r, DeferReviewRequest{})
}

func (h *Handler) HandleDeferVote(w http.ResponseWriter, r *http.Request) {
	deferAction(h, w, r, DeferVoteRequest{})
}

func (h *Handler) HandleDeferFlag(w http.ResponseWriter, r *http.Request) {
	deferAction(h, w, r, DeferFlagRequest{})
}

// deferRequest is implemented by the three enqueue DTOs.
type deferRequest interface {
	Validate() error
	Action() models.Action
}

func deferAction[T deferRequest](h *Handler, w http.ResponseWriter, r *http.Request, _ T) {
	ctx := r.Context()
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	action := req.Action()
	if err := h.service.Defer(ctx, scope, action); err != nil {
		h.logError(ctx, "failed to defer pending action", "kind", action.Kind(), "error", err)
		writeSentinel(w, err)
		return
	}
	h.logInfo(ctx, "pending action deferred", "kind", action.Kind(), "target_id", action.TargetID())
	writeJSON(w, http.StatusAccepted, map[string]string{
		"kind": string(action.Kind()),
		"id":   action.TargetID(),
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	entries, err := h.service.List(ctx, scope)
	if err != nil {
		h.logError(ctx, "failed to list pending actions", "error", err)
		writeSentinel(w, err)
		return
	}
	resp := make([]PendingActionResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, fromEntry(entry))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := h.service.Clear(ctx, scope); err != nil {
		h.logError(ctx, "failed to clear pending actions", "error", err)
		writeSentinel(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRememberRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req RememberRedirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.RememberReturnPath(ctx, scope, req.Path); err != nil {
		h.logError(ctx, "failed to remember return path", "error", err)
		writeSentinel(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleTakeRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	path, found, err := h.service.TakeReturnPath(ctx, scope)
	if err != nil {
		h.logError(ctx, "failed to take return path", "error", err)
		writeSentinel(w, err)
		return
	}
	if !found {
		writeSentinel(w, sentinel.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, RedirectResponse{Path: path})
}

// HandleReplay is the authenticated signal. The session scope comes from the
// token's session claim so the pass replays the same session that deferred
// the actions before login.
func (h *Handler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middleware.GetClaims(ctx)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	scope := claims.SessionID
	if scope == "" {
		scope = r.Header.Get(sessionHeader)
	}
	if scope == "" {
		writeError(w, http.StatusBadRequest, "no session scope in token or header")
		return
	}

	report := h.service.Replay(ctx, scope, models.AuthenticatedUser{
		ID:    claims.UserID,
		Name:  claims.UserName,
		Email: claims.Email,
	})
	h.logInfo(ctx, "replay triggered",
		"user_id", claims.UserID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)
	writeJSON(w, http.StatusOK, fromReport(report))
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (string, bool) {
	scope := r.Header.Get(sessionHeader)
	if scope == "" {
		writeError(w, http.StatusBadRequest, "missing "+sessionHeader+" header")
		return "", false
	}
	return scope, true
}

func (h *Handler) logError(ctx context.Context, msg string, args ...any) {
	if h.logger != nil {
		args = append(args, "request_id", middleware.GetRequestID(ctx))
		h.logger.ErrorContext(ctx, msg, args...)
	}
}

func (h *Handler) logInfo(ctx context.Context, msg string, args ...any) {
	if h.logger != nil {
		args = append(args, "request_id", middleware.GetRequestID(ctx))
		h.logger.InfoContext(ctx, msg, args...)
	}
}
