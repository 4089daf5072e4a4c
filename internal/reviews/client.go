// Package reviews holds the client side of the external reviews API that
// fulfills replayed actions. The mutation endpoints themselves are another
// service; this package only consumes their contracts.
package reviews

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/models"
)

// Client submits reviews, votes and flags over HTTP. It satisfies the replay
// engine's Dispatcher interface.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a reviews API client. httpClient may be nil, in which
// case a client with a 10s timeout is used; the replay core itself imposes
// no timeout, so the transport's is the only bound on a dispatch.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

func (c *Client) SubmitReview(ctx context.Context, sub models.ReviewSubmission) error {
	return c.post(ctx, "/reviews", map[string]any{
		"rating":     sub.Rating,
		"comment":    sub.Comment,
		"userId":     sub.UserID,
		"userName":   sub.UserName,
		"businessId": sub.BusinessID,
	})
}

func (c *Client) SubmitVote(ctx context.Context, sub models.VoteSubmission) error {
	return c.post(ctx, fmt.Sprintf("/reviews/%d/votes", sub.ReviewID), map[string]any{
		"userId":    sub.UserID,
		"isHelpful": sub.IsHelpful,
	})
}

func (c *Client) SubmitFlag(ctx context.Context, sub models.FlagSubmission) error {
	return c.post(ctx, fmt.Sprintf("/reviews/%d/flags", sub.ReviewID), map[string]any{
		"reason": sub.Reason,
	})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

// MockDispatcher fulfills every submission after a configurable latency.
// Useful for local runs without a reviews API.
type MockDispatcher struct {
	Latency time.Duration
}

func (m MockDispatcher) SubmitReview(ctx context.Context, _ models.ReviewSubmission) error {
	return m.settle(ctx)
}

func (m MockDispatcher) SubmitVote(ctx context.Context, _ models.VoteSubmission) error {
	return m.settle(ctx)
}

func (m MockDispatcher) SubmitFlag(ctx context.Context, _ models.FlagSubmission) error {
	return m.settle(ctx)
}

func (m MockDispatcher) settle(ctx context.Context) error {
	if m.Latency <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
