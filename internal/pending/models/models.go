package models

import (
	"fmt"
	"strconv"
	"time"
)

// Kind discriminates the payload shape of a deferred action.
type Kind string

const (
	KindReview Kind = "review"
	KindVote   Kind = "vote"
	KindFlag   Kind = "flag"
)

// Valid reports whether k is one of the known action kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindReview, KindVote, KindFlag:
		return true
	}
	return false
}

// Action is the closed set of intents a visitor can defer until they
// authenticate. Adding a kind means adding a type here and handling it in
// every exhaustive switch; the compiler finds the rest.
type Action interface {
	Kind() Kind
	// TargetID is the natural id of the action's target. Together with the
	// kind it forms the identity key: at most one pending action exists per
	// (kind, target) pair, later writes overwrite earlier ones.
	TargetID() string
	validate() error
}

// Review is a deferred business review submission.
type Review struct {
	Rating     int
	Comment    string
	BusinessID string
}

func (Review) Kind() Kind         { return KindReview }
func (r Review) TargetID() string { return r.BusinessID }

func (r Review) validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", r.Rating)
	}
	if r.BusinessID == "" {
		return fmt.Errorf("business id is required")
	}
	return nil
}

// Vote is a deferred helpful/unhelpful vote on an existing review.
type Vote struct {
	ReviewID   int64
	IsHelpful  bool
	BusinessID string
}

func (Vote) Kind() Kind         { return KindVote }
func (v Vote) TargetID() string { return strconv.FormatInt(v.ReviewID, 10) }

func (v Vote) validate() error {
	if v.ReviewID <= 0 {
		return fmt.Errorf("review id must be positive, got %d", v.ReviewID)
	}
	if v.BusinessID == "" {
		return fmt.Errorf("business id is required")
	}
	return nil
}

// Flag is a deferred report of an existing review. CustomReason carries the
// free-text explanation when the canned reason does not fit.
type Flag struct {
	ReviewID     int64
	Reason       string
	CustomReason string
	BusinessID   string
}

func (Flag) Kind() Kind         { return KindFlag }
func (f Flag) TargetID() string { return strconv.FormatInt(f.ReviewID, 10) }

func (f Flag) validate() error {
	if f.ReviewID <= 0 {
		return fmt.Errorf("review id must be positive, got %d", f.ReviewID)
	}
	if f.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	if f.BusinessID == "" {
		return fmt.Errorf("business id is required")
	}
	return nil
}

// Envelope wraps a pending action with its creation time. CreatedAt orders
// replay (oldest first) and bounds the action's lifetime against the TTL.
type Envelope struct {
	Action    Action
	CreatedAt time.Time
}

func (e Envelope) Kind() Kind { return e.Action.Kind() }

// Expired reports whether the envelope's age exceeds ttl at the given time.
// An envelope at exactly ttl is still live; the boundary is exclusive.
func (e Envelope) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) > ttl
}

// AuthenticatedUser is the identity carried by the authenticated signal that
// triggers replay. It is substituted into dispatches that need an acting user.
type AuthenticatedUser struct {
	ID    string
	Name  string
	Email string
}

// ReviewSubmission is the dispatch contract for fulfilling a deferred review.
type ReviewSubmission struct {
	Rating     int
	Comment    string
	UserID     string
	UserName   string
	BusinessID string
}

// VoteSubmission is the dispatch contract for fulfilling a deferred vote.
type VoteSubmission struct {
	ReviewID  int64
	UserID    string
	IsHelpful bool
}

// FlagSubmission is the dispatch contract for fulfilling a deferred flag.
type FlagSubmission struct {
	ReviewID int64
	Reason   string
}

// Report is the aggregate outcome of one replay pass.
type Report struct {
	Succeeded int
	Failed    int
}

func (r Report) Total() int  { return r.Succeeded + r.Failed }
func (r Report) Empty() bool { return r.Total() == 0 }
