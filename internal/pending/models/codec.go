package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ParseError marks stored text that does not decode to a well-formed envelope
// of the expected kind. Readers treat it as "drop and continue", never as a
// fatal condition for a scan.
type ParseError struct {
	Kind Kind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s envelope: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Wire shapes match the persisted layout exactly: flat JSON objects with the
// creation instant as epoch milliseconds under "timestamp".
type reviewWire struct {
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	BusinessID string `json:"businessId"`
	Timestamp  int64  `json:"timestamp"`
}

type voteWire struct {
	ReviewID   int64  `json:"reviewId"`
	IsHelpful  bool   `json:"isHelpful"`
	BusinessID string `json:"businessId"`
	Timestamp  int64  `json:"timestamp"`
}

type flagWire struct {
	ReviewID     int64  `json:"reviewId"`
	Reason       string `json:"reason"`
	CustomReason string `json:"customReason,omitempty"`
	BusinessID   string `json:"businessId"`
	Timestamp    int64  `json:"timestamp"`
}

// Encode validates the action and wraps it in an envelope stamped with now.
func Encode(action Action, now time.Time) (Envelope, error) {
	if err := action.validate(); err != nil {
		return Envelope{}, fmt.Errorf("invalid %s action: %w", action.Kind(), err)
	}
	return Envelope{Action: action, CreatedAt: now}, nil
}

// Marshal serializes an envelope to its stored text form.
func Marshal(env Envelope) ([]byte, error) {
	ts := env.CreatedAt.UnixMilli()
	var wire any
	switch a := env.Action.(type) {
	case Review:
		wire = reviewWire{Rating: a.Rating, Comment: a.Comment, BusinessID: a.BusinessID, Timestamp: ts}
	case Vote:
		wire = voteWire{ReviewID: a.ReviewID, IsHelpful: a.IsHelpful, BusinessID: a.BusinessID, Timestamp: ts}
	case Flag:
		wire = flagWire{ReviewID: a.ReviewID, Reason: a.Reason, CustomReason: a.CustomReason, BusinessID: a.BusinessID, Timestamp: ts}
	default:
		return nil, fmt.Errorf("marshal: unknown action type %T", env.Action)
	}
	return json.Marshal(wire)
}

// Unmarshal decodes stored text into an envelope of the given kind. The shape
// check is strict: unknown fields, missing required fields and out-of-range
// values all yield a *ParseError.
func Unmarshal(kind Kind, raw []byte) (Envelope, error) {
	var (
		action Action
		ts     int64
	)
	switch kind {
	case KindReview:
		var w reviewWire
		if err := decodeStrict(raw, &w); err != nil {
			return Envelope{}, &ParseError{Kind: kind, Err: err}
		}
		action, ts = Review{Rating: w.Rating, Comment: w.Comment, BusinessID: w.BusinessID}, w.Timestamp
	case KindVote:
		var w voteWire
		if err := decodeStrict(raw, &w); err != nil {
			return Envelope{}, &ParseError{Kind: kind, Err: err}
		}
		action, ts = Vote{ReviewID: w.ReviewID, IsHelpful: w.IsHelpful, BusinessID: w.BusinessID}, w.Timestamp
	case KindFlag:
		var w flagWire
		if err := decodeStrict(raw, &w); err != nil {
			return Envelope{}, &ParseError{Kind: kind, Err: err}
		}
		action, ts = Flag{ReviewID: w.ReviewID, Reason: w.Reason, CustomReason: w.CustomReason, BusinessID: w.BusinessID}, w.Timestamp
	default:
		return Envelope{}, &ParseError{Kind: kind, Err: fmt.Errorf("unknown kind")}
	}

	if err := action.validate(); err != nil {
		return Envelope{}, &ParseError{Kind: kind, Err: err}
	}
	if ts <= 0 {
		return Envelope{}, &ParseError{Kind: kind, Err: fmt.Errorf("missing timestamp")}
	}
	return Envelope{Action: action, CreatedAt: time.UnixMilli(ts)}, nil
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
