package handler

import (
	"fmt"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/models"
)

// DeferReviewRequest is the body of POST /pending/review.
type DeferReviewRequest struct {
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	BusinessID string `json:"businessId"`
}

func (r DeferReviewRequest) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	if r.BusinessID == "" {
		return fmt.Errorf("businessId is required")
	}
	return nil
}

func (r DeferReviewRequest) Action() models.Action {
	return models.Review{Rating: r.Rating, Comment: r.Comment, BusinessID: r.BusinessID}
}

// DeferVoteRequest is the body of POST /pending/vote.
type DeferVoteRequest struct {
	ReviewID   int64  `json:"reviewId"`
	IsHelpful  bool   `json:"isHelpful"`
	BusinessID string `json:"businessId"`
}

func (r DeferVoteRequest) Validate() error {
	if r.ReviewID <= 0 {
		return fmt.Errorf("reviewId must be positive")
	}
	if r.BusinessID == "" {
		return fmt.Errorf("businessId is required")
	}
	return nil
}

func (r DeferVoteRequest) Action() models.Action {
	return models.Vote{ReviewID: r.ReviewID, IsHelpful: r.IsHelpful, BusinessID: r.BusinessID}
}

// DeferFlagRequest is the body of POST /pending/flag.
type DeferFlagRequest struct {
	ReviewID     int64  `json:"reviewId"`
	Reason       string `json:"reason"`
	CustomReason string `json:"customReason,omitempty"`
	BusinessID   string `json:"businessId"`
}

func (r DeferFlagRequest) Validate() error {
	if r.ReviewID <= 0 {
		return fmt.Errorf("reviewId must be positive")
	}
	if r.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	if r.BusinessID == "" {
		return fmt.Errorf("businessId is required")
	}
	return nil
}

func (r DeferFlagRequest) Action() models.Action {
	return models.Flag{
		ReviewID:     r.ReviewID,
		Reason:       r.Reason,
		CustomReason: r.CustomReason,
		BusinessID:   r.BusinessID,
	}
}

// RememberRedirectRequest is the body of PUT /pending/redirect.
type RememberRedirectRequest struct {
	Path string `json:"path"`
}

func (r RememberRedirectRequest) Validate() error {
	if r.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}
