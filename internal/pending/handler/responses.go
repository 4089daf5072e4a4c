package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/models"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/replay"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/store"
	"github.com/ianMuchesia/MockPay-sub000/pkg/platform/sentinel"
)

// PendingActionResponse is one live pending action. Exactly one of Review,
// Vote or Flag is set, matching Kind.
type PendingActionResponse struct {
	Kind      string      `json:"kind"`
	ID        string      `json:"id"`
	CreatedAt int64       `json:"createdAt"`
	Review    *ReviewBody `json:"review,omitempty"`
	Vote      *VoteBody   `json:"vote,omitempty"`
	Flag      *FlagBody   `json:"flag,omitempty"`
}

type ReviewBody struct {
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	BusinessID string `json:"businessId"`
}

type VoteBody struct {
	ReviewID   int64  `json:"reviewId"`
	IsHelpful  bool   `json:"isHelpful"`
	BusinessID string `json:"businessId"`
}

type FlagBody struct {
	ReviewID     int64  `json:"reviewId"`
	Reason       string `json:"reason"`
	CustomReason string `json:"customReason,omitempty"`
	BusinessID   string `json:"businessId"`
}

// ReplayResponse is the body of POST /replay.
type ReplayResponse struct {
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Level     string `json:"level,omitempty"`
}

// RedirectResponse is the body of POST /pending/redirect/take.
type RedirectResponse struct {
	Path string `json:"path"`
}

func fromEntry(entry store.Entry) PendingActionResponse {
	resp := PendingActionResponse{
		Kind:      string(entry.Kind),
		ID:        entry.ID,
		CreatedAt: entry.Envelope.CreatedAt.UnixMilli(),
	}
	switch a := entry.Envelope.Action.(type) {
	case models.Review:
		resp.Review = &ReviewBody{Rating: a.Rating, Comment: a.Comment, BusinessID: a.BusinessID}
	case models.Vote:
		resp.Vote = &VoteBody{ReviewID: a.ReviewID, IsHelpful: a.IsHelpful, BusinessID: a.BusinessID}
	case models.Flag:
		resp.Flag = &FlagBody{ReviewID: a.ReviewID, Reason: a.Reason, CustomReason: a.CustomReason, BusinessID: a.BusinessID}
	}
	return resp
}

func fromReport(report models.Report) ReplayResponse {
	resp := ReplayResponse{Succeeded: report.Succeeded, Failed: report.Failed}
	if report.Empty() {
		return resp
	}
	switch {
	case report.Failed == 0:
		resp.Level = string(replay.LevelSuccess)
	case report.Succeeded == 0:
		resp.Level = string(replay.LevelError)
	default:
		resp.Level = string(replay.LevelWarning)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSentinel translates infrastructure facts into HTTP statuses.
func writeSentinel(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
