package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/assessment-engine/internal/attempts"
	"github.com/mind-engage/assessment-engine/internal/auth"
	"github.com/mind-engage/assessment-engine/internal/grading"
	"github.com/mind-engage/assessment-engine/internal/rbac"
	"github.com/mind-engage/assessment-engine/internal/session"
)

type attemptView struct {
	session.AttemptRecord
	Report grading.Report `json:"report"`
}

func canViewAll(r *http.Request) bool {
	return rbac.Can(r.Context(), rbac.PermAttemptAll)
}

// GET /attempts?taker_id=...&limit=50&offset=0
// Callers without attempt:view-all only ever see their own attempts.
func ListAttemptsHandler(store *attempts.Store, shape Shape) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		takerID := strings.TrimSpace(r.URL.Query().Get("taker_id"))
		if !canViewAll(r) {
			takerID = auth.SubjectFromContext(r.Context())
		}
		list, err := store.List(r.Context(), attempts.ListOpts{
			TakerID: takerID,
			Limit:   parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:  parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]attemptView, 0, len(list))
		for _, rec := range list {
			out = append(out, attemptView{AttemptRecord: rec, Report: grading.Build(rec.Scores, shape.Sections)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(store *attempts.Store, shape Shape) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := store.Get(r.Context(), chi.URLParam(r, "attemptID"))
		if errors.Is(err, attempts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if rec.TakerID != auth.SubjectFromContext(r.Context()) && !canViewAll(r) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, attemptView{AttemptRecord: rec, Report: grading.Build(rec.Scores, shape.Sections)})
	}
}
