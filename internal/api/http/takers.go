package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/assessment-engine/internal/auth"
)

// POST /takers
// Accepts a JSON array body or multipart file= holding JSON or CSV.
func UpsertTakersHandler(dir *auth.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []auth.TakerRow
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				writeError(w, http.StatusBadRequest, "file required")
				return
			}
			defer f.Close()
			// sniff CSV vs JSON by the first byte
			buf := make([]byte, 1)
			if _, err := f.Read(buf); err != nil {
				writeError(w, http.StatusBadRequest, "empty file")
				return
			}
			if _, err := f.Seek(0, 0); err != nil {
				writeError(w, http.StatusBadRequest, "read upload")
				return
			}
			if buf[0] == '[' {
				if err := json.NewDecoder(f).Decode(&rows); err != nil {
					writeError(w, http.StatusBadRequest, "bad json")
					return
				}
			} else {
				rs, err := auth.ParseTakersCSV(f)
				if err != nil {
					writeError(w, http.StatusBadRequest, "bad csv: "+err.Error())
					return
				}
				rows = rs
			}
		} else if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			writeError(w, http.StatusBadRequest, "expected JSON array or multipart file")
			return
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]int{"inserted": 0, "updated": 0})
			return
		}
		ins, upd, err := dir.Upsert(r.Context(), rows)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

// POST /takers/{takerID}/eligibility  { "can_attempt": false }
func SetEligibilityHandler(dir *auth.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CanAttempt *bool `json:"can_attempt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CanAttempt == nil {
			writeError(w, http.StatusBadRequest, "can_attempt required")
			return
		}
		err := dir.SetCanAttempt(r.Context(), chi.URLParam(r, "takerID"), *req.CanAttempt)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "taker not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
