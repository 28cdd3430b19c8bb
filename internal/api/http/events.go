package http

import (
	"database/sql"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/assessment-engine/internal/sync"
)

// GET /events?after=0&limit=100
// Outbox feed of submitted attempts for downstream consumers.
func EventsHandler(db *sql.DB, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		list, err := events.Since(r.Context(), db, after, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
