package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mind-engage/assessment-engine/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeSessionError maps engine errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	var (
		se  *session.StartError
		sub *session.SubmissionError
	)
	switch {
	case errors.As(err, &se):
		status := http.StatusUnprocessableEntity
		switch se.Reason {
		case session.ReasonPermissionDenied, session.ReasonSessionActive:
			status = http.StatusForbidden
		case session.ReasonRepositoryUnavailable:
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorBody{Error: err.Error(), Reason: string(se.Reason)})
	case errors.As(err, &sub):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "attempt could not be saved", Retryable: sub.Retryable})
	case errors.Is(err, session.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "session not found"})
	case errors.Is(err, session.ErrInvalidOption):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, session.ErrMutationRejected),
		errors.Is(err, session.ErrSubmitInProgress),
		errors.Is(err, session.ErrNotAtLastQuestion):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
