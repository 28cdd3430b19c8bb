package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/assessment-engine/internal/auth"
	"github.com/mind-engage/assessment-engine/internal/grading"
	"github.com/mind-engage/assessment-engine/internal/session"
)

// Shape is the assessment every new session is drawn with.
type Shape struct {
	Sections        []session.Section
	PerSection      int
	DurationSeconds int
}

type sessionView struct {
	session.View
	Report *grading.Report `json:"report,omitempty"`
}

func viewOf(s *session.Session, shape Shape) sessionView {
	v := sessionView{View: s.Snapshot()}
	if v.Score != nil {
		rep := grading.Build(*v.Score, shape.Sections)
		v.Report = &rep
	}
	return v
}

// POST /sessions
func StartSessionHandler(mgr *session.Manager, ids session.IdentityProvider, shape Shape) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		taker, err := ids.CurrentTaker(r.Context(), sub)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "identity lookup failed"})
			return
		}
		// nil taker is refused by the engine as permission_denied
		s, err := mgr.StartSession(r.Context(), taker, shape.Sections, shape.PerSection, shape.DurationSeconds)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewOf(s, shape))
	}
}

func ownedSession(mgr *session.Manager, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := mgr.Get(chi.URLParam(r, "sessionID"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return s, true
}

// GET /sessions/{sessionID}
func GetSessionHandler(mgr *session.Manager, shape Shape) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := ownedSession(mgr, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, viewOf(s, shape))
	}
}

// POST /sessions/{sessionID}/answer  { "option": "B" }
func AnswerHandler(mgr *session.Manager, shape Shape) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := ownedSession(mgr, w, r)
		if !ok {
			return
		}
		var req struct {
			Option string `json:"option"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		opt := session.Option(strings.ToUpper(strings.TrimSpace(req.Option)))
		if err := s.SelectAnswer(opt); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(s, shape))
	}
}

type moveResponse struct {
	Moved bool        `json:"moved"`
	View  sessionView `json:"view"`
}

// MoveHandler serves next, previous and jump. A move past either end is
// not an error; it reports moved=false.
func MoveHandler(mgr *session.Manager, shape Shape, dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := ownedSession(mgr, w, r)
		if !ok {
			return
		}
		var (
			moved bool
			err   error
		)
		switch dir {
		case "next":
			moved, err = s.GoNext()
		case "previous":
			moved, err = s.GoPrevious()
		case "jump":
			var req struct {
				Index *int `json:"index"`
			}
			if e := json.NewDecoder(r.Body).Decode(&req); e != nil || req.Index == nil {
				writeError(w, http.StatusBadRequest, "index required")
				return
			}
			moved, err = s.JumpTo(*req.Index)
		default:
			writeError(w, http.StatusNotFound, "unknown move")
			return
		}
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, moveResponse{Moved: moved, View: viewOf(s, shape)})
	}
}

// POST /sessions/{sessionID}/submit
func SubmitHandler(mgr *session.Manager, shape Shape) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := ownedSession(mgr, w, r)
		if !ok {
			return
		}
		if _, err := s.RequestSubmit(r.Context()); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(s, shape))
	}
}
