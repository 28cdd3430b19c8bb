package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/assessment-engine/internal/attempts"
	"github.com/mind-engage/assessment-engine/internal/auth"
	"github.com/mind-engage/assessment-engine/internal/questionbank"
	"github.com/mind-engage/assessment-engine/internal/rbac"
	"github.com/mind-engage/assessment-engine/internal/session"
	"github.com/mind-engage/assessment-engine/internal/storage"
	syncx "github.com/mind-engage/assessment-engine/internal/sync"
)

type Deps struct {
	DB       *sql.DB
	Auth     *auth.AuthService
	Login    auth.Authenticator // nil disables POST /auth/login
	Takers   *auth.Directory
	Sessions *session.Manager
	Bank     *questionbank.Repository
	Attempts *attempts.Store
	Blobs    storage.BlobStore
	Events   *syncx.EventRepo
	Shape    Shape

	// AllowClaimRole trusts the token role when the subject has no takers row.
	AllowClaimRole bool
}

// Mount registers every route on r.
func Mount(r chi.Router, d Deps) {
	if d.Login != nil {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Login))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		pr.Use(auth.AttachRoleFromDB(d.DB, d.AllowClaimRole))

		pr.With(rbac.Require(rbac.PermSessionStart)).
			Post("/sessions", StartSessionHandler(d.Sessions, d.Takers, d.Shape))
		pr.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.With(rbac.Require(rbac.PermSessionView)).Get("/", GetSessionHandler(d.Sessions, d.Shape))
			sr.With(rbac.Require(rbac.PermSessionAnswer)).Post("/answer", AnswerHandler(d.Sessions, d.Shape))
			sr.With(rbac.Require(rbac.PermSessionAnswer)).Post("/next", MoveHandler(d.Sessions, d.Shape, "next"))
			sr.With(rbac.Require(rbac.PermSessionAnswer)).Post("/previous", MoveHandler(d.Sessions, d.Shape, "previous"))
			sr.With(rbac.Require(rbac.PermSessionAnswer)).Post("/jump", MoveHandler(d.Sessions, d.Shape, "jump"))
			sr.With(rbac.Require(rbac.PermSessionSubmit)).Post("/submit", SubmitHandler(d.Sessions, d.Shape))
		})

		pr.With(rbac.RequireAny(rbac.PermAttemptOwn, rbac.PermAttemptAll)).
			Get("/attempts", ListAttemptsHandler(d.Attempts, d.Shape))
		pr.With(rbac.RequireAny(rbac.PermAttemptOwn, rbac.PermAttemptAll)).
			Get("/attempts/{attemptID}", GetAttemptHandler(d.Attempts, d.Shape))

		pr.With(rbac.Require(rbac.PermQuestionsIn)).
			Post("/questions/import", ImportQuestionsHandler(d.Bank, d.Blobs))
		pr.With(rbac.Require(rbac.PermQuestionsList)).
			Get("/questions/stats", QuestionStatsHandler(d.Bank))

		pr.With(rbac.Require(rbac.PermTakersUpsert)).
			Post("/takers", UpsertTakersHandler(d.Takers))
		pr.With(rbac.Require(rbac.PermTakersUpsert)).
			Post("/takers/{takerID}/eligibility", SetEligibilityHandler(d.Takers))

		if d.Events != nil {
			pr.With(rbac.Require(rbac.PermEventsRead)).
				Get("/events", EventsHandler(d.DB, d.Events))
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "db unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}
