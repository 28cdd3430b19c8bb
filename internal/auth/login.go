package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/assessment-engine/internal/rbac"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Principal is who a successful login authenticated as.
type Principal struct {
	Subject     string `json:"sub"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Principal, error)
}

// Admin is the single operator account configured through the environment.
type Admin struct {
	User     string
	PassHash string // bcrypt
}

func (a Admin) Authenticate(_ context.Context, username, password string) (Principal, error) {
	if a.User == "" || a.PassHash == "" || username != a.User {
		return Principal{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PassHash), []byte(password)) != nil {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Subject: a.User, Role: rbac.RoleAdmin, DisplayName: a.User}, nil
}

// Chain tries each authenticator in order. Only ErrInvalidCredentials
// moves on to the next one.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	for _, a := range c {
		p, err := a.Authenticate(ctx, username, password)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			return Principal{}, err
		}
	}
	return Principal{}, ErrInvalidCredentials
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, authn Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password required")
			return
		}
		p, err := authn.Authenticate(r.Context(), req.Username, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "login unavailable")
			return
		}
		tok, err := a.IssueJWT(p.Subject, p.Role)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "issue token")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token": tok,
			"role":         p.Role,
			"display_name": p.DisplayName,
		})
	}
}
