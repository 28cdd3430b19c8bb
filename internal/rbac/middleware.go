package rbac

import (
	"encoding/json"
	"net/http"
)

// Denial is the JSON body written when a request lacks permission. It uses
// the same error/reason keys as the rest of the API.
type Denial struct {
	Error    string   `json:"error"`
	Reason   string   `json:"reason"`
	Required []string `json:"required,omitempty"`
}

const (
	ReasonNoRole            = "no_role"
	ReasonMissingPermission = "missing_permission"
)

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return guard([]string{perm})
}

// RequireAny enforces that the role has at least one of perms.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return guard(perms)
}

func guard(perms []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			switch {
			case role == "":
				deny(w, ReasonNoRole, perms)
			case !defaultChecker.Any(role, perms...):
				deny(w, ReasonMissingPermission, perms)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func deny(w http.ResponseWriter, reason string, perms []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(Denial{Error: "forbidden", Reason: reason, Required: perms})
}
