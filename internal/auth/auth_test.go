package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/assessment-engine/internal/db"
	"github.com/mind-engage/assessment-engine/internal/rbac"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func newDirectory(t *testing.T) *Directory {
	d := NewDirectory(openDB(t))
	d.cost = bcrypt.MinCost
	return d
}

func boolp(b bool) *bool { return &b }

func TestAuthService_RoundTrip(t *testing.T) {
	a := NewAuthService("k", time.Hour)
	tok, err := a.IssueJWT("emp-1", rbac.RoleTaker)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Sub != "emp-1" || c.Role != rbac.RoleTaker {
		t.Fatalf("unexpected claims: %+v", c)
	}
	if _, err := NewAuthService("other", time.Hour).Parse(tok); err == nil {
		t.Fatalf("token signed with another key must not parse")
	}
}

func TestAuthService_Expired(t *testing.T) {
	a := NewAuthService("k", time.Minute)
	a.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _ := a.IssueJWT("emp-1", rbac.RoleTaker)
	if _, err := a.Parse(tok); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("k", time.Hour)
	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing bearer: got %d", rec.Code)
	}

	tok, _ := a.IssueJWT("emp-9", rbac.RoleTaker)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || gotSub != "emp-9" || gotRole != rbac.RoleTaker {
		t.Fatalf("code=%d sub=%q role=%q", rec.Code, gotSub, gotRole)
	}
}

func TestDirectory_UpsertAuthenticateAndResolve(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()

	ins, upd, err := d.Upsert(ctx, []TakerRow{
		{ID: "emp-1", Username: "asha", DisplayName: "Asha", Password: "pw1"},
		{ID: "emp-2", Username: "ravi", Password: "pw2", CanAttempt: boolp(false)},
	})
	if err != nil || ins != 2 || upd != 0 {
		t.Fatalf("upsert: ins=%d upd=%d err=%v", ins, upd, err)
	}

	p, err := d.Authenticate(ctx, "asha", "pw1")
	if err != nil || p.Subject != "emp-1" || p.Role != rbac.RoleTaker || p.DisplayName != "Asha" {
		t.Fatalf("authenticate: %+v %v", p, err)
	}
	if _, err := d.Authenticate(ctx, "asha", "nope"); err != ErrInvalidCredentials {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := d.Authenticate(ctx, "ghost", "pw"); err != ErrInvalidCredentials {
		t.Fatalf("unknown user: %v", err)
	}

	tk, err := d.CurrentTaker(ctx, "emp-2")
	if err != nil || tk == nil {
		t.Fatalf("current taker: %v %v", tk, err)
	}
	if tk.CanAttempt || tk.DisplayName != "ravi" {
		t.Fatalf("unexpected taker: %+v", tk)
	}
	if tk, err := d.CurrentTaker(ctx, "missing"); err != nil || tk != nil {
		t.Fatalf("missing taker: %v %v", tk, err)
	}

	// update keeps password when none given and flips eligibility
	_, upd, err = d.Upsert(ctx, []TakerRow{{ID: "emp-2", Username: "ravi", CanAttempt: boolp(true)}})
	if err != nil || upd != 1 {
		t.Fatalf("update: upd=%d err=%v", upd, err)
	}
	if tk, _ := d.CurrentTaker(ctx, "emp-2"); !tk.CanAttempt {
		t.Fatalf("can_attempt not updated")
	}
	if _, err := d.Authenticate(ctx, "ravi", "pw2"); err != nil {
		t.Fatalf("password should survive update: %v", err)
	}

	if err := d.SetCanAttempt(ctx, "emp-1", false); err != nil {
		t.Fatalf("set can_attempt: %v", err)
	}
	if tk, _ := d.CurrentTaker(ctx, "emp-1"); tk.CanAttempt {
		t.Fatalf("expected emp-1 revoked")
	}
}

func TestDirectory_UpsertRequiresPasswordForNewRows(t *testing.T) {
	d := newDirectory(t)
	if _, _, err := d.Upsert(context.Background(), []TakerRow{{ID: "x", Username: "x"}}); err == nil {
		t.Fatalf("expected error")
	}
	if tk, _ := d.CurrentTaker(context.Background(), "x"); tk != nil {
		t.Fatalf("row must not be written")
	}
}

func TestLoginHandler(t *testing.T) {
	d := newDirectory(t)
	if _, _, err := d.Upsert(context.Background(), []TakerRow{{ID: "emp-1", Username: "asha", Password: "pw1"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	adminHash, _ := bcrypt.GenerateFromPassword([]byte("root"), bcrypt.MinCost)
	a := NewAuthService("k", time.Hour)
	h := LoginHandler(a, Chain{Admin{User: "admin", PassHash: string(adminHash)}, d})

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		return rec
	}

	rec := post(`{"username":"asha","password":"pw1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("taker login: %d %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	c, err := a.Parse(out["access_token"])
	if err != nil || c.Sub != "emp-1" || c.Role != rbac.RoleTaker {
		t.Fatalf("token claims: %+v %v", c, err)
	}

	rec = post(`{"username":"admin","password":"root"}`)
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if rec.Code != http.StatusOK || out["role"] != rbac.RoleAdmin {
		t.Fatalf("admin login: %d %v", rec.Code, out)
	}

	if rec := post(`{"username":"asha","password":"bad"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}
	if rec := post(`{"username":"asha"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password: %d", rec.Code)
	}
	if rec := post(`not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rec.Code)
	}
}

func TestAttachRoleFromDB(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()
	if _, _, err := d.Upsert(ctx, []TakerRow{{ID: "emp-1", Username: "asha", Password: "pw", Role: rbac.RoleTaker}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var role string
	h := AttachRoleFromDB(d.db, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = rbac.RoleFromContext(r.Context())
	}))
	serve := func(sub, claim string) int {
		rctx := rbac.WithRole(WithSubject(ctx, sub), claim)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(rctx))
		return rec.Code
	}
	if code := serve("emp-1", rbac.RoleAdmin); code != http.StatusOK || role != rbac.RoleTaker {
		t.Fatalf("stored role should win: code=%d role=%q", code, role)
	}
	if code := serve("admin", rbac.RoleAdmin); code != http.StatusOK || role != rbac.RoleAdmin {
		t.Fatalf("config admin: code=%d role=%q", code, role)
	}
	if code := serve("ghost", rbac.RoleTaker); code != http.StatusForbidden {
		t.Fatalf("unknown subject: %d", code)
	}
}

func TestParseTakersCSV(t *testing.T) {
	in := "id,username,display_name,can_attempt,password\nemp-1,asha,Asha,true,pw\nemp-2,ravi,,0,\n"
	rows, err := ParseTakersCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 || rows[0].Password != "pw" || !*rows[0].CanAttempt || *rows[1].CanAttempt {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if _, err := ParseTakersCSV(strings.NewReader("username\nx\n")); err == nil {
		t.Fatalf("expected missing id column error")
	}
}
