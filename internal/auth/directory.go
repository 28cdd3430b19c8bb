package auth

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/assessment-engine/internal/rbac"
	"github.com/mind-engage/assessment-engine/internal/session"
)

const bcryptCost = 12

// Directory is the takers table. It authenticates logins and resolves
// subjects to takers when a session starts.
type Directory struct {
	db   *sql.DB
	cost int
	now  func() time.Time
}

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db, cost: bcryptCost, now: time.Now}
}

func (d *Directory) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	var (
		p    Principal
		hash string
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT id, role, display_name, password_hash FROM takers WHERE username=$1`, username,
	).Scan(&p.Subject, &p.Role, &p.DisplayName, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return Principal{}, fmt.Errorf("lookup taker: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Principal{}, ErrInvalidCredentials
	}
	if p.DisplayName == "" {
		p.DisplayName = username
	}
	return p, nil
}

// CurrentTaker reads the taker fresh so a revoked can_attempt takes effect
// on the next session start.
func (d *Directory) CurrentTaker(ctx context.Context, id string) (*session.Taker, error) {
	var (
		t        session.Taker
		username string
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, can_attempt FROM takers WHERE id=$1`, id,
	).Scan(&t.ID, &username, &t.DisplayName, &t.CanAttempt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.DisplayName == "" {
		t.DisplayName = username
	}
	return &t, nil
}

// TakerRow is one entry of a bulk upsert.
type TakerRow struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`                  // usually "taker"
	CanAttempt  *bool  `json:"can_attempt,omitempty"` // nil keeps the stored value (true for new rows)
	Password    string `json:"password,omitempty"`
}

// Upsert creates or updates takers in one transaction. A password is
// required for new rows and optional for updates.
func (d *Directory) Upsert(ctx context.Context, rows []TakerRow) (inserted, updated int, err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := d.now().Unix()
	for _, r := range rows {
		r.ID = strings.TrimSpace(r.ID)
		r.Username = strings.TrimSpace(r.Username)
		if r.ID == "" || r.Username == "" {
			return inserted, updated, errors.New("id and username required")
		}
		if r.Role == "" {
			r.Role = rbac.RoleTaker
		}
		if r.Role != rbac.RoleTaker && r.Role != rbac.RoleAdmin {
			return inserted, updated, errors.New("invalid role: " + r.Role)
		}
		var phash string
		if r.Password != "" {
			b, e := bcrypt.GenerateFromPassword([]byte(r.Password), d.cost)
			if e != nil {
				return inserted, updated, e
			}
			phash = string(b)
		}

		var exists bool
		if err = tx.QueryRowContext(ctx, `SELECT 1 FROM takers WHERE id=$1`, r.ID).Scan(new(int)); err == nil {
			exists = true
		} else if !errors.Is(err, sql.ErrNoRows) {
			return inserted, updated, err
		}
		if exists {
			_, err = tx.ExecContext(ctx, `UPDATE takers SET username=$1, display_name=$2, role=$3 WHERE id=$4`,
				r.Username, r.DisplayName, r.Role, r.ID)
			if err == nil && phash != "" {
				_, err = tx.ExecContext(ctx, `UPDATE takers SET password_hash=$1 WHERE id=$2`, phash, r.ID)
			}
			if err == nil && r.CanAttempt != nil {
				_, err = tx.ExecContext(ctx, `UPDATE takers SET can_attempt=$1 WHERE id=$2`, *r.CanAttempt, r.ID)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
			continue
		}
		if phash == "" {
			return inserted, updated, errors.New("password required for new taker: " + r.Username)
		}
		can := true
		if r.CanAttempt != nil {
			can = *r.CanAttempt
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO takers (id, username, display_name, password_hash, role, can_attempt, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			r.ID, r.Username, r.DisplayName, phash, r.Role, can, now)
		if err != nil {
			return inserted, updated, err
		}
		inserted++
	}
	return
}

// SetCanAttempt flips the eligibility flag for one taker.
func (d *Directory) SetCanAttempt(ctx context.Context, id string, can bool) error {
	res, err := d.db.ExecContext(ctx, `UPDATE takers SET can_attempt=$1 WHERE id=$2`, can, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ParseTakersCSV reads rows with columns id, username and optionally
// display_name, role, can_attempt, password.
func ParseTakersCSV(r io.Reader) ([]TakerRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"id", "username"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	get := func(rec []string, k string) string {
		if i, ok := idx[k]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	var rows []TakerRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := TakerRow{
			ID:          get(rec, "id"),
			Username:    get(rec, "username"),
			DisplayName: get(rec, "display_name"),
			Role:        strings.ToLower(get(rec, "role")),
			Password:    get(rec, "password"),
		}
		if v := get(rec, "can_attempt"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("row %s: can_attempt: %w", row.ID, err)
			}
			row.CanAttempt = &b
		}
		rows = append(rows, row)
	}
	return rows, nil
}
