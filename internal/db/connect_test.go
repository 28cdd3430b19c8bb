package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mind-engage/assessment-engine/internal/db"
)

func openTemp(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestOpen_CreatesSchema(t *testing.T) {
	h := openTemp(t)
	for _, table := range []string{"takers", "questions", "attempts", "event_log"} {
		var name string
		err := h.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
	// idempotent
	if _, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "again.db")); err != nil {
		t.Fatalf("second open: %v", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := db.Open(context.Background(), db.Driver("oracle"), ""); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	h := openTemp(t)
	boom := errors.New("boom")
	err := db.WithTx(context.Background(), h, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO event_log (typ, event_key, data, created_at) VALUES ('T','k','{}',1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	var n int
	if err := h.QueryRow(`SELECT COUNT(*) FROM event_log`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rollback, found %d rows", n)
	}
}
