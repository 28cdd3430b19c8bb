package syncx

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mind-engage/assessment-engine/internal/db"
)

func TestEventRepo_AppendAndSince(t *testing.T) {
	ctx := context.Background()
	h, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer h.Close()

	r := NewEventRepo("")
	r.now = func() time.Time { return time.Unix(1700000000, 0) }
	for _, k := range []string{"a1", "a2", "a3"} {
		if err := r.Append(ctx, h, TypeAttemptSubmitted, k, map[string]string{"attempt_id": k}); err != nil {
			t.Fatalf("append %s: %v", k, err)
		}
	}

	all, err := r.Since(ctx, h, 0, 0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(all) != 3 || all[0].Key != "a1" || all[0].SiteID != "local" || all[0].CreatedAt != 1700000000 {
		t.Fatalf("unexpected events: %+v", all)
	}
	if all[2].DataJSON != `{"attempt_id":"a3"}` {
		t.Fatalf("unexpected payload %q", all[2].DataJSON)
	}

	rest, _ := r.Since(ctx, h, all[0].Seq, 1)
	if len(rest) != 1 || rest[0].Key != "a2" {
		t.Fatalf("paging after first: %+v", rest)
	}
}
