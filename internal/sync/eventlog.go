package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const TypeAttemptSubmitted = "AttemptSubmitted"

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Execer is satisfied by *sql.DB and *sql.Tx, so an event can be appended in
// the same transaction as the row it describes.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type EventRepo struct {
	siteID string
	now    func() time.Time
}

func NewEventRepo(siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{siteID: siteID, now: time.Now}
}

// Append writes an event with data marshalled as JSON.
func (r *EventRepo) Append(ctx context.Context, x Execer, typ, key string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = x.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, event_key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, string(buf), r.now().Unix())
	return err
}

// Since returns events with seq greater than after, oldest first.
func (r *EventRepo) Since(ctx context.Context, db *sql.DB, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT seq, site_id, typ, event_key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
