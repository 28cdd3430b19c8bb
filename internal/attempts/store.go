package attempts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/assessment-engine/internal/db"
	"github.com/mind-engage/assessment-engine/internal/session"
	syncx "github.com/mind-engage/assessment-engine/internal/sync"
)

var ErrNotFound = errors.New("attempt not found")

// Store persists finished attempts and records an AttemptSubmitted event
// in the same transaction.
type Store struct {
	db     *sql.DB
	events *syncx.EventRepo
}

func NewStore(h *sql.DB, events *syncx.EventRepo) *Store {
	if events == nil {
		events = syncx.NewEventRepo("")
	}
	return &Store{db: h, events: events}
}

type submittedEvent struct {
	AttemptID string `json:"attempt_id"`
	SessionID string `json:"session_id"`
	TakerID   string `json:"taker_id"`
	Total     int    `json:"total"`
	Max       int    `json:"max"`
}

// Persist writes rec. Writing the same attempt id twice is a no-op, so a
// retry after an ambiguous failure cannot create a second row.
func (s *Store) Persist(ctx context.Context, rec session.AttemptRecord) error {
	if rec.ID == "" || rec.TakerID == "" {
		return errors.New("attempt id and taker id required")
	}
	scores, err := json.Marshal(rec.Scores.PerSection)
	if err != nil {
		return err
	}
	maxes, err := json.Marshal(rec.Scores.SectionMax)
	if err != nil {
		return err
	}
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO attempts
			(id, session_id, taker_id, scores_json, section_max_json, total_score, max_score, answers_json, completed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.SessionID, rec.TakerID, string(scores), string(maxes), rec.Scores.Total, rec.Scores.Max,
			string(answers), rec.CompletedAt.Unix())
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil
		}
		return s.events.Append(ctx, tx, syncx.TypeAttemptSubmitted, rec.ID, submittedEvent{
			AttemptID: rec.ID,
			SessionID: rec.SessionID,
			TakerID:   rec.TakerID,
			Total:     rec.Scores.Total,
			Max:       rec.Scores.Max,
		})
	})
}

const selectCols = `SELECT id, session_id, taker_id, scores_json, section_max_json, total_score, max_score, answers_json, completed_at FROM attempts`

func (s *Store) Get(ctx context.Context, id string) (session.AttemptRecord, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` WHERE id=$1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.AttemptRecord{}, ErrNotFound
	}
	return rec, err
}

type ListOpts struct {
	TakerID string // empty lists every taker
	Limit   int
	Offset  int
}

// List returns attempts newest first.
func (s *Store) List(ctx context.Context, opts ListOpts) ([]session.AttemptRecord, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	var (
		rows *sql.Rows
		err  error
	)
	if opts.TakerID != "" {
		rows, err = s.db.QueryContext(ctx, selectCols+` WHERE taker_id=$1 ORDER BY completed_at DESC, id LIMIT $2 OFFSET $3`,
			opts.TakerID, opts.Limit, opts.Offset)
	} else {
		rows, err = s.db.QueryContext(ctx, selectCols+` ORDER BY completed_at DESC, id LIMIT $1 OFFSET $2`,
			opts.Limit, opts.Offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []session.AttemptRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (session.AttemptRecord, error) {
	var (
		rec                          session.AttemptRecord
		scoresJSON, maxJSON, ansJSON string
		completed                    int64
	)
	if err := sc.Scan(&rec.ID, &rec.SessionID, &rec.TakerID, &scoresJSON, &maxJSON, &rec.Scores.Total, &rec.Scores.Max, &ansJSON, &completed); err != nil {
		return session.AttemptRecord{}, err
	}
	if err := json.Unmarshal([]byte(scoresJSON), &rec.Scores.PerSection); err != nil {
		return session.AttemptRecord{}, fmt.Errorf("attempt %s: scores: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(maxJSON), &rec.Scores.SectionMax); err != nil {
		return session.AttemptRecord{}, fmt.Errorf("attempt %s: section max: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(ansJSON), &rec.Answers); err != nil {
		return session.AttemptRecord{}, fmt.Errorf("attempt %s: answers: %w", rec.ID, err)
	}
	rec.CompletedAt = time.Unix(completed, 0).UTC()
	return rec, nil
}
