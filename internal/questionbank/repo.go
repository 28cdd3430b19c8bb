package questionbank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/assessment-engine/internal/db"
	"github.com/mind-engage/assessment-engine/internal/session"
)

// Repository serves question pools from the questions table.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRepository(h *sql.DB, driver db.Driver) *Repository {
	return &Repository{db: sqlx.NewDb(h, driver.SQLDriverName()), now: time.Now}
}

type questionRow struct {
	ID      string `db:"id"`
	Section string `db:"section"`
	Text    string `db:"question_text"`
	OptionA string `db:"option_a"`
	OptionB string `db:"option_b"`
	OptionC string `db:"option_c"`
	OptionD string `db:"option_d"`
	Correct string `db:"correct_option"`
}

func (r questionRow) toQuestion() session.Question {
	return session.Question{
		ID:      r.ID,
		Section: session.Section(r.Section),
		Prompt:  r.Text,
		Choices: []session.Choice{
			{Label: session.OptionA, Text: r.OptionA},
			{Label: session.OptionB, Text: r.OptionB},
			{Label: session.OptionC, Text: r.OptionC},
			{Label: session.OptionD, Text: r.OptionD},
		},
		Correct: session.Option(strings.ToUpper(strings.TrimSpace(r.Correct))),
	}
}

// FetchPool returns every question stored for section.
func (r *Repository) FetchPool(ctx context.Context, section session.Section) ([]session.Question, error) {
	var rows []questionRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, section, question_text, option_a, option_b, option_c, option_d, correct_option
		FROM questions WHERE section=$1 ORDER BY id`, string(section))
	if err != nil {
		return nil, fmt.Errorf("fetch %s pool: %w", section, err)
	}
	out := make([]session.Question, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toQuestion())
	}
	return out, nil
}

// Counts reports how many questions each section holds.
func (r *Repository) Counts(ctx context.Context) (map[session.Section]int, error) {
	var rows []struct {
		Section string `db:"section"`
		N       int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT section, COUNT(*) AS n FROM questions GROUP BY section`); err != nil {
		return nil, err
	}
	out := map[session.Section]int{}
	for _, row := range rows {
		out[session.Section(row.Section)] = row.N
	}
	return out, nil
}

// Upsert writes qs in one transaction, replacing questions whose id already exists.
func (r *Repository) Upsert(ctx context.Context, qs []session.Question) (created, updated int, err error) {
	for _, q := range qs {
		if err := Validate(q); err != nil {
			return 0, 0, err
		}
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now().Unix()
	for _, q := range qs {
		var n int
		if err = tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM questions WHERE id=$1`, q.ID); err != nil {
			return 0, 0, err
		}
		text := choiceTexts(q)
		if n == 0 {
			_, err = tx.ExecContext(ctx, `INSERT INTO questions
				(id, section, question_text, option_a, option_b, option_c, option_d, correct_option, created_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				q.ID, string(q.Section), q.Prompt, text[0], text[1], text[2], text[3], string(q.Correct), now)
			created++
		} else {
			_, err = tx.ExecContext(ctx, `UPDATE questions SET section=$1, question_text=$2,
				option_a=$3, option_b=$4, option_c=$5, option_d=$6, correct_option=$7 WHERE id=$8`,
				string(q.Section), q.Prompt, text[0], text[1], text[2], text[3], string(q.Correct), q.ID)
			updated++
		}
		if err != nil {
			return 0, 0, fmt.Errorf("question %s: %w", q.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func choiceTexts(q session.Question) [4]string {
	var out [4]string
	for _, c := range q.Choices {
		for i, o := range session.Options {
			if c.Label == o {
				out[i] = c.Text
			}
		}
	}
	return out
}

// Validate checks that q is complete enough to be served.
func Validate(q session.Question) error {
	switch {
	case strings.TrimSpace(q.ID) == "":
		return errors.New("id is required")
	case !q.Section.Valid():
		return fmt.Errorf("question %s: unknown section %q", q.ID, q.Section)
	case strings.TrimSpace(q.Prompt) == "":
		return fmt.Errorf("question %s: question text is required", q.ID)
	case !q.Correct.Valid():
		return fmt.Errorf("question %s: correct option must be A-D, got %q", q.ID, q.Correct)
	}
	text := choiceTexts(q)
	for i, t := range text {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("question %s: option %s is empty", q.ID, session.Options[i])
		}
	}
	return nil
}
