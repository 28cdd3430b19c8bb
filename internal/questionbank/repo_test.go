package questionbank

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mind-engage/assessment-engine/internal/db"
	"github.com/mind-engage/assessment-engine/internal/session"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "qb.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return NewRepository(h, db.DriverSQLite)
}

func question(id string, sec session.Section, correct session.Option) session.Question {
	return build(id, string(sec), "prompt "+id, [4]string{"a", "b", "c", "d"}, string(correct))
}

func TestRepository_UpsertAndFetch(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	created, updated, err := repo.Upsert(ctx, []session.Question{
		question("apt-2", session.SectionAptitude, session.OptionA),
		question("apt-1", session.SectionAptitude, session.OptionB),
		question("pk-1", session.SectionProductKnowledge, session.OptionC),
	})
	if err != nil || created != 3 || updated != 0 {
		t.Fatalf("upsert: created=%d updated=%d err=%v", created, updated, err)
	}

	pool, err := repo.FetchPool(ctx, session.SectionAptitude)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(pool) != 2 || pool[0].ID != "apt-1" || pool[0].Correct != session.OptionB {
		t.Fatalf("unexpected pool: %+v", pool)
	}
	if len(pool[0].Choices) != 4 || pool[0].Choices[3].Label != session.OptionD {
		t.Fatalf("choices not rebuilt: %+v", pool[0].Choices)
	}

	q := question("apt-1", session.SectionAptitude, session.OptionD)
	q.Prompt = "rewritten"
	created, updated, err = repo.Upsert(ctx, []session.Question{q})
	if err != nil || created != 0 || updated != 1 {
		t.Fatalf("second upsert: created=%d updated=%d err=%v", created, updated, err)
	}
	pool, _ = repo.FetchPool(ctx, session.SectionAptitude)
	if pool[0].Prompt != "rewritten" || pool[0].Correct != session.OptionD {
		t.Fatalf("update not applied: %+v", pool[0])
	}

	counts, err := repo.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[session.SectionAptitude] != 2 || counts[session.SectionProductKnowledge] != 1 || counts[session.SectionKRAKnowledge] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestRepository_UpsertRejectsInvalid(t *testing.T) {
	repo := newRepo(t)
	bad := question("x", session.SectionAptitude, session.OptionA)
	bad.Choices[2].Text = ""
	if _, _, err := repo.Upsert(context.Background(), []session.Question{bad}); err == nil {
		t.Fatalf("expected validation error")
	}
	pool, _ := repo.FetchPool(context.Background(), session.SectionAptitude)
	if len(pool) != 0 {
		t.Fatalf("nothing should be stored, got %d", len(pool))
	}
}

func TestImporter_ImportCSV(t *testing.T) {
	repo := newRepo(t)
	im := NewImporter(repo)
	in := header +
		"apt-1,aptitude,Q1,a,b,c,d,A\n" +
		"apt-2,aptitude,Q2,a,b,c,d,B\n" +
		"bad,aptitude,Q3,a,b,c,d,Z\n"
	res, err := im.Import(context.Background(), strings.NewReader(in), FormatCSV)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 2 || res.Skipped != 1 || res.Processed != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	pool, _ := repo.FetchPool(context.Background(), session.SectionAptitude)
	if len(pool) != 2 {
		t.Fatalf("expected 2 stored, got %d", len(pool))
	}
}
