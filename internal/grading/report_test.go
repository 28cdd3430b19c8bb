package grading

import (
	"testing"

	"github.com/mind-engage/assessment-engine/internal/session"
)

func TestBandFor(t *testing.T) {
	cases := map[int]string{100: "A+", 90: "A+", 89: "A", 80: "A", 79: "B", 70: "B", 60: "C", 50: "D", 49: "F", 0: "F"}
	for pct, want := range cases {
		if got := BandFor(pct).Grade; got != want {
			t.Errorf("BandFor(%d) = %s, want %s", pct, got, want)
		}
	}
}

func TestPerformanceFor(t *testing.T) {
	if PerformanceFor(80) != PerformanceExcellent || PerformanceFor(79) != PerformanceGood ||
		PerformanceFor(60) != PerformanceGood || PerformanceFor(59) != PerformanceNeedsImprovement {
		t.Fatalf("performance thresholds wrong")
	}
}

func TestBuild(t *testing.T) {
	r := session.ScoreResult{
		PerSection: map[session.Section]int{
			session.SectionAptitude:         8,
			session.SectionProductKnowledge: 5,
			session.SectionKRAKnowledge:     2,
		},
		SectionMax: map[session.Section]int{
			session.SectionAptitude:         10,
			session.SectionProductKnowledge: 10,
			session.SectionKRAKnowledge:     10,
		},
		Total: 15,
		Max:   30,
	}
	rep := Build(r, session.DefaultSections)
	if rep.Percentage != 50 || rep.Grade != "D" || rep.Performance != PerformanceNeedsImprovement {
		t.Fatalf("unexpected headline: %+v", rep)
	}
	if len(rep.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(rep.Sections))
	}
	if s := rep.Sections[0]; s.Section != session.SectionAptitude || s.Percentage != 80 || s.Name != "Aptitude" {
		t.Fatalf("unexpected first section: %+v", s)
	}
	if s := rep.Sections[2]; s.Section != session.SectionKRAKnowledge || s.Score != 2 || s.Max != 10 {
		t.Fatalf("unexpected last section: %+v", s)
	}
}

func TestBuild_OrderFollowsArgument(t *testing.T) {
	r := session.ScoreResult{
		PerSection: map[session.Section]int{session.SectionKRAKnowledge: 1, session.SectionAptitude: 2},
		SectionMax: map[session.Section]int{session.SectionKRAKnowledge: 2, session.SectionAptitude: 2},
		Total:      3,
		Max:        4,
	}
	rep := Build(r, []session.Section{session.SectionKRAKnowledge})
	if len(rep.Sections) != 2 || rep.Sections[0].Section != session.SectionKRAKnowledge || rep.Sections[1].Section != session.SectionAptitude {
		t.Fatalf("unexpected order: %+v", rep.Sections)
	}
	if rep.Percentage != 75 || rep.Grade != "C" {
		t.Fatalf("unexpected grade: %+v", rep)
	}
}

func TestBuild_SectionMaxComesFromRecord(t *testing.T) {
	// drawn with 5 per section, graded long after the configured count changed
	r := session.ScoreResult{
		PerSection: map[session.Section]int{session.SectionAptitude: 5, session.SectionKRAKnowledge: 1},
		SectionMax: map[session.Section]int{session.SectionAptitude: 5, session.SectionKRAKnowledge: 5},
		Total:      6,
		Max:        10,
	}
	rep := Build(r, session.DefaultSections)
	if len(rep.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %+v", rep.Sections)
	}
	if s := rep.Sections[0]; s.Max != 5 || s.Percentage != 100 {
		t.Fatalf("aptitude should be 5/5, got %+v", s)
	}
	if s := rep.Sections[1]; s.Max != 5 || s.Percentage != 20 {
		t.Fatalf("kra should be 1/5, got %+v", s)
	}
}

func TestBuild_LegacyRecordSplitsMax(t *testing.T) {
	r := session.ScoreResult{
		PerSection: map[session.Section]int{session.SectionAptitude: 3, session.SectionProductKnowledge: 6},
		Total:      9,
		Max:        12,
	}
	rep := Build(r, session.DefaultSections)
	for _, s := range rep.Sections {
		if s.Max != 6 {
			t.Fatalf("expected an even split of 6, got %+v", s)
		}
	}
}
