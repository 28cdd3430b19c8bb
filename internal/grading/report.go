package grading

import (
	"sort"

	"github.com/mind-engage/assessment-engine/internal/session"
)

// Band maps a percentage floor to a letter grade.
type Band struct {
	Grade string `json:"grade"`
	Min   int    `json:"min"`
}

// Bands is ordered from highest floor to lowest.
var Bands = []Band{
	{Grade: "A+", Min: 90},
	{Grade: "A", Min: 80},
	{Grade: "B", Min: 70},
	{Grade: "C", Min: 60},
	{Grade: "D", Min: 50},
	{Grade: "F", Min: 0},
}

func BandFor(percentage int) Band {
	for _, b := range Bands {
		if percentage >= b.Min {
			return b
		}
	}
	return Bands[len(Bands)-1]
}

type Performance string

const (
	PerformanceExcellent        Performance = "excellent"
	PerformanceGood             Performance = "good"
	PerformanceNeedsImprovement Performance = "needs_improvement"
)

func PerformanceFor(percentage int) Performance {
	switch {
	case percentage >= 80:
		return PerformanceExcellent
	case percentage >= 60:
		return PerformanceGood
	default:
		return PerformanceNeedsImprovement
	}
}

type SectionReport struct {
	Section    session.Section `json:"section"`
	Name       string          `json:"name"`
	Score      int             `json:"score"`
	Max        int             `json:"max"`
	Percentage int             `json:"percentage"`
}

// Report is the result view of a finished attempt.
type Report struct {
	Total       int             `json:"total"`
	Max         int             `json:"max"`
	Percentage  int             `json:"percentage"`
	Grade       string          `json:"grade"`
	Performance Performance     `json:"performance"`
	Sections    []SectionReport `json:"sections"`
}

// Build grades r. Sections are listed in order, then any the record holds
// that order does not name. Each section's maximum comes from the record.
func Build(r session.ScoreResult, order []session.Section) Report {
	pct := r.Percentage()
	rep := Report{
		Total:       r.Total,
		Max:         r.Max,
		Percentage:  pct,
		Grade:       BandFor(pct).Grade,
		Performance: PerformanceFor(pct),
	}
	seen := map[session.Section]bool{}
	add := func(sec session.Section) {
		score, ok := r.PerSection[sec]
		if !ok || seen[sec] {
			return
		}
		seen[sec] = true
		sr := session.ScoreResult{Total: score, Max: sectionMax(r, sec)}
		rep.Sections = append(rep.Sections, SectionReport{
			Section:    sec,
			Name:       sec.DisplayName(),
			Score:      score,
			Max:        sr.Max,
			Percentage: sr.Percentage(),
		})
	}
	for _, sec := range order {
		add(sec)
	}
	for _, sec := range session.DefaultSections {
		add(sec)
	}
	rest := make([]session.Section, 0, len(r.PerSection))
	for sec := range r.PerSection {
		if !seen[sec] {
			rest = append(rest, sec)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, sec := range rest {
		add(sec)
	}
	return rep
}

// sectionMax reads the drawn count for sec. Records written before counts
// were stored split Max evenly across their sections.
func sectionMax(r session.ScoreResult, sec session.Section) int {
	if n, ok := r.SectionMax[sec]; ok {
		return n
	}
	if len(r.SectionMax) == 0 && len(r.PerSection) > 0 {
		return r.Max / len(r.PerSection)
	}
	return 0
}
