package session

import (
	"time"
)

// Section is one of the fixed assessment categories.
type Section string

const (
	SectionAptitude         Section = "aptitude"
	SectionProductKnowledge Section = "product_knowledge"
	SectionKRAKnowledge     Section = "kra_knowledge"
)

// DefaultSections is the declared order in which a taker sees the sections.
var DefaultSections = []Section{SectionAptitude, SectionProductKnowledge, SectionKRAKnowledge}

func (s Section) Valid() bool {
	switch s {
	case SectionAptitude, SectionProductKnowledge, SectionKRAKnowledge:
		return true
	}
	return false
}

func (s Section) DisplayName() string {
	switch s {
	case SectionAptitude:
		return "Aptitude"
	case SectionProductKnowledge:
		return "Product Knowledge"
	case SectionKRAKnowledge:
		return "KRA Knowledge"
	default:
		return string(s)
	}
}

// Option is a choice label, A through D.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

var Options = []Option{OptionA, OptionB, OptionC, OptionD}

func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

type Choice struct {
	Label Option `json:"label"`
	Text  string `json:"text"`
}

type Question struct {
	ID      string   `json:"id"`
	Section Section  `json:"section"`
	Prompt  string   `json:"prompt"`
	Choices []Choice `json:"choices"`
	Correct Option   `json:"correct,omitempty"`
}

// Public returns a copy safe to show to a taker (no answer key).
func (q Question) Public() Question {
	q.Correct = ""
	q.Choices = append([]Choice(nil), q.Choices...)
	return q
}

// QuestionSet is the ordered list drawn at session start. It is never
// mutated after construction.
type QuestionSet []Question

// Sections returns the distinct sections of the set in order of first appearance.
func (qs QuestionSet) Sections() []Section {
	seen := map[Section]bool{}
	var out []Section
	for _, q := range qs {
		if !seen[q.Section] {
			seen[q.Section] = true
			out = append(out, q.Section)
		}
	}
	return out
}

type Answer struct {
	QuestionID string  `json:"questionId"`
	Option     Option  `json:"selectedOption"`
	Section    Section `json:"section"`
}

// Phase is the lifecycle stage of a session.
type Phase string

const (
	PhaseLoading      Phase = "loading"
	PhaseActive       Phase = "active"
	PhaseSubmitting   Phase = "submitting"
	PhaseSubmitFailed Phase = "submit_failed" // recoverable; resubmission allowed
	PhaseCompleted    Phase = "completed"     // terminal success
	PhaseFailed       Phase = "failed"        // terminal failure, retries exhausted
)

func (p Phase) Terminal() bool { return p == PhaseCompleted || p == PhaseFailed }

type ScoreResult struct {
	PerSection map[Section]int `json:"per_section"`
	SectionMax map[Section]int `json:"section_max"` // questions drawn per section
	Total      int             `json:"total"`
	Max        int             `json:"max"`
}

// Percentage is Total/Max rounded to the nearest whole percent.
func (r ScoreResult) Percentage() int {
	if r.Max <= 0 {
		return 0
	}
	return (r.Total*100 + r.Max/2) / r.Max
}

func (r ScoreResult) clone() ScoreResult {
	out := r
	out.PerSection = copyCounts(r.PerSection)
	out.SectionMax = copyCounts(r.SectionMax)
	return out
}

func copyCounts(m map[Section]int) map[Section]int {
	if m == nil {
		return nil
	}
	out := make(map[Section]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AttemptRecord is the write-once result of one finished session.
type AttemptRecord struct {
	ID          string      `json:"id"`
	SessionID   string      `json:"session_id"`
	TakerID     string      `json:"taker_id"`
	Scores      ScoreResult `json:"scores"`
	Answers     []Answer    `json:"answers"`
	CompletedAt time.Time   `json:"completed_at"`
}

// clone copies the record so callers cannot reach the frozen snapshot.
func (a AttemptRecord) clone() AttemptRecord {
	out := a
	out.Scores = a.Scores.clone()
	if a.Answers != nil {
		out.Answers = append([]Answer(nil), a.Answers...)
	}
	return out
}

// Taker is the authenticated identity a session is bound to.
type Taker struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CanAttempt  bool   `json:"can_attempt"`
}
