package session

// AnswerLookup is the read side of a ledger, all the scorer needs.
type AnswerLookup interface {
	Get(questionID string) (Option, bool)
}

// Ledger maps question id to the taker's latest answer. There is no removal:
// an answer can be overwritten but never cleared.
type Ledger struct {
	order   []string
	answers map[string]Answer
}

func NewLedger() *Ledger {
	return &Ledger{answers: map[string]Answer{}}
}

// Upsert records opt for questionID, replacing any earlier answer. A
// replaced answer moves to the end of the insertion order.
func (l *Ledger) Upsert(questionID string, opt Option, sec Section) {
	if _, ok := l.answers[questionID]; ok {
		for i, id := range l.order {
			if id == questionID {
				l.order = append(l.order[:i], l.order[i+1:]...)
				break
			}
		}
	}
	l.order = append(l.order, questionID)
	l.answers[questionID] = Answer{QuestionID: questionID, Option: opt, Section: sec}
}

func (l *Ledger) Get(questionID string) (Option, bool) {
	a, ok := l.answers[questionID]
	if !ok {
		return "", false
	}
	return a.Option, true
}

func (l *Ledger) Count() int { return len(l.answers) }

// All returns the answers in insertion-then-replacement order.
func (l *Ledger) All() []Answer {
	out := make([]Answer, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.answers[id])
	}
	return out
}

// clone is used to freeze the ledger at submission.
func (l *Ledger) clone() *Ledger {
	c := &Ledger{
		order:   append([]string(nil), l.order...),
		answers: make(map[string]Answer, len(l.answers)),
	}
	for k, v := range l.answers {
		c.answers[k] = v
	}
	return c
}
