package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mind-engage/assessment-engine/internal/session"
)

/* ---------------- In-memory fakes for the engine's collaborators ---------------- */

type fakeRepo struct {
	pools map[session.Section][]session.Question
	err   error
	calls int
}

func newFakeRepo(perSection int) *fakeRepo {
	r := &fakeRepo{pools: map[session.Section][]session.Question{}}
	for _, sec := range session.DefaultSections {
		r.pools[sec] = makePool(sec, perSection)
	}
	return r
}

func (r *fakeRepo) FetchPool(_ context.Context, sec session.Section) ([]session.Question, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.pools[sec], nil
}

func makePool(sec session.Section, n int) []session.Question {
	out := make([]session.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, session.Question{
			ID:      fmt.Sprintf("%s-%02d", sec, i),
			Section: sec,
			Prompt:  fmt.Sprintf("%s question %d", sec.DisplayName(), i),
			Choices: []session.Choice{
				{Label: session.OptionA, Text: "first"},
				{Label: session.OptionB, Text: "second"},
				{Label: session.OptionC, Text: "third"},
				{Label: session.OptionD, Text: "fourth"},
			},
			Correct: session.Options[i%4],
		})
	}
	return out
}

type fakeStore struct {
	mu       sync.Mutex
	failures int // number of leading Persist calls that fail; -1 fails forever
	received []session.AttemptRecord
}

var errStoreDown = errors.New("attempt store unavailable")

func (s *fakeStore) Persist(_ context.Context, rec session.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, rec)
	if s.failures < 0 {
		return errStoreDown
	}
	if s.failures > 0 {
		s.failures--
		return errStoreDown
	}
	return nil
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func wrongOption(o session.Option) session.Option {
	if o == session.OptionA {
		return session.OptionB
	}
	return session.OptionA
}
