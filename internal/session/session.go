package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotAtLastQuestion is returned when a taker asks to submit before
// reaching the final question.
var ErrNotAtLastQuestion = errors.New("session: submit is only offered on the last question")

// Trigger names what started submission.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerExpired Trigger = "expired"
)

// Outcome describes one persist attempt.
type Outcome struct {
	Trigger Trigger
	Attempt int
	Phase   Phase
	Err     error
}

// Params configures Start.
type Params struct {
	ID                string
	Taker             *Taker
	Repo              QuestionRepository
	Store             AttemptStore
	Sections          []Section
	PerSection        int
	DurationSeconds   int
	MaxSubmitAttempts int // 0 means unlimited
	PersistTimeout    time.Duration

	Rand     *rand.Rand
	Clock    *Clock
	Now      func() time.Time
	OnResult func(*Session, Outcome)
}

// Session is one taker's run through an assessment. All mutation goes
// through its mutex; the clock only reaches in through the expiry callback.
type Session struct {
	id         string
	taker      Taker
	questions  QuestionSet
	store      AttemptStore
	clock      *Clock
	now        func() time.Time
	maxSubmits int
	timeout    time.Duration
	onResult   func(*Session, Outcome)
	startedAt  time.Time

	mu         sync.Mutex
	phase      Phase
	ledger     *Ledger
	nav        *Navigator
	record     *AttemptRecord
	trigger    Trigger
	submits    int
	lastErr    error
	finishedAt time.Time
}

// Start checks the taker's permission, draws the question set and starts
// the countdown. Any failure is a *StartError.
func Start(ctx context.Context, p Params) (*Session, error) {
	if p.Taker == nil || p.Taker.ID == "" {
		return nil, startErr(ReasonPermissionDenied, errors.New("no authenticated taker"))
	}
	if !p.Taker.CanAttempt {
		return nil, startErr(ReasonPermissionDenied, fmt.Errorf("taker %s may not attempt", p.Taker.ID))
	}
	if p.DurationSeconds <= 0 {
		return nil, startErr(ReasonInvalidConfig, fmt.Errorf("duration must be positive, got %d", p.DurationSeconds))
	}
	if p.Store == nil {
		return nil, startErr(ReasonInvalidConfig, errors.New("no attempt store"))
	}

	s := &Session{
		id:         p.ID,
		taker:      *p.Taker,
		store:      p.Store,
		clock:      p.Clock,
		now:        p.Now,
		maxSubmits: p.MaxSubmitAttempts,
		timeout:    p.PersistTimeout,
		onResult:   p.OnResult,
		phase:      PhaseLoading,
		ledger:     NewLedger(),
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.clock == nil {
		s.clock = NewClock()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.timeout <= 0 {
		s.timeout = 10 * time.Second
	}

	qs, err := Sample(ctx, p.Repo, p.Sections, p.PerSection, p.Rand)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.questions = qs
	s.nav = NewNavigator(len(qs))
	s.phase = PhaseActive
	s.startedAt = s.now()
	s.mu.Unlock()

	if err := s.clock.Arm(p.DurationSeconds, s.expire); err != nil {
		return nil, startErr(ReasonInvalidConfig, err)
	}
	return s, nil
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Taker() Taker         { return s.taker }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) RemainingTime() int   { return s.clock.Remaining() }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Questions returns the drawn set. Callers must not modify it.
func (s *Session) Questions() QuestionSet { return s.questions }

func (s *Session) CurrentQuestion() Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.nav.CurrentIndex()]
}

// SelectAnswer records opt for the current question.
func (s *Session) SelectAnswer(opt Option) error {
	if !opt.Valid() {
		return ErrInvalidOption
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive {
		return ErrMutationRejected
	}
	q := s.questions[s.nav.CurrentIndex()]
	s.ledger.Upsert(q.ID, opt, q.Section)
	return nil
}

// SelectedAnswer returns the recorded option for the current question.
func (s *Session) SelectedAnswer() (Option, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(s.questions[s.nav.CurrentIndex()].ID)
}

func (s *Session) GoNext() (bool, error) {
	return s.move(func(n *Navigator) bool { return n.Next() })
}

func (s *Session) GoPrevious() (bool, error) {
	return s.move(func(n *Navigator) bool { return n.Previous() })
}

func (s *Session) JumpTo(i int) (bool, error) {
	return s.move(func(n *Navigator) bool { return n.JumpTo(i) })
}

func (s *Session) move(fn func(*Navigator) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive {
		return false, ErrMutationRejected
	}
	return fn(s.nav), nil
}

// RequestSubmit is the taker's explicit submit. From the active phase it is
// only accepted on the last question; after a failed store write it retries
// with the frozen record.
func (s *Session) RequestSubmit(ctx context.Context) (ScoreResult, error) {
	return s.submit(ctx, TriggerManual)
}

func (s *Session) expire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.submit(ctx, TriggerExpired)
}

func (s *Session) submit(ctx context.Context, trig Trigger) (ScoreResult, error) {
	s.mu.Lock()
	switch s.phase {
	case PhaseCompleted:
		res := s.record.Scores.clone()
		s.mu.Unlock()
		return res, nil
	case PhaseSubmitting:
		s.mu.Unlock()
		return ScoreResult{}, ErrSubmitInProgress
	case PhaseFailed:
		err := &SubmissionError{Attempt: s.submits, Retryable: false, Err: s.lastErr}
		s.mu.Unlock()
		return ScoreResult{}, err
	case PhaseActive:
		if trig == TriggerManual && !s.nav.AtLast() {
			s.mu.Unlock()
			return ScoreResult{}, ErrNotAtLastQuestion
		}
		s.clock.Stop()
		s.freeze(trig)
	case PhaseSubmitFailed:
		// retry with the frozen record
	default:
		s.mu.Unlock()
		return ScoreResult{}, ErrMutationRejected
	}
	s.phase = PhaseSubmitting
	s.submits++
	attempt := s.submits
	rec := s.record.clone()
	s.mu.Unlock()

	err := s.store.Persist(ctx, rec)

	s.mu.Lock()
	out := Outcome{Trigger: s.trigger, Attempt: attempt}
	var res ScoreResult
	if err == nil {
		res = s.record.Scores.clone()
		s.phase = PhaseCompleted
		s.lastErr = nil
		s.finishedAt = s.now()
	} else {
		s.lastErr = err
		if s.maxSubmits <= 0 || attempt < s.maxSubmits {
			s.phase = PhaseSubmitFailed
		} else {
			s.phase = PhaseFailed
			s.finishedAt = s.now()
		}
	}
	out.Phase, out.Err = s.phase, err
	hook := s.onResult
	s.mu.Unlock()

	if hook != nil {
		hook(s, out)
	}
	if err != nil {
		return ScoreResult{}, &SubmissionError{Attempt: attempt, Retryable: out.Phase == PhaseSubmitFailed, Err: err}
	}
	return res, nil
}

// freeze takes the scoring snapshot. Caller holds s.mu.
func (s *Session) freeze(trig Trigger) {
	frozen := s.ledger.clone()
	s.trigger = trig
	s.record = &AttemptRecord{
		ID:          uuid.NewString(),
		SessionID:   s.id,
		TakerID:     s.taker.ID,
		Scores:      Score(s.questions, frozen),
		Answers:     frozen.All(),
		CompletedAt: s.now().UTC(),
	}
}

// Result returns the persisted score once the session completed.
func (s *Session) Result() (ScoreResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCompleted {
		return ScoreResult{}, false
	}
	return s.record.Scores.clone(), true
}

// Record returns the frozen attempt record, if submission has begun.
func (s *Session) Record() (AttemptRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return AttemptRecord{}, false
	}
	return s.record.clone(), true
}

// FinishedAt is the time the session reached a terminal phase.
func (s *Session) FinishedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt, s.phase.Terminal()
}

// Close stops the clock without submitting. Used when a session is discarded.
func (s *Session) Close() { s.clock.Stop() }

// View is what the presentation layer renders.
type View struct {
	SessionID     string       `json:"session_id"`
	Phase         Phase        `json:"phase"`
	Index         int          `json:"index"`
	Total         int          `json:"total"`
	Progress      float64      `json:"progress"`
	SectionName   string       `json:"section_name"`
	Question      Question     `json:"question"`
	Selected      Option       `json:"selected,omitempty"`
	Answered      int          `json:"answered"`
	Remaining     int          `json:"remaining_sec"`
	RemainingText string       `json:"remaining_text"`
	LowTime       bool         `json:"low_time"`
	CanSubmit     bool         `json:"can_submit"`
	Trigger       Trigger      `json:"trigger,omitempty"`
	Score         *ScoreResult `json:"score,omitempty"`
	Retryable     bool         `json:"retryable,omitempty"`
	Error         string       `json:"error,omitempty"`
}

func (s *Session) Snapshot() View {
	remaining := s.clock.Remaining()

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.questions[s.nav.CurrentIndex()]
	v := View{
		SessionID:     s.id,
		Phase:         s.phase,
		Index:         s.nav.CurrentIndex(),
		Total:         s.nav.Len(),
		Progress:      s.nav.ProgressFraction(),
		SectionName:   q.Section.DisplayName(),
		Question:      q.Public(),
		Answered:      s.ledger.Count(),
		Remaining:     remaining,
		RemainingText: FormatRemaining(remaining),
		LowTime:       LowTime(remaining),
		Trigger:       s.trigger,
	}
	v.Selected, _ = s.ledger.Get(q.ID)
	switch s.phase {
	case PhaseActive:
		v.CanSubmit = s.nav.AtLast()
	case PhaseSubmitFailed:
		v.CanSubmit, v.Retryable = true, true
	case PhaseCompleted:
		sc := s.record.Scores.clone()
		v.Score = &sc
	}
	if s.lastErr != nil {
		v.Error = s.lastErr.Error()
	}
	return v
}
