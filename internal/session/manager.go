package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

type ManagerConfig struct {
	MaxSubmitAttempts int
	PersistTimeout    time.Duration
	// Retention is how long a terminal session stays readable before it is reaped.
	Retention time.Duration
	// AbandonAfter reaps sessions stuck in submit_failed this long after freezing.
	AbandonAfter time.Duration
}

type ManagerOption func(*Manager)

// WithClockOptions applies opts to every session clock the manager creates.
func WithClockOptions(opts ...ClockOption) ManagerOption {
	return func(m *Manager) { m.clockOpts = append(m.clockOpts, opts...) }
}

func WithNow(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager owns live sessions keyed by handle. Sessions never share state
// with one another; the registry is the only shared structure.
type Manager struct {
	repo      QuestionRepository
	store     AttemptStore
	cfg       ManagerConfig
	now       func() time.Time
	clockOpts []ClockOption

	mu       sync.RWMutex
	sessions map[string]*Session
	byTaker  map[string]string

	sched *gocron.Scheduler
}

func NewManager(repo QuestionRepository, store AttemptStore, cfg ManagerConfig, opts ...ManagerOption) *Manager {
	if cfg.Retention <= 0 {
		cfg.Retention = 15 * time.Minute
	}
	if cfg.AbandonAfter <= 0 {
		cfg.AbandonAfter = 24 * time.Hour
	}
	m := &Manager{
		repo:     repo,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		sessions: map[string]*Session{},
		byTaker:  map[string]string{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// StartSession begins a session for taker. A taker may hold only one
// non-terminal session at a time.
func (m *Manager) StartSession(ctx context.Context, taker *Taker, sections []Section, perSection, durationSeconds int) (*Session, error) {
	if taker != nil && taker.ID != "" {
		m.mu.RLock()
		if id, ok := m.byTaker[taker.ID]; ok {
			if s, ok := m.sessions[id]; ok && !s.Phase().Terminal() {
				m.mu.RUnlock()
				return nil, startErr(ReasonSessionActive, fmt.Errorf("taker %s already has session %s", taker.ID, id))
			}
		}
		m.mu.RUnlock()
	}

	s, err := Start(ctx, Params{
		ID:                uuid.NewString(),
		Taker:             taker,
		Repo:              m.repo,
		Store:             m.store,
		Sections:          sections,
		PerSection:        perSection,
		DurationSeconds:   durationSeconds,
		MaxSubmitAttempts: m.cfg.MaxSubmitAttempts,
		PersistTimeout:    m.cfg.PersistTimeout,
		Clock:             NewClock(m.clockOpts...),
		Now:               m.now,
		OnResult:          m.logOutcome,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if id, ok := m.byTaker[taker.ID]; ok {
		if prev, ok := m.sessions[id]; ok && !prev.Phase().Terminal() {
			m.mu.Unlock()
			s.Close()
			return nil, startErr(ReasonSessionActive, fmt.Errorf("taker %s already has session %s", taker.ID, id))
		}
	}
	m.sessions[s.ID()] = s
	m.byTaker[taker.ID] = s.ID()
	m.mu.Unlock()

	log.Printf("session %s started (taker=%s questions=%d duration=%ds)", s.ID(), taker.ID, len(s.Questions()), durationSeconds)
	return s, nil
}

// Get returns the session with id if it belongs to takerID.
func (m *Manager) Get(id, takerID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Taker().ID != takerID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap discards terminal sessions past retention and abandoned failed
// submissions. It returns the number removed.
func (m *Manager) Reap() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if !m.expired(s, now) {
			continue
		}
		s.Close()
		delete(m.sessions, id)
		if m.byTaker[s.Taker().ID] == id {
			delete(m.byTaker, s.Taker().ID)
		}
		n++
	}
	return n
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	if at, done := s.FinishedAt(); done {
		return now.Sub(at) >= m.cfg.Retention
	}
	if s.Phase() != PhaseSubmitFailed {
		return false
	}
	rec, ok := s.Record()
	return ok && now.Sub(rec.CompletedAt) >= m.cfg.AbandonAfter
}

// StartReaper runs Reap on a schedule until StopReaper is called.
func (m *Manager) StartReaper(every time.Duration) error {
	sched := gocron.NewScheduler(time.UTC)
	_, err := sched.Every(every).Do(func() {
		if n := m.Reap(); n > 0 {
			log.Printf("reaped %d finished sessions", n)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}
	sched.StartAsync()
	m.sched = sched
	return nil
}

func (m *Manager) StopReaper() {
	if m.sched != nil {
		m.sched.Stop()
	}
}

func (m *Manager) logOutcome(s *Session, out Outcome) {
	if out.Err != nil {
		log.Printf("session %s submit attempt %d (%s) failed, phase=%s: %v", s.ID(), out.Attempt, out.Trigger, out.Phase, out.Err)
		return
	}
	log.Printf("session %s submitted (%s, taker=%s)", s.ID(), out.Trigger, s.Taker().ID)
}
