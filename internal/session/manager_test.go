package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/assessment-engine/internal/session"
)

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestManager(store session.AttemptStore, now *fakeNow) *session.Manager {
	return session.NewManager(newFakeRepo(15), store, session.ManagerConfig{
		MaxSubmitAttempts: 3,
		Retention:         10 * time.Minute,
		AbandonAfter:      time.Hour,
	}, session.WithClockOptions(session.WithManualTicks()), session.WithNow(now.Now))
}

func TestManager_OneLiveSessionPerTaker(t *testing.T) {
	now := &fakeNow{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(&fakeStore{}, now)
	taker := &session.Taker{ID: "emp-1", CanAttempt: true}

	s, err := m.StartSession(context.Background(), taker, session.DefaultSections, 10, 1800)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = m.StartSession(context.Background(), taker, session.DefaultSections, 10, 1800)
	var se *session.StartError
	if !errors.As(err, &se) || se.Reason != session.ReasonSessionActive {
		t.Fatalf("expected session_active, got %v", err)
	}

	// another taker is unaffected
	if _, err := m.StartSession(context.Background(), &session.Taker{ID: "emp-2", CanAttempt: true}, session.DefaultSections, 10, 1800); err != nil {
		t.Fatalf("second taker: %v", err)
	}

	_, _ = s.JumpTo(29)
	if _, err := s.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := m.StartSession(context.Background(), taker, session.DefaultSections, 10, 1800); err != nil {
		t.Fatalf("a finished session should not block a new one: %v", err)
	}
}

func TestManager_GetChecksOwner(t *testing.T) {
	now := &fakeNow{t: time.Now()}
	m := newTestManager(&fakeStore{}, now)
	s, err := m.StartSession(context.Background(), &session.Taker{ID: "emp-1", CanAttempt: true}, session.DefaultSections, 5, 600)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got, err := m.Get(s.ID(), "emp-1"); err != nil || got != s {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := m.Get(s.ID(), "emp-2"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected not found for another taker, got %v", err)
	}
	if _, err := m.Get("missing", "emp-1"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestManager_ReapAfterRetention(t *testing.T) {
	now := &fakeNow{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(&fakeStore{}, now)

	done, _ := m.StartSession(context.Background(), &session.Taker{ID: "emp-1", CanAttempt: true}, session.DefaultSections, 5, 600)
	live, _ := m.StartSession(context.Background(), &session.Taker{ID: "emp-2", CanAttempt: true}, session.DefaultSections, 5, 600)
	_, _ = done.JumpTo(14)
	if _, err := done.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	now.Advance(5 * time.Minute)
	if n := m.Reap(); n != 0 {
		t.Fatalf("nothing should be reaped inside retention, got %d", n)
	}
	now.Advance(6 * time.Minute)
	if n := m.Reap(); n != 1 {
		t.Fatalf("expected the finished session to be reaped, got %d", n)
	}
	if _, err := m.Get(done.ID(), "emp-1"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("reaped session should be gone")
	}
	if _, err := m.Get(live.ID(), "emp-2"); err != nil {
		t.Fatalf("active session must survive reaping: %v", err)
	}
}

func TestManager_ReapsAbandonedFailedSubmission(t *testing.T) {
	now := &fakeNow{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(&fakeStore{failures: -1}, now)
	s, _ := m.StartSession(context.Background(), &session.Taker{ID: "emp-1", CanAttempt: true}, session.DefaultSections, 5, 600)
	_, _ = s.JumpTo(14)
	if _, err := s.RequestSubmit(context.Background()); err == nil {
		t.Fatalf("expected failing store")
	}
	if s.Phase() != session.PhaseSubmitFailed {
		t.Fatalf("expected submit_failed, got %s", s.Phase())
	}
	now.Advance(30 * time.Minute)
	if n := m.Reap(); n != 0 {
		t.Fatalf("retryable session reaped too early")
	}
	now.Advance(31 * time.Minute)
	if n := m.Reap(); n != 1 || m.Len() != 0 {
		t.Fatalf("expected abandoned session reaped, n=%d len=%d", n, m.Len())
	}
}

func TestManager_StartReaperSchedules(t *testing.T) {
	now := &fakeNow{t: time.Now()}
	m := newTestManager(&fakeStore{}, now)
	if err := m.StartReaper(time.Second); err != nil {
		t.Fatalf("start reaper: %v", err)
	}
	m.StopReaper()
}
