package session

import (
	"fmt"
	"sync"
	"time"
)

type clockState int

const (
	clockIdle clockState = iota
	clockRunning
	clockStopped
	clockExpired
)

// Clock counts down whole seconds and fires its expiry callback exactly
// once. Expiry and Stop are mutually exclusive: whichever happens first
// wins and the other is a no-op.
type Clock struct {
	mu        sync.Mutex
	state     clockState
	remaining int
	onExpire  func()

	interval time.Duration
	manual   bool
	quit     chan struct{}
}

type ClockOption func(*Clock)

// WithManualTicks disables the background ticker; the caller drives Tick.
func WithManualTicks() ClockOption { return func(c *Clock) { c.manual = true } }

// WithInterval overrides the one-second tick period.
func WithInterval(d time.Duration) ClockOption {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

func NewClock(opts ...ClockOption) *Clock {
	c := &Clock{interval: time.Second}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnExpire registers the callback fired when the countdown reaches zero.
func (c *Clock) OnExpire(fn func()) {
	c.mu.Lock()
	c.onExpire = fn
	c.mu.Unlock()
}

// Start begins the countdown. A clock can only be started once.
func (c *Clock) Start(durationSeconds int) error {
	return c.start(durationSeconds, false, nil)
}

// Arm installs fn as the expiry callback and starts the countdown in one
// step. It fails with ErrClockStarted, leaving the callback untouched, when
// the clock is already running or finished.
func (c *Clock) Arm(durationSeconds int, fn func()) error {
	return c.start(durationSeconds, true, fn)
}

func (c *Clock) start(durationSeconds int, setFn bool, fn func()) error {
	c.mu.Lock()
	if c.state != clockIdle {
		c.mu.Unlock()
		return ErrClockStarted
	}
	if setFn {
		c.onExpire = fn
	}
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	c.remaining = durationSeconds
	c.state = clockRunning
	if durationSeconds == 0 {
		c.state = clockExpired
		fn := c.onExpire
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
		return nil
	}
	if !c.manual {
		c.quit = make(chan struct{})
		go c.run(c.quit)
	}
	c.mu.Unlock()
	return nil
}

func (c *Clock) run(quit <-chan struct{}) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-quit:
			return
		case <-t.C:
			c.Tick()
			if c.done() {
				return
			}
		}
	}
}

func (c *Clock) done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != clockRunning
}

// Tick advances the countdown by one second and returns the remaining
// time. Ticks on a clock that is not running change nothing.
func (c *Clock) Tick() int {
	c.mu.Lock()
	if c.state != clockRunning {
		r := c.remaining
		c.mu.Unlock()
		return r
	}
	c.remaining--
	if c.remaining > 0 {
		r := c.remaining
		c.mu.Unlock()
		return r
	}
	c.remaining = 0
	c.state = clockExpired
	fn := c.onExpire
	c.mu.Unlock()

	// fired outside the lock: the callback may call Stop or Remaining.
	if fn != nil {
		fn()
	}
	return 0
}

// Stop halts a running clock. It reports whether this call did the
// stopping; it is false when the clock already expired or was stopped.
func (c *Clock) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != clockRunning {
		return false
	}
	c.state = clockStopped
	if c.quit != nil {
		close(c.quit)
		c.quit = nil
	}
	return true
}

func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Clock) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == clockExpired
}

// FormatRemaining renders seconds as MM:SS.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// LowTime reports whether the countdown is in its final five minutes.
func LowTime(seconds int) bool { return seconds <= 300 }
