// Package timeoutstream implements an inactivity watchdog over a
// streaming byte producer, grounded in the idle-timer bookkeeping of
// starsinc1708-TorrX's reader dormancy registry: a lastAccess
// timestamp guarded by a mutex, and a single-shot timer armed and
// rearmed on activity.
package timeoutstream

import (
	"sync"
	"time"
)

// DefaultTimeout is used when a TimeoutStream is constructed with a
// zero or negative timeout.
const DefaultTimeout = 5 * time.Second

// TimeoutStream observes writes/chunks flowing through an upstream
// byte producer. It fires Timeout() exactly once if no activity is
// observed for the configured duration before the stream ends.
type TimeoutStream struct {
	timeout time.Duration

	mu        sync.Mutex
	base      time.Time
	attached  bool
	ended     bool
	fired     bool
	timer     *time.Timer
	timeoutCh chan struct{}
	endCh     chan struct{}
}

// New creates a TimeoutStream with the given inactivity timeout. A
// non-positive duration is replaced with DefaultTimeout.
func New(timeout time.Duration) *TimeoutStream {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TimeoutStream{
		timeout:   timeout,
		timeoutCh: make(chan struct{}),
		endCh:     make(chan struct{}),
	}
}

// Attach arms the watchdog against its upstream. Calling Attach again
// before the stream ends replaces the base time (idempotent
// re-attachment per spec.md §4.1 edge cases).
func (t *TimeoutStream) Attach() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.base = time.Now()
	t.attached = true
	t.rearmLocked()
}

// Observe resets the idle timer; call it on every chunk seen flowing
// through the observed stream.
func (t *TimeoutStream) Observe([]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ended || t.fired {
		return
	}
	t.rearmLocked()
}

// End clears the timer and marks the stream as having ended cleanly;
// no Timeout() fires after this. Safe to call multiple times.
func (t *TimeoutStream) End() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ended {
		return
	}
	t.ended = true
	t.stopTimerLocked()
	close(t.endCh)
}

// Timeout returns a channel that is closed exactly once, if and only
// if the idle timer fires before End() is called.
func (t *TimeoutStream) Timeout() <-chan struct{} {
	return t.timeoutCh
}

// Ended returns a channel closed when End() is called.
func (t *TimeoutStream) Ended() <-chan struct{} {
	return t.endCh
}

// Elapsed returns the whole seconds elapsed since the most recent
// Attach (each Attach resets the base time), or 0 if never attached.
func (t *TimeoutStream) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.attached {
		return 0
	}
	return int(time.Since(t.base).Truncate(time.Second).Seconds())
}

func (t *TimeoutStream) rearmLocked() {
	t.stopTimerLocked()
	t.timer = time.AfterFunc(t.timeout, t.fire)
}

func (t *TimeoutStream) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *TimeoutStream) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ended || t.fired {
		return
	}
	t.fired = true
	close(t.timeoutCh)
}
