package combat

import (
	"sync"
	"time"
)

// IdleTimer fires a callback once a session has gone a full window without activity.
// It is safe for concurrent use.
type IdleTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	window  time.Duration
	onFire  func()
	stopped bool
	gen     uint64
}

// NewIdleTimer creates and starts a timer that calls onFire after window.
// onFire is called in a separate goroutine.
//
// Precondition: window > 0; onFire must not be nil.
// Postcondition: onFire will be called unless Touch or Stop is called first.
func NewIdleTimer(window time.Duration, onFire func()) *IdleTimer {
	it := &IdleTimer{window: window, onFire: onFire}
	it.arm()
	return it
}

// arm starts a fresh timer tagged with a new generation so a stale firing is ignored.
// Caller must hold mu or own it exclusively.
func (it *IdleTimer) arm() {
	it.gen++
	gen := it.gen
	it.timer = time.AfterFunc(it.window, func() {
		it.mu.Lock()
		live := !it.stopped && it.gen == gen
		it.mu.Unlock()
		if live {
			it.onFire()
		}
	})
}

// Touch restarts the idle window from now.
//
// Postcondition: onFire will not be called before window has elapsed from this call.
// Touch after Stop has no effect.
func (it *IdleTimer) Touch() {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.stopped {
		return
	}
	it.timer.Stop()
	it.arm()
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: onFire will not be called after Stop returns, unless it was already running.
func (it *IdleTimer) Stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.stopped = true
	it.timer.Stop()
}
