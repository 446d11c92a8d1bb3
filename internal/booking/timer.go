package booking

import (
	"sync"
	"time"
)

// HoldTimer fires the expiry callback exactly once when the hold window
// lapses. Cancel is synchronous with respect to the firing check: once
// Cancel returns true, the callback will never run.
type HoldTimer struct {
	mu        sync.Mutex
	timer     *time.Timer
	deadline  time.Time
	cancelled bool
	fired     bool
}

// StartHoldTimer schedules fn to run once after d. fn is invoked on its own
// goroutine and never while the timer's internal lock is held.
func StartHoldTimer(d time.Duration, fn func()) *HoldTimer {
	ht := &HoldTimer{deadline: time.Now().Add(d)}

	ht.timer = time.AfterFunc(d, func() {
		ht.mu.Lock()
		if ht.cancelled {
			ht.mu.Unlock()
			return
		}
		ht.fired = true
		ht.mu.Unlock()

		fn()
	})

	return ht
}

// Cancel stops the timer. It returns true when the callback had not fired
// and is now guaranteed never to, and false when the callback already won
// the race.
func (ht *HoldTimer) Cancel() bool {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	if ht.fired {
		return false
	}

	ht.cancelled = true
	ht.timer.Stop()

	return true
}

// Remaining reports how much of the hold window is left, zero once the timer
// fired or was cancelled.
func (ht *HoldTimer) Remaining() time.Duration {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	if ht.fired || ht.cancelled {
		return 0
	}

	remaining := time.Until(ht.deadline)
	if remaining < 0 {
		return 0
	}

	return remaining
}

// Fired reports whether the expiry callback ran (or is about to run).
func (ht *HoldTimer) Fired() bool {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	return ht.fired
}
