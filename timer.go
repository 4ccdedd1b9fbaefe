package cancellation

import (
	"fmt"
	"math"
	"time"
)

// Infinite passed to CancelAfter stops any pending delayed cancellation
// without scheduling a new one.
const Infinite time.Duration = -1

// CancelAfter schedules Cancel to run once d has elapsed, replacing any
// previously scheduled delay. A delay of zero cancels immediately on the
// calling goroutine and Infinite only stops the pending delay. It is a
// no-op once cancellation has been requested. Scheduling is best effort:
// the callbacks run on a timer goroutine some time after d.
func (t *Token) CancelAfter(d time.Duration) error {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return ErrDisposed
	}
	if d < Infinite {
		t.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidDelay, d)
	}
	if t.requested {
		t.mu.Unlock()
		return nil
	}

	switch {
	case d == 0:
		t.stopTimerLocked()
		regs, cancel := t.commitLocked()
		t.mu.Unlock()

		notifyAll(regs, cancel)
		return nil

	case d == Infinite:
		t.stopTimerLocked()

	default:
		t.stopTimerLocked()
		gen := t.gen
		t.timer = time.AfterFunc(d, func() { t.fire(gen) })
	}

	t.mu.Unlock()
	return nil
}

// CancelAfterMillis is CancelAfter with the delay expressed in whole
// milliseconds, where -1 means Infinite.
func (t *Token) CancelAfterMillis(ms int) error {
	if ms == -1 {
		return t.CancelAfter(Infinite)
	}
	if ms < -1 {
		// report the disposed state first, the same as CancelAfter.
		if t.Disposed() {
			return ErrDisposed
		}
		return fmt.Errorf("%w: %dms", ErrInvalidDelay, ms)
	}
	if int64(ms) > math.MaxInt64/int64(time.Millisecond) {
		// too far out to represent, and too far out to ever fire.
		return t.CancelAfter(time.Duration(math.MaxInt64))
	}
	return t.CancelAfter(time.Duration(ms) * time.Millisecond)
}

// stopTimerLocked invalidates the pending timer, if any. Bumping the
// generation is what guarantees suppression: Stop can lose the race with a
// timer that has already started running fire, but that call will observe
// a generation it did not capture and do nothing. t.mu must be held.
func (t *Token) stopTimerLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// fire is the body of a scheduled timer for the generation gen.
func (t *Token) fire(gen uint64) {
	t.mu.Lock()
	if t.disposed || t.requested || t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	regs, cancel := t.commitLocked()
	t.mu.Unlock()

	notifyAll(regs, cancel)
}
