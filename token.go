package cancellation

import (
	"context"
	"sync"
	"time"
	"weak"
)

// Token tracks whether cancellation has been requested and notifies the
// callbacks registered on it exactly once when it is. The zero value is an
// active, uncancelled Token. A Token must not be copied after first use.
type Token struct {
	mu        sync.Mutex
	requested bool
	disposed  bool
	regs      []*Registration

	// pending delayed cancellation, see timer.go
	timer *time.Timer
	gen   uint64

	// lazily created by Context, see context.go
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewToken returns an active, uncancelled Token.
func NewToken() *Token { return new(Token) }

// Canceled reports if cancellation has been requested.
func (t *Token) Canceled() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return false, ErrDisposed
	}
	return t.requested, nil
}

// Disposed reports if Dispose has been called. It is always safe to call.
func (t *Token) Disposed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.disposed
}

// Cancel requests cancellation and notifies every registration in the order
// they were registered. Calls after the first are no-ops. Callbacks run on
// the calling goroutine after the Token's lock has been released, so they may
// call back into the Token.
func (t *Token) Cancel() error {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return ErrDisposed
	}
	if t.requested {
		t.mu.Unlock()
		return nil
	}
	t.stopTimerLocked()
	regs, cancel := t.commitLocked()
	t.mu.Unlock()

	notifyAll(regs, cancel)
	return nil
}

// commitLocked flips the flag and snapshots what must be notified. The
// caller must hold t.mu and release it before calling notifyAll.
func (t *Token) commitLocked() ([]*Registration, context.CancelCauseFunc) {
	t.requested = true
	regs := make([]*Registration, len(t.regs))
	copy(regs, t.regs)
	return regs, t.cancel
}

// notifyAll runs outside of any Token lock. A panicking callback does not
// prevent later registrations from being notified.
func notifyAll(regs []*Registration, cancel context.CancelCauseFunc) {
	if cancel != nil {
		cancel(context.Canceled)
	}

	var first *CallbackPanic
	for _, r := range regs {
		if p := r.notify(); p != nil && first == nil {
			first = p
		}
	}
	if first != nil {
		panic(first)
	}
}

// Register adds fn to the callbacks invoked when cancellation is requested
// and returns a Registration that can be used to detach it. A callback
// registered after cancellation has already been requested is never invoked;
// check Canceled after registering, or use Context, if that matters.
func (t *Token) Register(fn func()) (*Registration, error) {
	r := &Registration{fn: fn, token: weak.Make(t)}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return nil, ErrDisposed
	}
	t.regs = append(t.regs, r)
	return r, nil
}

// Unregister removes r from the Token. It is a no-op if r is nil or is not
// registered, so it is safe to call redundantly.
func (t *Token) Unregister(r *Registration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return ErrDisposed
	}
	for i, reg := range t.regs {
		if reg == r {
			// keep insertion order for notification.
			copy(t.regs[i:], t.regs[i+1:])
			t.regs[len(t.regs)-1] = nil
			t.regs = t.regs[:len(t.regs)-1]
			break
		}
	}
	return nil
}

// Dispose releases the Token. Pending delayed cancellation is stopped and
// every outstanding Registration is disposed without being invoked. All
// further operations except Dispose and Disposed return ErrDisposed.
func (t *Token) Dispose() {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	t.stopTimerLocked()

	// lock order is always Token then Registration, and release never calls
	// back into the Token, so this can be done under the lock.
	for _, r := range t.regs {
		r.release()
	}
	t.regs = nil
	cancel, cause := t.cancel, ErrDisposed
	if t.requested {
		// a Cancel that committed first may not have reached its context yet.
		cause = context.Canceled
	}
	t.mu.Unlock()

	if cancel != nil {
		cancel(cause)
	}
}
