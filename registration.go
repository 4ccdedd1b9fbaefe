package cancellation

import (
	"sync"
	"weak"
)

// Registration pairs a callback with the Token that will invoke it. It only
// holds a weak reference to the Token, so it never keeps the Token alive.
type Registration struct {
	token weak.Pointer[Token]

	mu       sync.Mutex
	fn       func()
	fired    bool
	disposed bool
}

// Fired reports if the callback has been invoked.
func (r *Registration) Fired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.fired
}

// Disposed reports if the Registration has been disposed, either directly
// or because its Token was.
func (r *Registration) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.disposed
}

// Dispose drops the callback without invoking it, marks the Registration
// disposed and detaches it from its Token. After the callback fired there is
// nothing left to drop, so it only marks and detaches. Disposing more than
// once is a no-op.
func (r *Registration) Dispose() {
	if !r.release() {
		return
	}

	tok := r.token.Value()
	if tok == nil {
		return
	}
	// ErrDisposed means the token already dropped r from its list.
	_ = tok.Unregister(r)
}

// release marks the Registration disposed and drops the callback. It
// reports if this call did the transition. It never touches the Token so
// the Token may call it while holding its own lock.
func (r *Registration) release() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return false
	}
	r.disposed = true
	r.fn = nil
	return true
}

// notify invokes the callback at most once. The callback runs without r.mu
// held so it may dispose r or any other Registration.
func (r *Registration) notify() (p *CallbackPanic) {
	r.mu.Lock()
	fn := r.fn
	if r.disposed || r.fired || fn == nil {
		r.mu.Unlock()
		return nil
	}
	r.fn = nil
	r.fired = true
	r.mu.Unlock()

	defer func() {
		if v := recover(); v != nil {
			p = newCallbackPanic(v)
		}
	}()
	fn()
	return nil
}
