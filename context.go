package cancellation

import "context"

// Context returns a context that is done once cancellation is requested,
// with context.Canceled as its cause, or once the Token is disposed, with
// ErrDisposed as its cause. The same context is returned on every call.
func (t *Token) Context() (context.Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return nil, ErrDisposed
	}
	if t.ctx == nil {
		t.ctx, t.cancel = context.WithCancelCause(context.Background())
		if t.requested {
			t.cancel(context.Canceled)
		}
	}
	return t.ctx, nil
}

// Link requests cancellation of the Token once ctx is done. The returned
// stop function detaches the link and reports if it did so before the link
// fired.
func (t *Token) Link(ctx context.Context) (stop func() bool, err error) {
	if t.Disposed() {
		return nil, ErrDisposed
	}
	return context.AfterFunc(ctx, func() {
		// the token may have been disposed since, which is fine.
		_ = t.Cancel()
	}), nil
}
