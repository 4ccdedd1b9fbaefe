package cancellation

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrDisposed is returned by operations on a Token after Dispose.
	ErrDisposed = errors.New("cancellation: token disposed")

	// ErrInvalidDelay is returned by CancelAfter when the delay is below Infinite.
	ErrInvalidDelay = errors.New("cancellation: invalid delay")
)

// CallbackPanic wraps a value recovered from a panicking registration
// callback together with the stack of the goroutine that ran it.
//
// Every snapshotted registration is still notified. The first CallbackPanic
// is then re-raised from whichever goroutine performed the cancellation.
type CallbackPanic struct {
	Value any
	Stack string
}

func (p *CallbackPanic) Error() string {
	return fmt.Sprintf("cancellation: callback panicked: %v\n\n%s", p.Value, p.Stack)
}

func newCallbackPanic(v any) *CallbackPanic {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &CallbackPanic{Value: v, Stack: string(buf[:n])}
}
