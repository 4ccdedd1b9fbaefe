// package cancellation provides a cooperative cancellation token.
//
// A Token records whether cancellation has been requested and lets any number
// of parties register callbacks that run exactly once when it is. The Token
// has no idea what the callbacks stop; it only tells them to.
//
//	tok := cancellation.NewToken()
//	defer tok.Dispose()
//
//	reg, err := tok.Register(func() { close(stop) })
//	if err != nil {
//		return err
//	}
//	defer reg.Dispose()
//
//	if err := tok.CancelAfter(time.Second); err != nil {
//		return err
//	}
//
// Cancel flips the flag and snapshots the registrations while holding the
// Token's lock, then releases it before invoking any callback. Callbacks run
// in registration order on the goroutine that called Cancel, or on a timer
// goroutine for CancelAfter, and are free to call back into the Token, for
// example to Unregister themselves. Calling Cancel again does nothing.
//
// A Token goes from uncancelled to cancelled at most once and can never go
// back. Dispose is terminal from either state: it stops any pending delayed
// cancellation and disposes every outstanding Registration without invoking
// it. After Dispose every operation except Dispose and Disposed returns
// ErrDisposed.
//
// Only one delayed cancellation is pending at a time. Each CancelAfter call
// replaces the previous one, CancelAfter(Infinite) drops it, and a replaced
// timer that was already on its way to firing is suppressed rather than left
// to race with the replacement.
//
// Registering after cancellation has already been requested is allowed but
// the callback is never invoked. Context returns a context.Context that
// follows the Token, for code that prefers to select on a channel, and Link
// cancels the Token when some other context is done.
//
// A panicking callback does not stop the remaining callbacks from running.
// Its panic is wrapped in a *CallbackPanic and re-raised once all of them
// have been notified.
package cancellation
