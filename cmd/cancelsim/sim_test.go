package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/assert"

	"github.com/zeebo/cancellation"
)

func TestRunCanceled(t *testing.T) {
	rep, err := Run(context.Background(), Config{
		Workers: 4,
		Units:   1000,
		Work:    time.Millisecond,
		Delay:   20 * time.Millisecond,
	}, zerolog.Nop())
	assert.NoError(t, err)

	assert.That(t, rep.Canceled)
	assert.Equal(t, rep.Notified, int64(4))
	assert.That(t, rep.Completed < 4000)
}

func TestRunImmediate(t *testing.T) {
	rep, err := Run(context.Background(), Config{
		Workers: 3,
		Units:   10,
		Work:    time.Hour,
		Delay:   0,
	}, zerolog.Nop())
	assert.NoError(t, err)

	assert.That(t, rep.Canceled)
	assert.Equal(t, rep.Notified, int64(3))
	assert.Equal(t, rep.Completed, int64(0))
}

func TestRunNoCancellation(t *testing.T) {
	rep, err := Run(context.Background(), Config{
		Workers: 2,
		Units:   3,
		Work:    time.Millisecond,
		Delay:   cancellation.Infinite,
	}, zerolog.Nop())
	assert.NoError(t, err)

	assert.That(t, !rep.Canceled)
	assert.Equal(t, rep.Notified, int64(0))
	assert.Equal(t, rep.Completed, int64(6))
}

func TestRunContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	rep, err := Run(ctx, Config{
		Workers: 2,
		Units:   10,
		Work:    time.Hour,
		Delay:   time.Hour,
	}, zerolog.Nop())
	assert.NoError(t, err)

	assert.That(t, rep.Canceled)
	assert.Equal(t, rep.Notified, int64(2))
}

func TestRunContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the workers have nothing to do, so the linked cancellation usually
	// lands after they all returned.
	rep, err := Run(ctx, Config{
		Workers: 2,
		Units:   0,
		Delay:   cancellation.Infinite,
	}, zerolog.Nop())
	assert.NoError(t, err)

	assert.That(t, rep.Canceled)
	assert.Equal(t, rep.Notified, int64(2))
	assert.Equal(t, rep.Completed, int64(0))
}

func TestRunInvalid(t *testing.T) {
	_, err := Run(context.Background(), Config{Workers: 0}, zerolog.Nop())
	assert.Error(t, err)

	_, err = Run(context.Background(), Config{Workers: 1, Delay: -5}, zerolog.Nop())
	assert.That(t, errors.Is(err, cancellation.ErrInvalidDelay))
}
