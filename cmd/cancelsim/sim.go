package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zeebo/cancellation"
)

// Config describes one simulated run.
type Config struct {
	Workers int           // number of concurrent workers
	Units   int           // work units each worker attempts
	Work    time.Duration // time spent on a single unit
	Delay   time.Duration // delay before cancellation, cancellation.Infinite for none
}

// Report summarizes a finished run.
type Report struct {
	Canceled  bool
	Completed int64 // work units completed across all workers
	Notified  int64 // callbacks invoked by the token
}

func (c Config) validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.Units < 0:
		return fmt.Errorf("units must be non-negative, got %d", c.Units)
	case c.Work < 0:
		return fmt.Errorf("work must be non-negative, got %v", c.Work)
	}
	return nil
}

// Run starts cfg.Workers workers sharing one token, arms the delayed
// cancellation and waits for every worker to stop. Cancelling ctx cancels
// the token as well.
func Run(ctx context.Context, cfg Config, log zerolog.Logger) (Report, error) {
	if err := cfg.validate(); err != nil {
		return Report{}, err
	}

	tok := cancellation.NewToken()
	defer tok.Dispose()

	var rep Report

	// every callback is registered before cancellation can be armed so
	// none of them can miss it. a worker's channel is closed by its own
	// callback.
	stopped := make([]chan struct{}, cfg.Workers)
	for i := range stopped {
		worker, ch := i, make(chan struct{})
		stopped[i] = ch
		_, err := tok.Register(func() {
			atomic.AddInt64(&rep.Notified, 1)
			log.Debug().Int("worker", worker).Msg("cancellation observed")
			close(ch)
		})
		if err != nil {
			return Report{}, err
		}
	}

	stop, err := tok.Link(ctx)
	if err != nil {
		return Report{}, err
	}
	defer stop()

	if err := tok.CancelAfter(cfg.Delay); err != nil {
		return Report{}, err
	}

	g := new(errgroup.Group)
	for i := 0; i < cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			n, err := work(stopped[worker], tok, cfg)
			atomic.AddInt64(&rep.Completed, int64(n))
			log.Debug().Int("worker", worker).Int("units", n).Msg("worker stopped")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	// detach ctx and disarm the delay so nothing new can start. a link
	// that already fired is still on its way to cancelling the token.
	linked := !stop()
	if err := tok.CancelAfter(cancellation.Infinite); err != nil {
		return Report{}, err
	}
	if rep.Canceled, err = tok.Canceled(); err != nil {
		return Report{}, err
	}
	if rep.Canceled || linked {
		// cancellation may have landed after the last worker finished.
		for _, ch := range stopped {
			<-ch
		}
		rep.Canceled = true
	}

	log.Info().
		Bool("canceled", rep.Canceled).
		Int64("completed", atomic.LoadInt64(&rep.Completed)).
		Int64("notified", atomic.LoadInt64(&rep.Notified)).
		Msg("simulation finished")

	return rep, nil
}

// work performs up to cfg.Units units, polling the token between units.
// Once cancellation is seen it waits for its own callback so that the
// callback has finished by the time work returns.
func work(stopped <-chan struct{}, tok *cancellation.Token, cfg Config) (int, error) {
	for n := 0; n < cfg.Units; n++ {
		canceled, err := tok.Canceled()
		if err != nil {
			return n, err
		}
		if canceled {
			<-stopped
			return n, nil
		}

		select {
		case <-stopped:
			return n, nil
		case <-time.After(cfg.Work):
		}
	}
	return cfg.Units, nil
}
