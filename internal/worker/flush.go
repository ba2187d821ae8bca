// Package worker runs background jobs. FlushScheduler drives the periodic
// click flush.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-deals-backend/internal/services"
)

// Flusher performs one flush iteration. *services.ClickService implements it.
type Flusher interface {
	Flush(ctx context.Context) (services.FlushReport, error)
}

// FlushScheduler calls Flush on a fixed interval. Runs never overlap: a
// tick that arrives while a flush is in progress is skipped, not queued.
type FlushScheduler struct {
	flusher  Flusher
	interval time.Duration
	log      zerolog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
	skipped atomic.Int64
}

// NewFlushScheduler returns a scheduler; interval defaults to 60s.
func NewFlushScheduler(f Flusher, interval time.Duration, log zerolog.Logger) *FlushScheduler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &FlushScheduler{flusher: f, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, then waits for an in-flight flush to
// finish before returning. The in-flight flush is not cancelled.
func (s *FlushScheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("click flush scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info().Msg("click flush scheduler stopped")
			return
		case <-t.C:
			s.Trigger(ctx)
		}
	}
}

// Trigger starts a flush unless one is already running and reports whether
// it started one.
func (s *FlushScheduler) Trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.log.Debug().Msg("previous click flush still running; tick skipped")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		if _, err := s.flusher.Flush(context.WithoutCancel(ctx)); err != nil {
			s.log.Error().Err(err).Msg("click flush failed")
		}
	}()
	return true
}

// Skipped returns how many ticks were skipped because a flush was running.
func (s *FlushScheduler) Skipped() int64 { return s.skipped.Load() }

// Wait blocks until any in-flight flush completes.
func (s *FlushScheduler) Wait() { s.wg.Wait() }
