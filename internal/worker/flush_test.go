package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-deals-backend/internal/services"
)

type blockingFlusher struct {
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
	release chan struct{}
	ctxErr  atomic.Value
	err     error
}

func (f *blockingFlusher) Flush(ctx context.Context) (services.FlushReport, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	if n > f.maxSeen.Load() {
		f.maxSeen.Store(n)
	}
	if f.release != nil {
		<-f.release
	}
	if ctx.Err() != nil {
		f.ctxErr.Store(ctx.Err())
	}
	return services.FlushReport{}, f.err
}

func TestTrigger_SkipsWhileRunning(t *testing.T) {
	f := &blockingFlusher{release: make(chan struct{})}
	s := NewFlushScheduler(f, time.Hour, zerolog.Nop())
	ctx := context.Background()

	if !s.Trigger(ctx) {
		t.Fatalf("first trigger should start a flush")
	}
	if s.Trigger(ctx) || s.Trigger(ctx) {
		t.Fatalf("overlapping triggers must be skipped")
	}
	if s.Skipped() != 2 {
		t.Fatalf("skipped = %d; want 2", s.Skipped())
	}
	close(f.release)
	s.Wait()
	if f.calls.Load() != 1 || f.maxSeen.Load() != 1 {
		t.Fatalf("calls=%d maxConcurrent=%d", f.calls.Load(), f.maxSeen.Load())
	}
	if !s.Trigger(ctx) {
		t.Fatalf("trigger after completion should run")
	}
	s.Wait()
}

func TestRun_TicksAndStops(t *testing.T) {
	f := &blockingFlusher{err: errors.New("redis down")}
	s := NewFlushScheduler(f, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	deadline := time.After(2 * time.Second)
	for f.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("scheduler did not tick, calls=%d", f.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRun_ShutdownWaitsForInFlightFlush(t *testing.T) {
	f := &blockingFlusher{release: make(chan struct{})}
	s := NewFlushScheduler(f, 5*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	for f.active.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
		t.Fatalf("Run returned while a flush was still running")
	case <-time.After(30 * time.Millisecond):
	}
	close(f.release)
	<-done
	if f.ctxErr.Load() != nil {
		t.Fatalf("in-flight flush must not see a cancelled context")
	}
}
