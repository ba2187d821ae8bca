package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-deals-backend/internal/domain"
)

// Backlog runs webhook events in the background so the sender is
// acknowledged before the pipeline's network calls start. At most
// concurrency events are ingested at once; the rest wait for a slot.
type Backlog struct {
	ing Ingester
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewBacklog returns a Backlog bounded to concurrency in-flight events
// (default 4, max 50, like Consumer).
func NewBacklog(ing Ingester, concurrency int) *Backlog {
	switch {
	case concurrency <= 0:
		concurrency = 4
	case concurrency > 50:
		concurrency = 50
	}
	return &Backlog{ing: ing, sem: make(chan struct{}, concurrency)}
}

// Submit decodes body and schedules it for ingestion. A decode error is
// returned at once and nothing is scheduled.
func (b *Backlog) Submit(body []byte, log zerolog.Logger) (domain.FeedEvent, error) {
	ev, err := Decode(body)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(body)).Msg("dropping undecodable feed event")
		return ev, err
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.sem <- struct{}{}
		defer func() { <-b.sem }()

		start := time.Now()
		out := ingest(context.Background(), b.ing, ev, log)
		log.Debug().Str("status", string(out.Status)).Str("reason", out.Reason).Dur("took", time.Since(start)).Msg("feed event handled")
	}()
	return ev, nil
}

// Wait blocks until every submitted event has been ingested.
func (b *Backlog) Wait() { b.wg.Wait() }
