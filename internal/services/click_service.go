// Package services – ClickService
//
// ClickService records clicks in the ephemeral counter store and flushes
// them into the database.
//
// Recording uses the store's atomic increment only. Flushing follows a
// write-then-settle order per key: the value read is added to the durable
// row first and subtracted from the counter only after that write
// succeeds. A crash between the two steps re-applies the same delta on the
// next flush (at-least-once). A failed write leaves its key untouched for
// the next run and does not stop the other keys.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-deals-backend/internal/counter"
	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/repo"
)

// CounterStore is the ephemeral click store. *counter.RedisStore implements it.
type CounterStore interface {
	Incr(ctx context.Context, id uint64, day string) (int64, error)
	Get(ctx context.Context, key string) (int64, bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	Settle(ctx context.Context, key string, delta int64) error
}

// ClickService counts and flushes clicks.
type ClickService struct {
	DB       *gorm.DB
	Counters CounterStore
	Location *time.Location   // calendar for daily keys; UTC when nil
	Now      func() time.Time // defaults to time.Now
	Workers  int              // parallel durable writes per flush; default 4
	Log      zerolog.Logger
}

// FlushReport summarizes one flush iteration.
type FlushReport struct {
	Messages int   // message keys settled
	Days     int   // daily keys settled
	Clicks   int64 // clicks moved to message rows
	Failed   int   // keys left for the next run
}

func (s *ClickService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ClickService) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// ParseMessageID validates a message id from a path or key. Anything but a
// positive integer is ErrMessageNotFound.
func ParseMessageID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrMessageNotFound
	}
	return id, nil
}

// RecordClick increments the counters for message rawID and returns the
// ephemeral count. It does not check that the message exists.
func (s *ClickService) RecordClick(ctx context.Context, rawID string) (int64, error) {
	tr := otel.Tracer("services/ClickService")
	ctx, span := tr.Start(ctx, "RecordClick", trace.WithAttributes(attribute.String("message.id", rawID)))
	defer span.End()

	id, err := ParseMessageID(rawID)
	if err != nil {
		return 0, err
	}
	n, err := s.Counters.Incr(ctx, id, counter.Day(s.now(), s.loc()))
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	clicksTotal.Inc()
	return n, nil
}

// Follow looks up message rawID, records a click and returns its link.
// Unknown ids are ErrMessageNotFound and are not counted.
func (s *ClickService) Follow(ctx context.Context, rawID string) (*domain.Message, error) {
	id, err := ParseMessageID(rawID)
	if err != nil {
		return nil, err
	}
	m, err := repo.GetMessage(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.RecordClick(ctx, rawID); err != nil {
		return nil, err
	}
	return m, nil
}

// DailyStats returns durable daily aggregates for the last days calendar
// days, today included, newest first.
func (s *ClickService) DailyStats(ctx context.Context, days int) ([]domain.DailyClick, error) {
	if days < 1 {
		days = 1
	}
	since := counter.Day(s.now().AddDate(0, 0, -(days-1)), s.loc())
	return repo.ListDailyClicks(ctx, s.DB, since)
}

// Flush drains every message and daily counter into the database. It only
// returns an error when the counter keys cannot be listed.
func (s *ClickService) Flush(ctx context.Context) (FlushReport, error) {
	tr := otel.Tracer("services/ClickService")
	ctx, span := tr.Start(ctx, "Flush")
	defer span.End()
	start := time.Now()
	defer func() { flushDuration.Observe(time.Since(start).Seconds()) }()

	var rep FlushReport

	msgKeys, err := s.Counters.Keys(ctx, counter.MessagePrefix)
	if err != nil {
		span.RecordError(err)
		return rep, err
	}
	s.flushMessages(ctx, msgKeys, &rep)

	dayKeys, err := s.Counters.Keys(ctx, counter.DailyPrefix)
	if err != nil {
		span.RecordError(err)
		return rep, err
	}
	for _, key := range dayKeys {
		day, ok := counter.ParseDailyKey(key)
		if !ok {
			s.Log.Warn().Str("key", key).Msg("skipping malformed daily counter key")
			continue
		}
		if s.flushKey(ctx, "daily", key, func(delta int64) error {
			return repo.AddDailyClicks(ctx, s.DB, day, delta)
		}) {
			rep.Days++
		} else {
			rep.Failed++
		}
	}

	span.SetAttributes(
		attribute.Int("flush.messages", rep.Messages),
		attribute.Int("flush.days", rep.Days),
		attribute.Int("flush.failed", rep.Failed),
	)
	if rep.Messages+rep.Days+rep.Failed > 0 {
		s.Log.Info().
			Int("messages", rep.Messages).
			Int("days", rep.Days).
			Int64("clicks", rep.Clicks).
			Int("failed", rep.Failed).
			Msg("click flush completed")
	}
	return rep, nil
}

func (s *ClickService) flushMessages(ctx context.Context, keys []string, rep *FlushReport) {
	workers := s.Workers
	if workers <= 0 {
		workers = 4
	}
	var (
		wg      sync.WaitGroup
		sem     = make(chan struct{}, workers)
		settled atomic.Int64
		failed  atomic.Int64
		clicks  atomic.Int64
	)
	for _, key := range keys {
		id, ok := counter.ParseMessageKey(key)
		if !ok {
			s.Log.Warn().Str("key", key).Msg("skipping malformed message counter key")
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(key string, id uint64) {
			defer wg.Done()
			defer func() { <-sem }()
			var moved int64
			ok := s.flushKey(ctx, "message", key, func(delta int64) error {
				err := repo.AddMessageClicks(ctx, s.DB, id, delta)
				if errors.Is(err, repo.ErrNotFound) {
					// Row deleted out of band; drop its clicks instead of retrying forever.
					s.Log.Warn().Uint64("id", id).Int64("clicks", delta).Msg("dropping clicks for missing message")
					return nil
				}
				if err == nil {
					moved = delta
				}
				return err
			})
			if ok {
				settled.Add(1)
				clicks.Add(moved)
			} else {
				failed.Add(1)
			}
		}(key, id)
	}
	wg.Wait()
	rep.Messages += int(settled.Load())
	rep.Failed += int(failed.Load())
	rep.Clicks += clicks.Load()
}

// flushKey applies one counter to the database and settles it. It reports
// false when the key must be retried on the next run.
func (s *ClickService) flushKey(ctx context.Context, kind, key string, write func(delta int64) error) bool {
	delta, ok, err := s.Counters.Get(ctx, key)
	if err != nil {
		flushKeysTotal.WithLabelValues(kind, "read_error").Inc()
		s.Log.Error().Err(err).Str("key", key).Msg("read click counter")
		return false
	}
	if !ok {
		flushKeysTotal.WithLabelValues(kind, "empty").Inc()
		return true
	}
	if delta <= 0 {
		flushKeysTotal.WithLabelValues(kind, "empty").Inc()
		return s.Counters.Settle(ctx, key, 0) == nil
	}
	if err := write(delta); err != nil {
		flushKeysTotal.WithLabelValues(kind, "write_error").Inc()
		s.Log.Error().Err(err).Str("key", key).Int64("delta", delta).Msg("durable click write failed")
		return false
	}
	if err := s.Counters.Settle(ctx, key, delta); err != nil {
		// The durable write stands; the same delta is applied again next run.
		flushKeysTotal.WithLabelValues(kind, "settle_error").Inc()
		s.Log.Error().Err(err).Str("key", key).Int64("delta", delta).Msg("settle click counter")
		return false
	}
	flushKeysTotal.WithLabelValues(kind, "ok").Inc()
	return true
}
