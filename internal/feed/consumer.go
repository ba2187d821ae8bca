// Package feed receives inbound channel events and hands them to the
// ingestion pipeline. Events come from a RabbitMQ queue (Consumer) or from
// the HTTP webhook (Backlog); both paths share Decode and the outcome
// logging in Process.
//
// Deliveries are always acknowledged, whatever the outcome, so a bad event
// can never cause a redelivery storm.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/services"
)

// Ingester runs the pipeline. *services.IngestService implements it.
type Ingester interface {
	Ingest(ctx context.Context, ev domain.FeedEvent) (services.IngestOutcome, error)
}

// Decode parses one event body.
func Decode(body []byte) (domain.FeedEvent, error) {
	var ev domain.FeedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("decode feed event: %w", err)
	}
	return ev, nil
}

// Process decodes body, ingests it and logs the outcome. It never returns
// an error; callers acknowledge unconditionally.
func Process(ctx context.Context, ing Ingester, body []byte, log zerolog.Logger) services.IngestOutcome {
	ev, err := Decode(body)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(body)).Msg("dropping undecodable feed event")
		return services.IngestOutcome{Status: services.StatusRejected, Reason: services.ReasonInvalidEvent}
	}
	return ingest(ctx, ing, ev, log)
}

func ingest(ctx context.Context, ing Ingester, ev domain.FeedEvent, log zerolog.Logger) services.IngestOutcome {
	out, err := ing.Ingest(ctx, ev)
	switch {
	case errors.Is(err, services.ErrInvalidEvent):
		log.Warn().Err(err).Int64("message_id", ev.MessageID).Msg("invalid feed event")
	case err != nil:
		log.Error().Err(err).Int64("channel_id", ev.Chat.ID).Int64("message_id", ev.MessageID).Msg("feed event ingestion failed")
	}
	return out
}

// Config configures a Consumer.
type Config struct {
	URL         string
	Queue       string
	Concurrency int // workers and prefetch; default 4, max 50
}

// Consumer pulls events from RabbitMQ with a bounded worker pool.
type Consumer struct {
	cfg  Config
	ing  Ingester
	log  zerolog.Logger
	conn *amqp.Connection
	ch   *amqp.Channel

	open    func() (<-chan amqp.Delivery, error)
	backoff func(attempt int) time.Duration
}

// NewConsumer dials the broker and declares the queue and its dead-letter
// queue. A broker that is down at startup is an error; later drops are
// retried by Run.
func NewConsumer(cfg Config, ing Ingester, log zerolog.Logger) (*Consumer, error) {
	switch {
	case cfg.Concurrency <= 0:
		cfg.Concurrency = 4
	case cfg.Concurrency > 50:
		cfg.Concurrency = 50
	}
	if cfg.Queue == "" {
		cfg.Queue = "deals.events"
	}
	c := &Consumer{cfg: cfg, ing: ing, log: log, backoff: reconnectBackoff}
	c.open = c.consume
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Consumer) connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbit dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbit channel: %w", err)
	}

	dlq := c.cfg.Queue + ".dlq"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare %s: %w", dlq, err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare %s: %w", c.cfg.Queue, err)
	}
	if err := ch.Qos(c.cfg.Concurrency, 0, false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("qos: %w", err)
	}
	c.conn, c.ch = conn, ch
	return nil
}

// consume starts a delivery stream, redialing first if the channel is gone.
func (c *Consumer) consume() (<-chan amqp.Delivery, error) {
	if c.ch == nil || c.ch.IsClosed() {
		_ = c.Close()
		if err := c.connect(); err != nil {
			return nil, err
		}
	}
	msgs, err := c.ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return msgs, nil
}

// reconnectBackoff doubles from 1s up to 30s.
func reconnectBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return 30 * time.Second
	}
	return min(time.Second<<attempt, 30*time.Second)
}

// Run consumes until ctx is cancelled. A dropped connection or closed
// delivery channel is logged and reopened with backoff, so a broker outage
// only pauses the feed. On return, deliveries already handed to workers
// have been processed.
func (c *Consumer) Run(ctx context.Context) error {
	attempt := 0
	for {
		msgs, err := c.open()
		if err == nil {
			attempt = 0
			c.log.Info().Str("queue", c.cfg.Queue).Int("concurrency", c.cfg.Concurrency).Msg("feed consumer started")
			if err = c.dispatch(ctx, msgs); err == nil {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		wait := c.backoff(attempt)
		attempt++
		c.log.Warn().Err(err).Dur("retry_in", wait).Msg("feed consumer disconnected")
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery) error {
	jobs := make(chan amqp.Delivery, c.cfg.Concurrency*2)
	var wg sync.WaitGroup
	wg.Add(c.cfg.Concurrency)
	for i := 0; i < c.cfg.Concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				c.handle(ctx, workerID, d)
			}
		}(i)
	}
	defer func() {
		close(jobs)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("feed consumer shutting down")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			jobs <- d
		}
	}
}

func (c *Consumer) handle(ctx context.Context, workerID int, d amqp.Delivery) {
	start := time.Now()
	log := c.log.With().Int("worker", workerID).Uint64("delivery_tag", d.DeliveryTag).Logger()
	// Processing is detached from shutdown so a started event finishes.
	out := Process(context.WithoutCancel(ctx), c.ing, d.Body, log)
	if err := d.Ack(false); err != nil {
		log.Error().Err(err).Msg("ack failed")
	}
	log.Debug().Str("status", string(out.Status)).Str("reason", out.Reason).Dur("took", time.Since(start)).Msg("feed event handled")
}

// Close shuts the channel and connection.
func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
