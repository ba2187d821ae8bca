package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/services"
)

type fakeIngester struct {
	mu   sync.Mutex
	seen []domain.FeedEvent
	out  services.IngestOutcome
	err  error
}

func (f *fakeIngester) Ingest(_ context.Context, ev domain.FeedEvent) (services.IngestOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, ev)
	return f.out, f.err
}

type fakeAck struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *fakeAck) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAck) Nack(tag uint64, _, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *fakeAck) Reject(tag uint64, _ bool) error { return a.Nack(tag, false, false) }

const sampleEvent = `{"message_id":12,"chat":{"id":-100123},"date":1717236000,"caption":"Boat earbuds","photo":[{"file_id":"a","file_size":10},{"file_id":"b","file_size":20}]}`

func TestDecode(t *testing.T) {
	ev, err := Decode([]byte(sampleEvent))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.MessageID != 12 || ev.Chat.ID != -100123 || ev.Body() != "Boat earbuds" || len(ev.Photo) != 2 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if _, err := Decode([]byte(`{"message_id":`)); err == nil {
		t.Fatalf("truncated JSON should fail")
	}
}

func TestProcess_LogsButNeverFails(t *testing.T) {
	ing := &fakeIngester{err: errors.New("db down")}
	out := Process(context.Background(), ing, []byte(sampleEvent), zerolog.Nop())
	if len(ing.seen) != 1 || out.Status != "" {
		t.Fatalf("unexpected (%+v, seen=%d)", out, len(ing.seen))
	}
	bad := Process(context.Background(), ing, []byte("not json"), zerolog.Nop())
	if bad.Status != services.StatusRejected || bad.Reason != services.ReasonInvalidEvent || len(ing.seen) != 1 {
		t.Fatalf("undecodable body should be rejected before ingest: %+v", bad)
	}
}

func TestDispatch_AcksEveryDelivery(t *testing.T) {
	ing := &fakeIngester{out: services.IngestOutcome{Status: services.StatusAccepted}}
	ack := &fakeAck{}
	c := &Consumer{cfg: Config{Concurrency: 3}, ing: ing, log: zerolog.Nop()}

	msgs := make(chan amqp.Delivery, 4)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(sampleEvent)}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("garbage")}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte(`{"message_id":0}`)}
	close(msgs)

	done := make(chan error, 1)
	go func() { done <- c.dispatch(context.Background(), msgs) }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("closed delivery channel should be reported")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatch did not return")
	}

	ack.mu.Lock()
	defer ack.mu.Unlock()
	if len(ack.acked) != 3 || len(ack.nacked) != 0 {
		t.Fatalf("acked=%v nacked=%v; want all three acked", ack.acked, ack.nacked)
	}
	if len(ing.seen) != 2 {
		t.Fatalf("ingested %d; want 2 decodable events", len(ing.seen))
	}
}

func TestDispatch_StopsOnCancel(t *testing.T) {
	c := &Consumer{cfg: Config{Concurrency: 1}, ing: &fakeIngester{}, log: zerolog.Nop()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.dispatch(ctx, make(chan amqp.Delivery)) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancel should return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatch did not stop")
	}
}

func TestRun_ReconnectsAfterDeliveryChannelCloses(t *testing.T) {
	ing := &fakeIngester{out: services.IngestOutcome{Status: services.StatusAccepted}}
	ack := &fakeAck{}

	dropped := make(chan amqp.Delivery)
	close(dropped)
	resumed := make(chan amqp.Delivery, 1)
	resumed <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: []byte(sampleEvent)}

	var opens int
	streams := []<-chan amqp.Delivery{dropped, nil, resumed}
	c := &Consumer{cfg: Config{Queue: "q", Concurrency: 1}, ing: ing, log: zerolog.Nop()}
	c.backoff = func(int) time.Duration { return time.Millisecond }
	c.open = func() (<-chan amqp.Delivery, error) {
		s := streams[min(opens, len(streams)-1)]
		opens++
		if s == nil {
			return nil, errors.New("connection refused")
		}
		return s, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		ack.mu.Lock()
		n := len(ack.acked)
		ack.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case err := <-done:
			t.Fatalf("Run returned %v before the broker came back", err)
		case <-deadline:
			t.Fatal("delivery after reconnect was never acked")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if opens != 3 || len(ing.seen) != 1 {
		t.Fatalf("opens=%d ingested=%d", opens, len(ing.seen))
	}
}

func TestReconnectBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, w := range want {
		if got := reconnectBackoff(i); got != w {
			t.Fatalf("attempt %d: %v want %v", i, got, w)
		}
	}
	if got := reconnectBackoff(100); got != 30*time.Second {
		t.Fatalf("large attempt: %v", got)
	}
}

func TestBacklog_SubmitAndWait(t *testing.T) {
	ing := &fakeIngester{out: services.IngestOutcome{Status: services.StatusAccepted}}
	b := NewBacklog(ing, 2)

	for i := 0; i < 5; i++ {
		if _, err := b.Submit([]byte(sampleEvent), zerolog.Nop()); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if _, err := b.Submit([]byte("{nope"), zerolog.Nop()); err == nil {
		t.Fatal("undecodable body should be refused")
	}
	b.Wait()

	ing.mu.Lock()
	defer ing.mu.Unlock()
	if len(ing.seen) != 5 {
		t.Fatalf("ingested %d, want 5", len(ing.seen))
	}
}

// gatedIngester records peak concurrency while blocked on release.
type gatedIngester struct {
	release chan struct{}
	mu      sync.Mutex
	active  int
	peak    int
}

func (g *gatedIngester) Ingest(context.Context, domain.FeedEvent) (services.IngestOutcome, error) {
	g.mu.Lock()
	g.active++
	g.peak = max(g.peak, g.active)
	g.mu.Unlock()
	<-g.release
	g.mu.Lock()
	g.active--
	g.mu.Unlock()
	return services.IngestOutcome{}, nil
}

func TestBacklog_BoundsConcurrency(t *testing.T) {
	g := &gatedIngester{release: make(chan struct{})}
	b := NewBacklog(g, 2)
	for i := 0; i < 6; i++ {
		if _, err := b.Submit([]byte(sampleEvent), zerolog.Nop()); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(g.release)
	b.Wait()
	if g.peak != 2 {
		t.Fatalf("peak concurrency %d, want 2", g.peak)
	}
}
