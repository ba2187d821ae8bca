// Package classify normalizes deal text and assigns it a category. The
// generative service is tried first with bounded retries on transient
// failures; any other failure, exhausted retries, or an unusable response
// degrades to the deterministic keyword classifier. Classify never fails.
package classify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/llm"
)

// Source records which path produced a Result.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
	// SourceMixed keeps the generated text but a keyword category, used
	// when the service returned a category outside the closed set.
	SourceMixed Source = "mixed"
)

// Completer is the generative call. *llm.Client implements it.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Result is the classification of one message.
type Result struct {
	Text     string
	Category domain.Category
	Source   Source
}

// DefaultBackoff is the wait before each retry of a transient failure.
var DefaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Classifier combines the generative call with the keyword fallback.
type Classifier struct {
	llm     Completer
	backoff []time.Duration
	timeout time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	log     zerolog.Logger
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithBackoff replaces the retry delays; len(d) is the retry count.
func WithBackoff(d ...time.Duration) Option {
	return func(c *Classifier) { c.backoff = d }
}

// WithAttemptTimeout bounds each generative call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// WithSleep replaces the context-aware sleep used between retries.
func WithSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Classifier) { c.sleep = f }
}

// WithLogger sets the logger for degraded paths.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Classifier) { c.log = l }
}

// New returns a Classifier. A nil completer makes it keyword-only.
func New(completer Completer, opts ...Option) *Classifier {
	c := &Classifier{
		llm:     completer,
		backoff: DefaultBackoff,
		timeout: 20 * time.Second,
		sleep:   sleepCtx,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify returns normalized text and a category for text.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	fallback := Result{Text: text, Category: Fallback(text), Source: SourceFallback}
	if c.llm == nil {
		return fallback
	}

	raw, err := c.complete(ctx, text)
	if err != nil {
		c.log.Warn().Err(err).Msg("classification degraded to keywords")
		return fallback
	}

	out := ParseOutcome(raw)
	switch out.Kind {
	case OutcomeOK:
		if cat, ok := domain.ParseCategory(out.Category); ok {
			return Result{Text: out.NormalizedMessage, Category: cat, Source: SourceLLM}
		}
		c.log.Debug().Str("category", out.Category).Msg("generated category not in closed set")
		return Result{Text: out.NormalizedMessage, Category: fallback.Category, Source: SourceMixed}
	default:
		c.log.Warn().Err(out.Err).Msg("malformed classification response")
		return fallback
	}
}

func (c *Classifier) complete(ctx context.Context, text string) (string, error) {
	sys, user := systemPrompt(), userPrompt(text)
	for attempt := 0; ; attempt++ {
		actx, cancel := context.WithTimeout(ctx, c.timeout)
		raw, err := c.llm.CompleteJSON(actx, sys, user)
		cancel()
		if err == nil {
			return raw, nil
		}
		lerr := llm.Classify(err)
		if lerr.Kind != llm.KindTransient || attempt >= len(c.backoff) || ctx.Err() != nil {
			return "", lerr
		}
		c.log.Debug().Err(err).Int("attempt", attempt+1).Dur("backoff", c.backoff[attempt]).Msg("retrying classification")
		if err := c.sleep(ctx, c.backoff[attempt]); err != nil {
			return "", llm.Classify(err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
