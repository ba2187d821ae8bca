// Package handlers exposes the public HTTP endpoints:
//   - GET  /messages              (cursor-paginated listing, ETag support)
//   - POST /messages/{id}/clicks  (record a click)
//   - GET  /r/{id}                (record a click and redirect to the deal)
//   - POST /feed/events           (feed webhook, always acknowledged)
//   - GET  /stats/clicks          (durable daily click aggregates)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/services"
)

// QueryService lists stored messages.
type QueryService interface {
	List(ctx context.Context, p services.QueryParams) (services.Page, error)
	Stats(ctx context.Context, category string) (services.ListStats, error)
}

// ClickService records clicks and reads durable aggregates.
type ClickService interface {
	RecordClick(ctx context.Context, rawID string) (int64, error)
	Follow(ctx context.Context, rawID string) (*domain.Message, error)
	DailyStats(ctx context.Context, days int) ([]domain.DailyClick, error)
}

// FeedQueue accepts webhook events for background ingestion.
// *feed.Backlog implements it.
type FeedQueue interface {
	Submit(body []byte, log zerolog.Logger) (domain.FeedEvent, error)
}

// Handlers groups the HTTP endpoints. It depends on service interfaces so
// tests can substitute fakes.
type Handlers struct {
	query  QueryService
	clicks ClickService
	feed   FeedQueue
}

// New constructs Handlers bound to the given services.
func New(query QueryService, clicks ClickService, feed FeedQueue) *Handlers {
	return &Handlers{query: query, clicks: clicks, feed: feed}
}
