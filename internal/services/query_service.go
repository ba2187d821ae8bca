// Package services – QueryService
//
// QueryService serves cursor-paginated listings of stored messages, newest
// first, with an optional exact category filter and token search.
//
// Search runs in two stages: every token becomes a LOWER(text) LIKE
// prefilter in SQL, then search.Query.Match applies the word-boundary,
// unit-synonym and URL-exclusion rules to each candidate in Go. Candidates
// are pulled in id-descending batches until limit+1 matches are found.
package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/repo"
	"github.com/tbourn/go-deals-backend/internal/search"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	scanBatch       = 200
)

// QueryParams are the listing inputs as received from the caller.
type QueryParams struct {
	Cursor   string
	Limit    int
	Category string
	Search   string
}

// Page is one listing page. NextCursor is empty when HasMore is false.
type Page struct {
	Data       []domain.Message
	HasMore    bool
	NextCursor string
	TotalCount int64
}

// QueryService lists messages.
type QueryService struct {
	DB *gorm.DB
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// List returns one page. TotalCount counts every match of the category and
// search, independent of the cursor.
func (s *QueryService) List(ctx context.Context, p QueryParams) (Page, error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("cursor", p.Cursor),
			attribute.Int("limit", p.Limit),
			attribute.String("category", p.Category),
			attribute.String("search", p.Search),
		),
	)
	defer span.End()

	limit := ClampLimit(p.Limit)

	var f repo.MessageFilter
	if c := strings.TrimSpace(p.Category); c != "" {
		cat, ok := domain.ParseCategory(c)
		if !ok {
			return Page{}, ErrInvalidCategory
		}
		f.Category = cat
	}
	if c := strings.TrimSpace(p.Cursor); c != "" {
		id, err := strconv.ParseUint(c, 10, 64)
		if err != nil || id == 0 {
			return Page{}, ErrInvalidCursor
		}
		f.BeforeID = id
	}

	q := search.Compile(p.Search)
	var (
		items []domain.Message
		total int64
		err   error
	)
	if q.Empty() {
		items, err = repo.ListMessages(ctx, s.DB, f, limit+1)
		if err != nil {
			return Page{}, err
		}
		total, err = repo.CountMessages(ctx, s.DB, repo.MessageFilter{Category: f.Category})
	} else {
		f.Like = q.LikeTerms()
		items, err = s.scan(ctx, f, q, limit+1)
		if err != nil {
			return Page{}, err
		}
		all := f
		all.BeforeID = 0
		total, err = s.countMatches(ctx, all, q)
	}
	if err != nil {
		span.RecordError(err)
		return Page{}, err
	}

	page := Page{Data: items, TotalCount: total}
	if len(items) > limit {
		page.Data = items[:limit]
		page.HasMore = true
		page.NextCursor = strconv.FormatUint(page.Data[limit-1].ID, 10)
	}
	if page.Data == nil {
		page.Data = []domain.Message{}
	}
	return page, nil
}

// ListStats summarizes the rows a listing can return. It changes whenever a
// message is added or a click flush lands.
type ListStats struct {
	Count  int64
	Newest *time.Time
	Clicks int64
}

// Stats returns ListStats for a category (all when empty), used for ETags.
func (s *QueryService) Stats(ctx context.Context, category string) (ListStats, error) {
	var cat domain.Category
	if c := strings.TrimSpace(category); c != "" {
		parsed, ok := domain.ParseCategory(c)
		if !ok {
			return ListStats{}, ErrInvalidCategory
		}
		cat = parsed
	}
	n, newest, err := repo.MessagesStats(ctx, s.DB, cat)
	if err != nil {
		return ListStats{}, err
	}
	clicks, err := repo.SumClicks(ctx, s.DB, cat)
	if err != nil {
		return ListStats{}, err
	}
	return ListStats{Count: n, Newest: newest, Clicks: clicks}, nil
}

// scan walks prefiltered candidates newest first and collects up to want
// rows that satisfy q.
func (s *QueryService) scan(ctx context.Context, f repo.MessageFilter, q *search.Query, want int) ([]domain.Message, error) {
	out := make([]domain.Message, 0, want)
	err := s.walk(ctx, f, func(m domain.Message) bool {
		if q.Match(m.Text) {
			out = append(out, m)
		}
		return len(out) < want
	})
	return out, err
}

func (s *QueryService) countMatches(ctx context.Context, f repo.MessageFilter, q *search.Query) (int64, error) {
	var n int64
	err := s.walk(ctx, f, func(m domain.Message) bool {
		if q.Match(m.Text) {
			n++
		}
		return true
	})
	return n, err
}

// walk feeds fn every row matching f in id-descending batches until fn
// returns false or rows run out.
func (s *QueryService) walk(ctx context.Context, f repo.MessageFilter, fn func(domain.Message) bool) error {
	for {
		batch, err := repo.ListMessages(ctx, s.DB, f, scanBatch)
		if err != nil {
			return err
		}
		for _, m := range batch {
			if !fn(m) {
				return nil
			}
		}
		if len(batch) < scanBatch {
			return nil
		}
		f.BeforeID = batch[len(batch)-1].ID
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
