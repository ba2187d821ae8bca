package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/feed"
	"github.com/tbourn/go-deals-backend/internal/services"
)

// ---------- test plumbing ----------

type stubQuery struct {
	list  func(ctx context.Context, p services.QueryParams) (services.Page, error)
	stats func(ctx context.Context, category string) (services.ListStats, error)
}

func (s stubQuery) List(ctx context.Context, p services.QueryParams) (services.Page, error) {
	return s.list(ctx, p)
}

func (s stubQuery) Stats(ctx context.Context, category string) (services.ListStats, error) {
	if s.stats == nil {
		return services.ListStats{}, errors.New("no stats")
	}
	return s.stats(ctx, category)
}

type stubClicks struct {
	record func(ctx context.Context, rawID string) (int64, error)
	follow func(ctx context.Context, rawID string) (*domain.Message, error)
	daily  func(ctx context.Context, days int) ([]domain.DailyClick, error)
}

func (s stubClicks) RecordClick(ctx context.Context, rawID string) (int64, error) {
	return s.record(ctx, rawID)
}

func (s stubClicks) Follow(ctx context.Context, rawID string) (*domain.Message, error) {
	return s.follow(ctx, rawID)
}

func (s stubClicks) DailyStats(ctx context.Context, days int) ([]domain.DailyClick, error) {
	return s.daily(ctx, days)
}

type stubFeed struct {
	got []domain.FeedEvent
}

func (s *stubFeed) Submit(body []byte, _ zerolog.Logger) (domain.FeedEvent, error) {
	ev, err := feed.Decode(body)
	if err != nil {
		return ev, err
	}
	s.got = append(s.got, ev)
	return ev, nil
}

// slowIngest blocks until release is closed.
type slowIngest struct {
	release chan struct{}
	calls   atomic.Int32
}

func (s *slowIngest) Ingest(ctx context.Context, _ domain.FeedEvent) (services.IngestOutcome, error) {
	<-s.release
	s.calls.Add(1)
	return services.IngestOutcome{Status: services.StatusAccepted}, nil
}

func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/messages", h.ListMessages)
	r.POST("/messages/:id/clicks", h.RecordClick)
	r.GET("/r/:id", h.FollowLink)
	r.POST("/feed/events", h.FeedEvent)
	r.GET("/stats/clicks", h.DailyClicks)
	return r
}

func do(r http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------- listing ----------

func TestListMessages_PassesParamsAndShapesPage(t *testing.T) {
	var got services.QueryParams
	q := stubQuery{list: func(_ context.Context, p services.QueryParams) (services.Page, error) {
		got = p
		return services.Page{
			Data:       []domain.Message{{ID: 9, Text: "tv"}, {ID: 8, Text: "tv stand"}},
			HasMore:    true,
			NextCursor: "8",
			TotalCount: 5,
		}, nil
	}}
	r := newRouter(New(q, nil, nil))

	w := do(r, http.MethodGet, "/messages?cursor=10&limit=2&category=electronics-home&search=tv", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	want := services.QueryParams{Cursor: "10", Limit: 2, Category: "electronics-home", Search: "tv"}
	if got != want {
		t.Fatalf("params=%+v want %+v", got, want)
	}
	var resp ListMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Data) != 2 || !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor != "8" || resp.TotalCount != 5 || resp.Error != "" {
		t.Fatalf("unexpected page: %+v", resp)
	}
}

func TestListMessages_LastPageHasNullCursor(t *testing.T) {
	q := stubQuery{list: func(context.Context, services.QueryParams) (services.Page, error) {
		return services.Page{Data: []domain.Message{}}, nil
	}}
	w := do(newRouter(New(q, nil, nil)), http.MethodGet, "/messages?limit=abc", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"nextCursor":null`) || !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestListMessages_ErrorsReturnEmptyPageWithFlag(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrInvalidCursor, http.StatusBadRequest, ErrCodeInvalidCursor},
		{services.ErrInvalidCategory, http.StatusBadRequest, ErrCodeInvalidCategory},
		{errors.New("db gone"), http.StatusInternalServerError, ErrCodeListFailed},
	}
	for _, tc := range cases {
		q := stubQuery{list: func(context.Context, services.QueryParams) (services.Page, error) {
			return services.Page{}, tc.err
		}}
		w := do(newRouter(New(q, nil, nil)), http.MethodGet, "/messages", "", nil)
		if w.Code != tc.status {
			t.Fatalf("%v: status=%d", tc.err, w.Code)
		}
		var resp ListMessagesResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json: %v", err)
		}
		if resp.Error != tc.code || resp.Data == nil || len(resp.Data) != 0 || resp.HasMore {
			t.Fatalf("%v: unexpected body %s", tc.err, w.Body.String())
		}
	}
}

func TestListMessages_ETag(t *testing.T) {
	newest := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	st := services.ListStats{Count: 3, Newest: &newest, Clicks: 4}
	calls := 0
	q := stubQuery{
		list: func(context.Context, services.QueryParams) (services.Page, error) {
			calls++
			return services.Page{Data: []domain.Message{}}, nil
		},
		stats: func(context.Context, string) (services.ListStats, error) { return st, nil },
	}
	r := newRouter(New(q, nil, nil))

	w := do(r, http.MethodGet, "/messages?limit=5", "", nil)
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || !strings.HasPrefix(etag, `W/"messages:3:`) {
		t.Fatalf("status=%d etag=%q", w.Code, etag)
	}

	w = do(r, http.MethodGet, "/messages?limit=5", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified || calls != 1 {
		t.Fatalf("want 304 without listing, got %d (calls=%d)", w.Code, calls)
	}

	// A different query string is a different representation.
	w = do(r, http.MethodGet, "/messages?limit=6", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("different query should not match, got %d", w.Code)
	}

	// A flush changing the click total invalidates the tag.
	st.Clicks = 5
	w = do(r, http.MethodGet, "/messages?limit=5", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("click change should produce a new etag")
	}
}

// ---------- clicks ----------

func TestRecordClick(t *testing.T) {
	cs := stubClicks{record: func(_ context.Context, raw string) (int64, error) {
		if raw == "x" {
			return 0, services.ErrMessageNotFound
		}
		if raw == "13" {
			return 0, errors.New("redis down")
		}
		return 3, nil
	}}
	r := newRouter(New(nil, cs, nil))

	w := do(r, http.MethodPost, "/messages/42/clicks", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp RecordClickResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.MessageID != 42 || resp.Clicks != 3 {
		t.Fatalf("unexpected body: %+v", resp)
	}

	if w := do(r, http.MethodPost, "/messages/x/clicks", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("malformed id: status=%d", w.Code)
	}
	if w := do(r, http.MethodPost, "/messages/13/clicks", "", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("store failure: status=%d", w.Code)
	}
}

func TestFollowLink(t *testing.T) {
	cs := stubClicks{follow: func(_ context.Context, raw string) (*domain.Message, error) {
		switch raw {
		case "1":
			return &domain.Message{ID: 1, Link: "https://amzn.to/abc"}, nil
		case "2":
			return &domain.Message{ID: 2}, nil
		default:
			return nil, services.ErrMessageNotFound
		}
	}}
	r := newRouter(New(nil, cs, nil))

	w := do(r, http.MethodGet, "/r/1", "", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "https://amzn.to/abc" {
		t.Fatalf("status=%d location=%q", w.Code, w.Header().Get("Location"))
	}
	if w := do(r, http.MethodGet, "/r/2", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("no link: status=%d", w.Code)
	}
	if w := do(r, http.MethodGet, "/r/999", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown: status=%d", w.Code)
	}
}

func TestDailyClicks_ClampsDays(t *testing.T) {
	var got []int
	cs := stubClicks{daily: func(_ context.Context, days int) ([]domain.DailyClick, error) {
		got = append(got, days)
		if days == 1 {
			return nil, nil
		}
		return []domain.DailyClick{{Day: "2025-06-01", Clicks: 9}}, nil
	}}
	r := newRouter(New(nil, cs, nil))

	w := do(r, http.MethodGet, "/stats/clicks", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"2025-06-01"`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodGet, "/stats/clicks?days=0", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"days":[]`) {
		t.Fatalf("empty days should be []: %s", w.Body.String())
	}
	do(r, http.MethodGet, "/stats/clicks?days=1000", "", nil)
	if len(got) != 3 || got[0] != defaultStatsDays || got[1] != 1 || got[2] != maxStatsDays {
		t.Fatalf("days passed = %v", got)
	}
}

// ---------- feed webhook ----------

func TestFeedEvent_AlwaysAcknowledges(t *testing.T) {
	q := &stubFeed{}
	r := newRouter(New(nil, nil, q))

	body := `{"message_id":5,"chat":{"id":-1001},"date":1717236000,"text":"boat earbuds at 499"}`
	w := do(r, http.MethodPost, "/feed/events", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var ack FeedAck
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !ack.OK || ack.Status != StatusQueued || len(q.got) != 1 || q.got[0].MessageID != 5 {
		t.Fatalf("unexpected ack %+v (queued %d)", ack, len(q.got))
	}

	w = do(r, http.MethodPost, "/feed/events", "{broken", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("malformed body must still be acknowledged: %d %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil || ack.Reason != services.ReasonInvalidEvent {
		t.Fatalf("malformed body ack = %+v (%v)", ack, err)
	}
	if len(q.got) != 1 {
		t.Fatalf("malformed body must not be queued, queued %d", len(q.got))
	}
}

func TestFeedEvent_AcksBeforeIngestionFinishes(t *testing.T) {
	ing := &slowIngest{release: make(chan struct{})}
	backlog := feed.NewBacklog(ing, 2)
	r := newRouter(New(nil, nil, backlog))

	body := `{"message_id":9,"chat":{"id":-1001},"date":1717236000,"text":"boat earbuds at 499"}`
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(r, http.MethodPost, "/feed/events", body, nil) }()

	select {
	case w := <-done:
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), StatusQueued) {
			t.Fatalf("ack = %d %s", w.Code, w.Body.String())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook waited for ingestion")
	}

	close(ing.release)
	backlog.Wait()
	if n := ing.calls.Load(); n != 1 {
		t.Fatalf("ingested %d events, want 1", n)
	}
}
