package imageres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrNoImage means the product page was fetched but exposed no image.
var ErrNoImage = errors.New("no product image found")

// Fetcher returns a candidate image URL for a product page URL.
type Fetcher interface {
	FetchImage(ctx context.Context, productURL string) (string, error)
}

const userAgent = "Mozilla/5.0 (compatible; deals-backend/1.0; +https://github.com/tbourn/go-deals-backend)"

// PageFetcher scrapes a product page for its representative image.
type PageFetcher struct {
	client  *http.Client
	maxBody int64
}

// NewPageFetcher returns a PageFetcher with the given request timeout.
func NewPageFetcher(timeout time.Duration) *PageFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PageFetcher{client: &http.Client{Timeout: timeout}, maxBody: 4 << 20}
}

// imageSelectors are tried in order; the first non-empty attribute wins.
var imageSelectors = []struct{ sel, attr string }{
	{`meta[property="og:image"]`, "content"},
	{`meta[property="og:image:secure_url"]`, "content"},
	{`meta[name="twitter:image"]`, "content"},
	{`#landingImage`, "data-old-hires"},
	{`#landingImage`, "src"},
	{`link[rel="image_src"]`, "href"},
}

// FetchImage follows redirects (short links included), parses the final
// page and returns an absolute image URL.
func (f *PageFetcher) FetchImage(ctx context.Context, productURL string) (string, error) {
	if !strings.Contains(productURL, "://") {
		productURL = "https://" + productURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("product page status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", fmt.Errorf("parse product page: %w", err)
	}
	for _, s := range imageSelectors {
		v, ok := doc.Find(s.sel).First().Attr(s.attr)
		v = strings.TrimSpace(v)
		if !ok || v == "" || strings.HasPrefix(v, "data:") {
			continue
		}
		abs, err := resp.Request.URL.Parse(v)
		if err != nil {
			continue
		}
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		return abs.String(), nil
	}
	return "", ErrNoImage
}

// BreakerFetcher stops calling a failing image service for a cool-down
// period once failures accumulate.
type BreakerFetcher struct {
	next Fetcher
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerFetcher wraps next. ErrNoImage does not count as a failure.
func NewBreakerFetcher(next Fetcher, log zerolog.Logger) *BreakerFetcher {
	st := gobreaker.Settings{
		Name:        "product-image",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoImage)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}
	return &BreakerFetcher{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// FetchImage delegates through the breaker. While open it fails fast with
// gobreaker.ErrOpenState.
func (b *BreakerFetcher) FetchImage(ctx context.Context, productURL string) (string, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FetchImage(ctx, productURL)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// State exposes the breaker state for diagnostics.
func (b *BreakerFetcher) State() gobreaker.State { return b.cb.State() }

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
