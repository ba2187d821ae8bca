package fingerprint

import (
	"time"
	"unicode/utf8"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/search"
)

// Reason names why a message was rejected.
type Reason string

const (
	ReasonStale          Reason = "stale"
	ReasonDuplicate      Reason = "duplicate"
	ReasonLowContext     Reason = "low_context"
	ReasonUnprofitable   Reason = "unprofitable"
	ReasonDuplicateImage Reason = "duplicate_image"
)

// DefaultFillerWords flag vacuous promo posts when the text is short.
var DefaultFillerWords = []string{
	"deal", "deals", "offer", "loot", "link", "grab", "hurry", "sale", "buy",
	"price drop", "discount", "steal", "lowest", "check", "click",
}

// Options configures a Filter. Zero values fall back to defaults.
type Options struct {
	MaxAge         time.Duration // default 5m
	CacheSize      int           // default 50
	MinChars       int           // default 30
	ShortChars     int           // default 60
	FillerWords    []string      // default DefaultFillerWords
	ProfitableOnly bool
	ProductWords   []string // default domain.ProductKeywords()
	Now            func() time.Time
}

// Filter runs the pre-classification gates in order: recency, duplicate,
// low-context, then profitability when enabled. The first failing gate
// decides the outcome.
type Filter struct {
	opts    Options
	seen    *RecentSet
	filler  *search.WordSet
	product *search.WordSet
}

// NewFilter builds a Filter with its own content fingerprint set.
func NewFilter(opts Options) *Filter {
	if opts.MaxAge <= 0 {
		opts.MaxAge = 5 * time.Minute
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 50
	}
	if opts.MinChars <= 0 {
		opts.MinChars = 30
	}
	if opts.ShortChars <= 0 {
		opts.ShortChars = 60
	}
	if opts.FillerWords == nil {
		opts.FillerWords = DefaultFillerWords
	}
	if opts.ProductWords == nil {
		opts.ProductWords = domain.ProductKeywords()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Filter{
		opts:    opts,
		seen:    NewRecentSet(opts.CacheSize),
		filler:  search.NewWordSet(opts.FillerWords...),
		product: search.NewWordSet(opts.ProductWords...),
	}
}

// Check evaluates text posted at origin. It returns ("", true) when every
// gate passes. A passing duplicate gate records the fingerprint, so calling
// Check twice with the same text rejects the second call.
func (f *Filter) Check(text string, origin time.Time) (Reason, bool) {
	if f.opts.Now().Sub(origin) > f.opts.MaxAge {
		return ReasonStale, false
	}
	if f.seen.SeenOrAdd(Hash(search.Canonicalize(text))) {
		return ReasonDuplicate, false
	}
	if f.lowContext(text) {
		return ReasonLowContext, false
	}
	if f.opts.ProfitableOnly && !f.product.Match(search.StripURLs(text)) {
		return ReasonUnprofitable, false
	}
	return "", true
}

func (f *Filter) lowContext(text string) bool {
	body := search.StripURLs(text)
	n := utf8.RuneCountInString(body)
	if n < f.opts.MinChars {
		return true
	}
	return n < f.opts.ShortChars && f.filler.Match(body)
}
