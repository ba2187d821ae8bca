package classify

import (
	"strings"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/search"
)

var fallbackSets = func() map[domain.Category]*search.WordSet {
	m := make(map[domain.Category]*search.WordSet, len(domain.Categories))
	for _, c := range domain.Categories {
		if kw := domain.CategoryKeywords[c]; len(kw) > 0 {
			m[c] = search.NewWordSet(kw...)
		}
	}
	return m
}()

// Fallback assigns a category from keywords alone. Categories are tried in
// domain.Categories order and the first one with a word-boundary keyword hit
// wins; with no hit the result is miscellaneous. It is deterministic.
func Fallback(text string) domain.Category {
	low := strings.ToLower(search.StripURLs(text))
	for _, c := range domain.Categories {
		if ws, ok := fallbackSets[c]; ok && ws.Match(low) {
			return c
		}
	}
	return domain.CategoryMiscellaneous
}
