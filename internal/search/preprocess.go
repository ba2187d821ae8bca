// Package search holds the text utilities shared by ingestion and querying:
// URL extraction and stripping, canonicalization for fingerprinting, and the
// token matcher behind message search.
package search

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	urlRe        = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"'()\[\]]+`)
	spaceRe      = regexp.MustCompile(`\s+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// marketplaceHosts are host suffixes treated as product links.
var marketplaceHosts = []string{
	"amazon.in", "amazon.com", "amzn.to", "amzn.in",
	"flipkart.com", "fkrt.it", "fkrt.co",
	"myntra.com", "ajio.com",
}

// ExtractURLs returns every URL in s in order of appearance, with trailing
// punctuation trimmed.
func ExtractURLs(s string) []string {
	raw := urlRe.FindAllString(s, -1)
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimRight(u, ".,;:!?")
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// StripURLs removes URLs from s and collapses the remaining whitespace.
func StripURLs(s string) string {
	return CollapseSpace(urlRe.ReplaceAllString(s, " "))
}

// CollapseSpace folds runs of whitespace into single spaces and trims.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Sanitize normalizes line endings, caps consecutive blank lines at one and
// trims the result. Inner formatting is otherwise preserved for display.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Canonicalize produces the form that content fingerprints are computed
// over: NFKC-normalized, URLs stripped, whitespace collapsed, lowercased.
func Canonicalize(s string) string {
	return strings.ToLower(StripURLs(norm.NFKC.String(s)))
}

// IsMarketplaceURL reports whether u points at a known marketplace host.
func IsMarketplaceURL(u string) bool {
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	p, err := url.Parse(u)
	if err != nil || p.Host == "" {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(p.Hostname(), "www."))
	for _, h := range marketplaceHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// LastMarketplaceURL returns the last marketplace link found in s. Multi-link
// posts usually end with the most specific product link.
func LastMarketplaceURL(s string) (string, bool) {
	urls := ExtractURLs(s)
	for i := len(urls) - 1; i >= 0; i-- {
		if IsMarketplaceURL(urls[i]) {
			return urls[i], true
		}
	}
	return "", false
}

// PrimaryLink picks the link stored with a message: the last marketplace
// link when present, otherwise the first URL, otherwise "".
func PrimaryLink(s string) string {
	if u, ok := LastMarketplaceURL(s); ok {
		return u
	}
	if urls := ExtractURLs(s); len(urls) > 0 {
		return urls[0]
	}
	return ""
}
