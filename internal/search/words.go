package search

import (
	"regexp"
	"sort"
	"strings"
)

// WordSet matches any of a fixed list of words or phrases on word
// boundaries, case-insensitively.
type WordSet struct {
	re *regexp.Regexp
}

// NewWordSet compiles words into a single alternation. Longer entries are
// tried first so phrases win over their prefixes. Each word is wrapped in
// its own capture group with the same Unicode-aware boundaries as Compile.
func NewWordSet(words ...string) *WordSet {
	clean := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			clean = append(clean, w)
		}
	}
	if len(clean) == 0 {
		return &WordSet{}
	}
	sort.SliceStable(clean, func(i, j int) bool { return len(clean[i]) > len(clean[j]) })
	alts := make([]string, len(clean))
	for i, w := range clean {
		alts[i] = bounded(w, "("+regexp.QuoteMeta(w)+")")
	}
	return &WordSet{re: regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)}
}

// Match reports whether s contains any word of the set.
func (w *WordSet) Match(s string) bool {
	return w != nil && w.re != nil && w.re.MatchString(s)
}

// Find returns the first word of the set found in s, lowercased.
func (w *WordSet) Find(s string) (string, bool) {
	if w == nil || w.re == nil {
		return "", false
	}
	m := w.re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return strings.ToLower(g), true
		}
	}
	return "", false
}
