package search

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Word boundaries are Unicode-aware; regexp's \b only knows ASCII.
const (
	wordBefore = `(?:^|[^\p{L}\p{M}\p{N}_])`
	wordAfter  = `(?:$|[^\p{L}\p{M}\p{N}_])`
)

// unitSynonyms folds plural or variant unit spellings to one form.
var unitSynonyms = map[string]string{
	"inches": "inch",
	"kgs":    "kg", "kilo": "kg", "kilos": "kg",
	"gms": "gm", "grams": "gm", "gram": "gm",
	"ltrs": "ltr", "litre": "ltr", "litres": "ltr", "liter": "ltr", "liters": "ltr",
	"mls":   "ml",
	"watts": "watt",
	"gbs":   "gb", "tbs": "tb",
	"feet": "ft", "foot": "ft",
	"cms": "cm",
}

// unitTokens are matched as substrings so "inch" finds "32-inch".
var unitTokens = map[string]struct{}{
	"inch": {}, "kg": {}, "gm": {}, "ltr": {}, "ml": {}, "watt": {},
	"gb": {}, "tb": {}, "mb": {}, "mah": {}, "ft": {}, "cm": {}, "mm": {},
	"mp": {}, "hz": {}, "ton": {},
}

type term struct {
	text      string
	substring bool
	re        *regexp.Regexp
}

// Query is a compiled search expression. All terms must match (AND).
type Query struct {
	raw   string
	terms []term
}

// Compile tokenizes q on whitespace, folds unit synonyms, and prepares one
// matcher per token. Numeric and unit tokens match as substrings; everything
// else matches on word boundaries. A boundary is only required next to a
// letter or digit, so "₹499" and "टीवी" match like "tv" does.
func Compile(q string) *Query {
	raw := strings.ToLower(CollapseSpace(q))
	out := &Query{raw: raw}
	seen := map[string]bool{}
	for _, tok := range strings.Fields(raw) {
		if syn, ok := unitSynonyms[tok]; ok {
			tok = syn
		}
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		t := term{text: tok}
		if isNumeric(tok) || isUnit(tok) {
			t.substring = true
		} else {
			t.re = regexp.MustCompile(bounded(tok, regexp.QuoteMeta(tok)))
		}
		out.terms = append(out.terms, t)
	}
	return out
}

// Empty reports whether the query has no terms.
func (q *Query) Empty() bool { return q == nil || len(q.terms) == 0 }

// Raw returns the normalized (lowercased, collapsed) query string.
func (q *Query) Raw() string { return q.raw }

// LikeTerms returns LIKE patterns (already wrapped in %...% and escaped with
// '\') usable as a coarse SQL prefilter. Every matching text satisfies all of
// them; the converse is not guaranteed, so callers must still call Match.
// Terms with non-ASCII letters are left out: SQLite's LOWER folds ASCII
// only, so "CAFÉ" would never match "%café%".
func (q *Query) LikeTerms() []string {
	if q.Empty() {
		return nil
	}
	out := make([]string, 0, len(q.terms))
	for _, t := range q.terms {
		if !isASCII(t.text) {
			continue
		}
		out = append(out, "%"+escapeLike(t.text)+"%")
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Match reports whether text satisfies every term and the query is not
// found only inside URLs.
func (q *Query) Match(text string) bool {
	if q.Empty() {
		return true
	}
	low := strings.ToLower(text)
	for _, t := range q.terms {
		if t.substring {
			if !strings.Contains(low, t.text) {
				return false
			}
			continue
		}
		if !t.re.MatchString(low) {
			return false
		}
	}
	if strings.Contains(low, q.raw) && !strings.Contains(StripURLs(low), q.raw) {
		return false
	}
	return true
}

// bounded wraps pat, the pattern for tok, in word boundaries on each side
// where tok begins or ends with a letter or digit.
func bounded(tok, pat string) string {
	first, _ := utf8.DecodeRuneInString(tok)
	if isWordRune(first) {
		pat = wordBefore + pat
	}
	last, _ := utf8.DecodeLastRuneInString(tok)
	if isWordRune(last) {
		pat += wordAfter
	}
	return pat
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',':
		default:
			return false
		}
	}
	return digits > 0
}

func isUnit(s string) bool {
	_, ok := unitTokens[s]
	return ok
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
