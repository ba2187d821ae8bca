package search

import (
	"reflect"
	"testing"
)

func TestExtractURLs_TrimsPunctuation(t *testing.T) {
	in := "Deal https://amzn.to/abc, and www.flipkart.com/p/x. also http://t.co/z!"
	got := ExtractURLs(in)
	want := []string{"https://amzn.to/abc", "www.flipkart.com/p/x", "http://t.co/z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractURLs = %#v; want %#v", got, want)
	}
}

func TestStripURLs_CollapsesWhitespace(t *testing.T) {
	got := StripURLs("Buy   now https://amzn.to/abc\n\n at 499")
	if got != "Buy now at 499" {
		t.Fatalf("StripURLs = %q", got)
	}
}

func TestSanitize(t *testing.T) {
	got := Sanitize("  a\r\nb\n\n\n\n c  ")
	if got != "a\nb\n\n c" {
		t.Fatalf("Sanitize = %q", got)
	}
}

func TestCanonicalize_IgnoresURLsCaseAndSpacing(t *testing.T) {
	a := Canonicalize("Samsung  32 Inch TV https://amzn.to/one")
	b := Canonicalize("samsung 32 inch tv\nhttps://amzn.to/two")
	if a != b {
		t.Fatalf("canonical forms differ: %q vs %q", a, b)
	}
	// NFKC folds fullwidth digits.
	if Canonicalize("ＴＶ ３２") != "tv 32" {
		t.Fatalf("NFKC not applied: %q", Canonicalize("ＴＶ ３２"))
	}
}

func TestMarketplaceLinks(t *testing.T) {
	cases := map[string]bool{
		"https://www.amazon.in/dp/B0":   true,
		"https://amzn.to/x":             true,
		"www.flipkart.com/item":         true,
		"https://dl.flipkart.com/s/abc": true,
		"https://fkrt.it/q":             true,
		"https://www.myntra.com/shoes":  true,
		"https://example.com/amazon.in": false,
		"https://notamazon.in/x":        false,
	}
	for u, want := range cases {
		if got := IsMarketplaceURL(u); got != want {
			t.Fatalf("IsMarketplaceURL(%q) = %v; want %v", u, got, want)
		}
	}

	text := "first https://amzn.to/a then https://t.me/ch then https://fkrt.it/b end https://example.com/c"
	if u, ok := LastMarketplaceURL(text); !ok || u != "https://fkrt.it/b" {
		t.Fatalf("LastMarketplaceURL = (%q,%v)", u, ok)
	}
	if got := PrimaryLink(text); got != "https://fkrt.it/b" {
		t.Fatalf("PrimaryLink = %q", got)
	}
	if got := PrimaryLink("see https://example.com/a and https://example.com/b"); got != "https://example.com/a" {
		t.Fatalf("PrimaryLink fallback = %q", got)
	}
	if got := PrimaryLink("no links"); got != "" {
		t.Fatalf("PrimaryLink empty = %q", got)
	}
}
