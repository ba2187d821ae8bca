// Package imageres picks a representative image for a deal message.
//
// Resolution order:
//  1. The last marketplace link in the text is sent to the product-image
//     service (after the shared rate gate), the returned URL is probed, and
//     its fingerprint is recorded. A fingerprint already seen rejects the
//     whole message as a repost.
//  2. Otherwise the largest natively attached photo is used.
//  3. Otherwise the message has no image.
//
// Every failure in step 1 degrades to step 2.
package imageres

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/fingerprint"
	"github.com/tbourn/go-deals-backend/internal/search"
)

// ErrDuplicateImage rejects a message whose external image was seen recently.
var ErrDuplicateImage = errors.New("duplicate image")

// Source says where an image came from.
type Source string

const (
	SourceExternal Source = "external"
	SourceNative   Source = "native"
	SourceNone     Source = "none"
)

// Image is the resolution result. At most one of URL and NativeRef is set.
type Image struct {
	URL       string
	NativeRef string
	Source    Source
}

// Resolver resolves images. It is safe for concurrent use.
type Resolver struct {
	gate    *Gate
	fetcher Fetcher
	prober  Prober
	seen    *fingerprint.RecentSet
	log     zerolog.Logger
}

// NewResolver wires a Resolver. fetcher may be nil to disable external
// lookups; seen holds image fingerprints.
func NewResolver(gate *Gate, fetcher Fetcher, prober Prober, seen *fingerprint.RecentSet, log zerolog.Logger) *Resolver {
	if gate == nil {
		gate = NewGate(0)
	}
	if seen == nil {
		seen = fingerprint.NewRecentSet(10)
	}
	return &Resolver{gate: gate, fetcher: fetcher, prober: prober, seen: seen, log: log}
}

// Resolve returns the image for a message with the given text and photos.
// The only error is ErrDuplicateImage.
func (r *Resolver) Resolve(ctx context.Context, text string, photos []domain.FeedPhoto) (Image, error) {
	if link, ok := search.LastMarketplaceURL(text); ok && r.fetcher != nil {
		img, err := r.external(ctx, link)
		if errors.Is(err, ErrDuplicateImage) {
			return Image{}, err
		}
		if err == nil {
			return img, nil
		}
		r.log.Debug().Err(err).Str("link", link).Msg("external image unavailable")
	}

	ev := domain.FeedEvent{Photo: photos}
	if ref, ok := ev.LargestPhoto(); ok {
		return Image{NativeRef: ref, Source: SourceNative}, nil
	}
	return Image{Source: SourceNone}, nil
}

func (r *Resolver) external(ctx context.Context, link string) (Image, error) {
	if err := r.gate.Wait(ctx); err != nil {
		return Image{}, err
	}
	u, err := r.fetcher.FetchImage(ctx, link)
	if err != nil {
		return Image{}, err
	}
	if !isHTTPURL(u) {
		return Image{}, ErrNoImage
	}
	if r.prober != nil {
		if err := r.prober.Probe(ctx, u); err != nil {
			return Image{}, err
		}
	}
	if r.seen.SeenOrAdd(fingerprint.Hash(u)) {
		return Image{}, ErrDuplicateImage
	}
	return Image{URL: u, Source: SourceExternal}, nil
}
