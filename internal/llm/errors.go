// Package llm is the boundary to the generative text service. Every failure
// leaving this package is an *Error carrying a closed Kind, so callers branch
// on the kind instead of inspecting messages.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
)

// Kind classifies a failure for retry decisions.
type Kind int

const (
	// KindPermanent failures are not retried (non-retryable 4xx, bad payloads).
	KindPermanent Kind = iota
	// KindTransient failures may succeed on retry (timeouts, 408/429/5xx, resets).
	KindTransient
	// KindValidation marks a response that arrived but is unusable.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	default:
		return "permanent"
	}
}

// Error is the classified error returned by Client.
type Error struct {
	Kind       Kind
	StatusCode int // HTTP status when known, else 0
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a classified transient failure.
func IsTransient(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == KindTransient
}

// Classify maps a raw transport or API error onto an *Error. It returns nil
// for a nil err and passes an existing *Error through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: kindForStatus(apiErr.HTTPStatusCode), StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: kindForStatus(reqErr.HTTPStatusCode), StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTransient, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindPermanent, Err: err}
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return &Error{Kind: KindTransient, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTransient, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindTransient, Err: err}
	}
	return &Error{Kind: KindPermanent, Err: err}
}

func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return KindTransient
	case code >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
