// Package probe talks to stream origins: HTTP reachability and content
// checks, and ffprobe for stream dimensions.
package probe

import (
	"context"
	"errors"
	"fmt"
)

// Head is the result of a HEAD request. ContentLength is -1 when the origin
// did not send one.
type Head struct {
	Status        int
	ContentType   string
	ContentLength int64
}

// OK reports a 2xx status.
func (h Head) OK() bool { return h.Status >= 200 && h.Status < 300 }

// Fetcher is the network side of a probe.
type Fetcher interface {
	FetchHead(ctx context.Context, url string) (Head, error)
	FetchBytes(ctx context.Context, url string, n int) ([]byte, error)
	// FetchText reads the whole body as text. limit <= 0 uses the
	// fetcher's default cap; a larger body fails with ErrTooLarge.
	FetchText(ctx context.Context, url string, limit int64) (string, error)
}

// ResolutionProber reports the pixel height of a stream, 0 when unknown.
type ResolutionProber interface {
	ProbeResolution(ctx context.Context, url string) int
}

// ResolutionFunc adapts a function to ResolutionProber.
type ResolutionFunc func(ctx context.Context, url string) int

func (f ResolutionFunc) ProbeResolution(ctx context.Context, url string) int { return f(ctx, url) }

var (
	ErrRateLimited = errors.New("rate limited")
	ErrBreakerOpen = errors.New("host circuit open")
	ErrTooLarge    = errors.New("body exceeds size limit")
)

// StatusError is returned for non-2xx responses on GET requests.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status %d", e.Code) }
