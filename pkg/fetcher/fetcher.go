// Package fetcher defines how adsift retrieves ad detail pages and API
// responses. Implement the Fetcher interface to swap the transport, e.g. to
// route requests through an authenticated session.
package fetcher

import (
	"context"
	"errors"
	"time"
)

// Fetcher retrieves a single resource over the network.
type Fetcher interface {
	// Fetch performs a GET request for url.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static").
	Type() string
}

// Options controls a single request.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
}

// Content is a fetched resource.
type Content struct {
	URL         string
	Body        []byte
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// ErrHTTPStatus indicates the server answered with a non-success status.
// Check with errors.Is(err, fetcher.ErrHTTPStatus).
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// Challenge errors. Check with errors.Is.
var (
	// ErrChallenge indicates the site answered with a bot challenge that
	// could not be solved.
	ErrChallenge = errors.New("bot challenge not solved")

	// ErrChallengeTimeout indicates solving a challenge ran out of time.
	ErrChallengeTimeout = errors.New("bot challenge timed out")
)
