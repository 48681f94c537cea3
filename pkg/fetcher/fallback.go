package fetcher

import (
	"context"
	"errors"
	"net/http"

	"github.com/jmylchreest/adsift/internal/logger"
)

// ChallengeFallback fetches through a primary fetcher and hands the request
// to a solver only when the primary got a bot challenge instead of the
// page. Regular pages and plain HTTP errors never reach the solver.
type ChallengeFallback struct {
	primary Fetcher
	solver  Fetcher
}

// NewChallengeFallback creates a fetcher that escalates challenged requests
// from primary to solver.
func NewChallengeFallback(primary, solver Fetcher) *ChallengeFallback {
	return &ChallengeFallback{primary: primary, solver: solver}
}

// Fetch implements Fetcher.
func (f *ChallengeFallback) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	content, err := f.primary.Fetch(ctx, targetURL, opts)
	if !isChallenged(content, err) {
		return content, err
	}

	logger.Debug("challenge page received, fetching through solver",
		"url", targetURL,
		"status", content.StatusCode,
		"challenge", DetectChallenge("", string(content.Body)),
		"solver", f.solver.Type())
	return f.solver.Fetch(ctx, targetURL, opts)
}

// isChallenged reports whether a primary response is a challenge page. A
// challenge shows up either as a recognizable body or as the 403/503 that
// Cloudflare answers automated clients with.
func isChallenged(c Content, err error) bool {
	if DetectChallenge("", string(c.Body)) != "" {
		return true
	}
	if err != nil && errors.Is(err, ErrHTTPStatus) {
		return c.StatusCode == http.StatusForbidden || c.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

// Close closes both fetchers.
func (f *ChallengeFallback) Close() error {
	return errors.Join(f.primary.Close(), f.solver.Close())
}

// Type returns the fetcher type.
func (f *ChallengeFallback) Type() string {
	return f.primary.Type() + "+" + f.solver.Type()
}
