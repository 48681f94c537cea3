// Package browser drives a live Chrome tab for the watch command. The tab is
// the page adsift scans and hides ads in.
package browser

import (
	"errors"
	"time"

	"github.com/jmylchreest/adsift/pkg/fetcher"
)

// LoadTimeout bounds navigation to the listing page. A page that has not
// produced a ready body by then is treated as stalled.
const LoadTimeout = 10 * time.Second

// ErrLoadTimeout is returned by Open when the page does not load in time.
var ErrLoadTimeout = errors.New("page load timed out")

// Config holds configuration for the browser.
type Config struct {
	UserAgent string
	Headless  bool // run without a visible window
	Stealth   bool // patch common automation fingerprints before page scripts run
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: fetcher.DefaultUserAgent,
		Headless:  true,
	}
}
