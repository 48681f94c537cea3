// Package classifier decides whether an ad belongs to a blacklisted seller.
//
// Classification never fails: any error while fetching or parsing leaves the
// ad visible and is only logged.
package classifier

import (
	"context"
	"time"

	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/pkg/fetcher"
	"github.com/jmylchreest/adsift/pkg/site"
)

// Verdict is the outcome of classifying one ad against one check region.
type Verdict struct {
	Hide     bool
	Strategy site.StrategyKind
	Region   string // check-region selector, empty for API lookups
	Match    string // blacklist term or "legalEntity=2" when Hide is set
	Err      error  // the swallowed failure, if any
	Duration time.Duration
}

// Config holds classifier settings.
type Config struct {
	// APIEndpoint overrides the endpoint of APILookup profiles.
	APIEndpoint string
	// FetchOptions are passed to every request.
	FetchOptions fetcher.Options
}

// Classifier dispatches to the strategy of the ad's site profile.
type Classifier struct {
	fetcher fetcher.Fetcher
	config  Config
}

// New creates a classifier that performs requests through f.
func New(f fetcher.Fetcher, cfg Config) *Classifier {
	return &Classifier{fetcher: f, config: cfg}
}

// Classify runs the profile's strategy for adURL. region is ignored by
// APILookup.
func (c *Classifier) Classify(ctx context.Context, p site.Profile, adURL, region string) Verdict {
	start := time.Now()

	var v Verdict
	switch p.Strategy.Kind {
	case site.APILookup:
		endpoint := p.Strategy.Endpoint
		if c.config.APIEndpoint != "" {
			endpoint = c.config.APIEndpoint
		}
		v = c.Lookup(ctx, endpoint, adURL)
	default:
		v = c.ScanRegion(ctx, adURL, region, p.Blacklist)
	}

	v.Duration = time.Since(start)
	logger.Debug("classified",
		"site", p.Name,
		"url", adURL,
		"strategy", v.Strategy,
		"region", v.Region,
		"hide", v.Hide,
		"match", v.Match,
		"duration", v.Duration.Round(time.Millisecond))
	return v
}
