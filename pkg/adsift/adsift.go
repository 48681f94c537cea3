// Package adsift provides the public API for hiding blacklisted sellers'
// ads on classified listing pages.
package adsift

import (
	"bytes"
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/adsift/internal/classifier"
	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/internal/scanner"
	"github.com/jmylchreest/adsift/internal/scheduler"
	"github.com/jmylchreest/adsift/pkg/fetcher"
	"github.com/jmylchreest/adsift/pkg/page"
	"github.com/jmylchreest/adsift/pkg/site"
)

// Report types are re-exported from internal/scanner for use by consumers.
type (
	Report   = scanner.Report
	AdReport = scanner.AdReport
	Match    = scanner.Match
	Pass     = scanner.Pass
)

// Version returns the module version of the adsift library.
// Returns "(devel)" when built from source without version info.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return "(unknown)"
}

// Adsift is the main entry point.
type Adsift struct {
	fetcher  fetcher.Fetcher
	scanner  *scanner.Scanner
	registry *site.Registry
	config   Config
}

var validate = validator.New()

// New creates a new Adsift instance.
func New(opts ...Option) (*Adsift, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Use injected fetcher or create a default static one
	f := cfg.Fetcher
	if f == nil {
		f = fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.Timeout,
			MaxBodySize: cfg.MaxBodySize,
		})
		if cfg.FlareSolverrURL != "" {
			f = fetcher.NewChallengeFallback(f, fetcher.NewFlareSolverr(fetcher.FlareSolverrConfig{
				URL: cfg.FlareSolverrURL,
			}))
		}
	}

	registry := cfg.Registry
	if registry == nil {
		registry = site.Builtin()
	}

	c := classifier.New(f, classifier.Config{
		APIEndpoint:  cfg.APIEndpoint,
		FetchOptions: fetcher.Options{UserAgent: cfg.UserAgent},
	})

	return &Adsift{
		fetcher:  f,
		scanner:  scanner.New(registry, c),
		registry: registry,
		config:   cfg,
	}, nil
}

// Sites returns the site profiles in resolution order.
func (a *Adsift) Sites() []site.Profile {
	return a.registry.Profiles()
}

// Scan starts one pass over pg without waiting for it.
func (a *Adsift) Scan(ctx context.Context, pg page.Page) (*Pass, error) {
	return a.scanner.Scan(ctx, pg)
}

// ScanOnce runs one pass over pg and waits for every classification.
func (a *Adsift) ScanOnce(ctx context.Context, pg page.Page) (Report, error) {
	pass, err := a.scanner.Scan(ctx, pg)
	if err != nil {
		return pass.Wait(), err
	}
	return pass.WaitAndRecover()
}

// ScanURL fetches the listing at rawURL and runs one pass over the fetched
// document. The returned page holds the document with the hides applied.
func (a *Adsift) ScanURL(ctx context.Context, rawURL string) (Report, *page.Static, error) {
	content, err := a.fetcher.Fetch(ctx, rawURL, fetcher.Options{UserAgent: a.config.UserAgent})
	if err != nil {
		return Report{}, nil, fmt.Errorf("failed to fetch listing: %w", err)
	}

	if challenge := fetcher.DetectChallenge("", string(content.Body)); challenge != "" {
		logger.Warn("listing answered with a challenge page", "url", rawURL, "type", challenge)
	}

	pg, err := page.NewStatic(rawURL, bytes.NewReader(content.Body))
	if err != nil {
		return Report{}, nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	report, err := a.ScanOnce(ctx, pg)
	return report, pg, err
}

// Watch scans pg on the configured schedule until ctx is done. Passes
// overlap; onReport, when set, is called from the pass goroutine once a
// pass has finished. Watch returns after every started pass, including its
// onReport call, has returned.
func (a *Adsift) Watch(ctx context.Context, pg page.Page, onReport func(Report)) error {
	log := logger.Component("watch").With("url", pg.URL().String())

	s, err := scheduler.New(a.config.Schedule, func(ctx context.Context) {
		pass, err := a.scanner.Scan(ctx, pg)
		if err != nil {
			log.Warn("scan pass failed", "error", err)
			return
		}
		report, err := pass.WaitAndRecover()
		if err != nil {
			log.Error("scan pass panicked", "error", err)
		}
		if report.Site != "" {
			log.Info("scan pass complete",
				"site", report.Site,
				"ads", len(report.Ads),
				"hidden", report.Hidden,
				"duration", report.Duration.Round(time.Millisecond))
		}
		if onReport != nil {
			onReport(report)
		}
	})
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// Close releases all resources.
func (a *Adsift) Close() error {
	if a.fetcher != nil {
		return a.fetcher.Close()
	}
	return nil
}
