// Package scanner runs scan passes: resolve the site profile, list the ads,
// then classify and hide every ad concurrently.
package scanner

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/jmylchreest/adsift/internal/classifier"
	"github.com/jmylchreest/adsift/internal/hider"
	"github.com/jmylchreest/adsift/internal/lister"
	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/pkg/page"
	"github.com/jmylchreest/adsift/pkg/site"
)

// Classifier decides one (ad, region) pair.
type Classifier interface {
	Classify(ctx context.Context, p site.Profile, adURL, region string) classifier.Verdict
}

// Scanner holds the read-only pieces shared by all passes. It keeps no state
// between passes, so passes may overlap freely.
type Scanner struct {
	registry   *site.Registry
	classifier Classifier
}

// New creates a scanner.
func New(registry *site.Registry, c Classifier) *Scanner {
	if registry == nil {
		registry = site.Builtin()
	}
	return &Scanner{registry: registry, classifier: c}
}

// Scan starts one pass over pg and returns as soon as every classification
// task has been dispatched. Call Pass.Wait to block until they finish.
//
// An unknown hostname yields an empty pass without touching the page. A
// missing list container yields an empty pass. An error is only returned
// when the page itself cannot be read.
func (s *Scanner) Scan(ctx context.Context, pg page.Page) (*Pass, error) {
	pageURL := pg.URL()
	pass := newPass(pageURL.String())

	prof, ok := s.registry.Resolve(pageURL.Hostname())
	if !ok {
		logger.Debug("no site profile for host", "host", pageURL.Hostname())
		return pass, nil
	}
	pass.report.Site = prof.Name

	doc, err := pg.Snapshot(ctx)
	if err != nil {
		return pass, fmt.Errorf("failed to read page: %w", err)
	}

	ads := lister.List(doc, prof, pageURL)
	logger.With("site", prof.Name, "url", pass.report.URL).Debug("scan pass", "ads", len(ads))

	for _, ad := range ads {
		pass.track(ad)
		for _, region := range regionsFor(prof) {
			pass.wg.Go(func() {
				v := s.classifier.Classify(ctx, prof, ad.URL, region)
				hidden := hider.Apply(ctx, pg, prof, ad, v.Hide)
				pass.record(ad, v, hidden)
			})
		}
	}

	return pass, nil
}

// regionsFor returns the check regions a pass dispatches per ad. API lookups
// do not depend on the region, so they run once per ad.
func regionsFor(p site.Profile) []string {
	if p.Strategy.Kind == site.APILookup {
		return p.CheckSelectors[:1]
	}
	return p.CheckSelectors
}

// Match is one positive classification of an ad.
type Match struct {
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	Term   string `json:"term" yaml:"term"`
}

// AdReport is the outcome of a pass for one ad.
type AdReport struct {
	URL     string  `json:"url" yaml:"url"`
	Hidden  bool    `json:"hidden" yaml:"hidden"`
	Matches []Match `json:"matches,omitempty" yaml:"matches,omitempty"`
	Errors  int     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Report summarizes a finished pass.
type Report struct {
	URL       string        `json:"url" yaml:"url"`
	Site      string        `json:"site,omitempty" yaml:"site,omitempty"`
	ScannedAt time.Time     `json:"scanned_at" yaml:"scanned_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`
	Ads       []AdReport    `json:"ads" yaml:"ads"`
	Hidden    int           `json:"hidden" yaml:"hidden"`
}

// Pass is one in-flight scan pass.
type Pass struct {
	wg conc.WaitGroup

	mu     sync.Mutex
	report Report
	ads    map[string]*AdReport
	order  []string
}

func newPass(pageURL string) *Pass {
	return &Pass{
		report: Report{URL: pageURL, ScannedAt: time.Now()},
		ads:    make(map[string]*AdReport),
	}
}

func (p *Pass) track(ad page.Ad) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.ads[ad.URL]; ok {
		return
	}
	p.ads[ad.URL] = &AdReport{URL: ad.URL}
	p.order = append(p.order, ad.URL)
}

func (p *Pass) record(ad page.Ad, v classifier.Verdict, hidden bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.ads[ad.URL]
	if v.Err != nil {
		r.Errors++
	}
	if v.Hide {
		r.Matches = append(r.Matches, Match{Region: v.Region, Term: v.Match})
	}
	if hidden {
		r.Hidden = true
	}
}

// Wait blocks until every task of the pass has completed and returns the
// pass report. A panic in a task is re-raised here.
func (p *Pass) Wait() Report {
	p.wg.Wait()
	return p.snapshot()
}

// WaitAndRecover is like Wait but returns a task panic as an error.
func (p *Pass) WaitAndRecover() (Report, error) {
	if r := p.wg.WaitAndRecover(); r != nil {
		return p.snapshot(), r.AsError()
	}
	return p.snapshot(), nil
}

func (p *Pass) snapshot() Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.report
	out.Duration = time.Since(out.ScannedAt)
	out.Ads = make([]AdReport, 0, len(p.order))
	out.Hidden = 0
	for _, u := range p.order {
		r := *p.ads[u]
		r.Matches = slices.Clone(r.Matches)
		slices.SortFunc(r.Matches, func(a, b Match) int {
			return cmp.Compare(a.Region, b.Region)
		})
		if r.Hidden {
			out.Hidden++
		}
		out.Ads = append(out.Ads, r)
	}
	return out
}
