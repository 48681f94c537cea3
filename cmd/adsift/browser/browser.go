package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/pkg/fetcher"
)

// Browser is a running Chrome instance.
type Browser struct {
	config      Config
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

// New prepares a browser allocator. Chrome itself is started by the first
// Open.
func New(cfg Config) *Browser {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.Stealth {
		opts = append(opts, stealthAllocatorOptions()...)
	}
	if chromePath := FindChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("browser created",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth)

	return &Browser{config: cfg, allocCtx: allocCtx, cancelAlloc: cancel}
}

// Open starts a new tab, navigates it to rawURL and waits until the body is
// ready. Loading is bounded by LoadTimeout.
func (b *Browser) Open(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	// The first Run starts the browser and the tab. It must not carry the
	// load deadline or the tab dies with it.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	var actions []chromedp.Action
	if b.config.Stealth {
		actions = append(actions, injectStealthScript())
	}
	var location, title, html string
	actions = append(actions,
		chromedp.Navigate(u.String()),
		chromedp.WaitReady("body"),
		chromedp.Location(&location),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	loadCtx, cancelLoad := context.WithTimeout(tabCtx, LoadTimeout)
	defer cancelLoad()
	stop := context.AfterFunc(ctx, cancelLoad)
	defer stop()

	logger.Debug("loading page", "url", u.String(), "timeout", LoadTimeout)
	if err := chromedp.Run(loadCtx, actions...); err != nil {
		cancelTab()
		if errors.Is(loadCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrLoadTimeout, u)
		}
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	if challenge := fetcher.DetectChallenge(title, html); challenge != "" {
		logger.Warn("challenge page served instead of the listing, try --stealth or --headless=false",
			"url", location, "type", challenge)
	}

	pg := &Page{tab: tabCtx, closeTab: cancelTab, url: u}
	pg.setLocation(location)
	logger.Info("page loaded", "url", pg.URL().String())
	return pg, nil
}

// Close shuts down Chrome and every tab opened from it.
func (b *Browser) Close() error {
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
	return nil
}
