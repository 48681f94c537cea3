package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/pkg/page"
	"github.com/jmylchreest/adsift/pkg/site"
)

// Page is a live browser tab implementing page.Page. Snapshot and Hide run
// one at a time against the tab.
type Page struct {
	tab      context.Context
	closeTab context.CancelFunc

	runMu sync.Mutex // held for the duration of a chromedp.Run

	mu  sync.Mutex
	url *url.URL
}

var _ page.Page = (*Page)(nil)

// URL returns the tab location as of the last load or snapshot.
func (p *Page) URL() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := *p.url
	return &u
}

func (p *Page) setLocation(location string) {
	u, err := url.Parse(location)
	if err != nil || !u.IsAbs() {
		return
	}
	p.mu.Lock()
	p.url = u
	p.mu.Unlock()
}

// Snapshot reads the tab's current DOM.
func (p *Page) Snapshot(ctx context.Context) (*goquery.Document, error) {
	var html, location string
	err := p.run(ctx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read DOM: %w", err)
	}
	p.setLocation(location)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOM: %w", err)
	}
	doc.Url = p.URL()
	return doc, nil
}

// Hide sets display:none on the ad's element in the tab.
func (p *Page) Hide(ctx context.Context, prof site.Profile, ad page.Ad) error {
	script, err := hideScript(prof, ad)
	if err != nil {
		return err
	}

	var res string
	if err := p.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return fmt.Errorf("failed to hide ad: %w", err)
	}
	return hideResult(res, ad)
}

// Close closes the tab.
func (p *Page) Close() error {
	if p.closeTab != nil {
		p.closeTab()
	}
	return nil
}

// run executes actions on the tab, aborting them when ctx is done without
// closing the tab. Concurrent callers queue behind each other.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(p.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// hideParams is passed to hideJS as a JSON literal.
type hideParams struct {
	List  string `json:"list"`
	Item  string `json:"item"`
	Attr  string `json:"attr,omitempty"`
	Link  string `json:"link,omitempty"`
	URL   string `json:"url"`
	Index int    `json:"index"`
}

// hideJS locates the ad item the same way the lister does and hides it.
// Only an item whose resolved URL equals the classified ad URL is ever
// hidden. The snapshot index is tried first so duplicate listings of one ad
// resolve to the same element; if the list re-rendered, the item is searched
// by URL. No match leaves the list untouched.
const hideJS = `(function(p) {
    const list = document.querySelector(p.list);
    if (!list) return "missing";
    const items = Array.from(list.querySelectorAll(p.item));
    const urlOf = (el) => {
        try {
            if (p.attr) {
                const v = el.getAttribute(p.attr);
                return v ? new URL(v, location.origin).href : "";
            }
            const a = el.querySelector(p.link);
            return a && a.href ? a.href : "";
        } catch (e) {
            return "";
        }
    };
    const at = items[p.index];
    const el = at && urlOf(at) === p.url ? at : items.find((it) => urlOf(it) === p.url);
    if (!el) return "missing";
    if (el.style.display === "none") return "already";
    el.style.display = "none";
    return "hidden";
})(%s)`

func hideScript(prof site.Profile, ad page.Ad) (string, error) {
	params, err := json.Marshal(hideParams{
		List:  prof.ListSelector,
		Item:  prof.ItemSelector,
		Attr:  prof.HrefAttribute,
		Link:  prof.HrefSelector,
		URL:   ad.URL,
		Index: ad.Index,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(hideJS, params), nil
}

func hideResult(res string, ad page.Ad) error {
	switch res {
	case "hidden":
		logger.Debug("ad hidden in tab", "url", ad.URL)
		return nil
	case "already":
		return nil
	case "missing":
		return fmt.Errorf("%w: %s", page.ErrElementNotFound, ad.URL)
	default:
		return fmt.Errorf("unexpected hide result %q for %s", res, ad.URL)
	}
}
