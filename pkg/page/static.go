package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/adsift/pkg/site"
)

const hiddenStyle = "display: none"

// Static is a Page backed by an in-memory HTML document, e.g. a listing page
// fetched over plain HTTP. Hide rewrites the element's style attribute in the
// document and records the ad URL.
type Static struct {
	mu     sync.Mutex
	url    *url.URL
	doc    *goquery.Document
	hidden map[string]bool
}

// NewStatic parses r as the document located at rawURL.
func NewStatic(rawURL string, r io.Reader) (*Static, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("page URL must be absolute: %q", rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	doc.Url = u

	return &Static{
		url:    u,
		doc:    doc,
		hidden: make(map[string]bool),
	}, nil
}

// URL returns the page location.
func (p *Static) URL() *url.URL {
	u := *p.url
	return &u
}

// Snapshot returns a copy of the current document.
func (p *Static) Snapshot(_ context.Context) (*goquery.Document, error) {
	html, err := p.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Url = p.URL()
	return doc, nil
}

// Hide sets display:none on the ad's item element.
func (p *Static) Hide(_ context.Context, prof site.Profile, ad Ad) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.doc.Find(prof.ListSelector).First().Find(prof.ItemSelector)
	if ad.Index < 0 || ad.Index >= items.Length() {
		return fmt.Errorf("%w: %s", ErrElementNotFound, ad.URL)
	}

	item := items.Eq(ad.Index)
	style := strings.TrimSpace(item.AttrOr("style", ""))
	if !strings.Contains(style, hiddenStyle) {
		if style != "" {
			style = strings.TrimSuffix(style, ";") + "; "
		}
		item.SetAttr("style", style+hiddenStyle)
	}
	p.hidden[ad.URL] = true
	return nil
}

// IsHidden reports whether the ad at adURL has been hidden.
func (p *Static) IsHidden(adURL string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hidden[adURL]
}

// Hidden returns the URLs of hidden ads, sorted.
func (p *Static) Hidden() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.hidden))
	for u := range p.hidden {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// HTML renders the current document.
func (p *Static) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var buf bytes.Buffer
	if err := goquery.Render(&buf, p.doc.Selection); err != nil {
		return "", err
	}
	return buf.String(), nil
}
