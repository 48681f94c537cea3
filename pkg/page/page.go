// Package page abstracts the listing page adsift works on: where it is, what
// its DOM currently looks like, and the one mutation adsift performs on it.
package page

import (
	"context"
	"errors"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/adsift/pkg/site"
)

// Ad is a candidate listing found on the page during one scan pass.
type Ad struct {
	Index int    // position among the profile's items under the list container
	URL   string // absolute URL of the ad detail page
}

// Page is the document a scan pass runs against.
type Page interface {
	// URL returns the current location of the page.
	URL() *url.URL

	// Snapshot returns a parsed copy of the current DOM. The copy is not
	// updated by later page changes.
	Snapshot(ctx context.Context) (*goquery.Document, error)

	// Hide sets display:none on the element of ad. Hiding an element that
	// is already hidden is a no-op.
	Hide(ctx context.Context, p site.Profile, ad Ad) error
}

// ErrElementNotFound is returned by Hide when the ad's element is no longer
// on the page.
var ErrElementNotFound = errors.New("ad element not found")

// Origin returns scheme://host of u, the base used for attribute URLs.
func Origin(u *url.URL) *url.URL {
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
}
