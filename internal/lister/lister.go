// Package lister finds the candidate ads on a listing page.
package lister

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/pkg/page"
	"github.com/jmylchreest/adsift/pkg/site"
)

// List returns the ads under the profile's list container in doc. pageURL is
// the location of the document. A missing container yields no ads; items
// without a usable URL are skipped.
func List(doc *goquery.Document, p site.Profile, pageURL *url.URL) []page.Ad {
	list := doc.Find(p.ListSelector).First()
	if list.Length() == 0 {
		logger.Debug("list container not found", "site", p.Name, "selector", p.ListSelector)
		return nil
	}

	origin := page.Origin(pageURL)

	var ads []page.Ad
	list.Find(p.ItemSelector).Each(func(i int, item *goquery.Selection) {
		var (
			raw  string
			base *url.URL
		)
		if p.HrefAttribute != "" {
			// Attribute values are taken as-is and resolved against the
			// site origin.
			raw, _ = item.Attr(p.HrefAttribute)
			base = origin
		} else {
			// A link's href resolves against the document location, as the
			// DOM href property does.
			raw, _ = item.Find(p.HrefSelector).First().Attr("href")
			base = pageURL
		}

		adURL, ok := Resolve(base, raw)
		if !ok {
			logger.Debug("skipping item without URL", "site", p.Name, "index", i)
			return
		}
		ads = append(ads, page.Ad{Index: i, URL: adURL})
	})

	return ads
}

// Resolve turns raw into an absolute URL relative to base. Empty references
// and anything that does not resolve to http(s), such as javascript: links,
// are rejected. Fragment references resolve to the base like any other
// relative reference.
func Resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "javascript:") {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() {
		if base == nil {
			return "", false
		}
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	return ref.String(), true
}
