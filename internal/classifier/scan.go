package classifier

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/pkg/site"
)

// ScanRegion fetches the ad detail page and looks for a blacklist term in
// the href or text of every element matching region.
func (c *Classifier) ScanRegion(ctx context.Context, adURL, region string, blacklist []string) Verdict {
	v := Verdict{Strategy: site.ContentScan, Region: region}

	content, err := c.fetcher.Fetch(ctx, adURL, c.config.FetchOptions)
	if err != nil {
		logger.Error("ad fetch failed", "url", adURL, "error", err)
		v.Err = err
		return v
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content.Body))
	if err != nil {
		v.Err = fmt.Errorf("failed to parse ad page: %w", err)
		logger.Error("ad fetch failed", "url", adURL, "error", v.Err)
		return v
	}

	base, _ := url.Parse(adURL)

	doc.Find(region).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		href := elementHref(el, base)
		text := el.Text()
		if term, ok := MatchBlacklist(href, text, blacklist); ok {
			logger.Info("blacklisted owner", "url", adURL, "term", term, "region", region)
			v.Hide = true
			v.Match = term
			return false
		}
		return true
	})

	return v
}

// MatchBlacklist returns the first term contained, case-insensitively, in
// href or text.
func MatchBlacklist(href, text string, blacklist []string) (string, bool) {
	href = strings.ToLower(href)
	text = strings.ToLower(text)
	for _, term := range blacklist {
		t := strings.ToLower(term)
		if t == "" {
			continue
		}
		if strings.Contains(href, t) || strings.Contains(text, t) {
			return term, true
		}
	}
	return "", false
}

// elementHref returns the absolute href of a link element, or "" for
// anything else.
func elementHref(el *goquery.Selection, base *url.URL) string {
	if goquery.NodeName(el) != "a" && goquery.NodeName(el) != "area" {
		return ""
	}
	raw, ok := el.Attr("href")
	if !ok {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	return ref.String()
}
