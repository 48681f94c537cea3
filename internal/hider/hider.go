// Package hider applies hide decisions to the page.
package hider

import (
	"context"
	"errors"

	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/pkg/page"
	"github.com/jmylchreest/adsift/pkg/site"
)

// Apply hides ad when hide is set and reports whether the page was asked to
// hide it. There is no reverse operation. Failures are logged, never
// returned: an ad that cannot be hidden stays visible.
func Apply(ctx context.Context, pg page.Page, p site.Profile, ad page.Ad, hide bool) bool {
	if !hide {
		return false
	}

	if err := pg.Hide(ctx, p, ad); err != nil {
		if errors.Is(err, page.ErrElementNotFound) {
			logger.Debug("ad element gone before hide", "url", ad.URL)
		} else {
			logger.Warn("failed to hide ad", "url", ad.URL, "error", err)
		}
		return false
	}

	logger.Debug("ad hidden", "site", p.Name, "url", ad.URL)
	return true
}
