package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/adsift/pkg/page"
	"github.com/jmylchreest/adsift/pkg/site"
)

const listingHTML = `<html><body>
<section class="EntityList EntityList--Regular"><ul>
<li class="EntityList-item" data-href="/oglas/A">A</li>
<li class="EntityList-item" data-href="/oglas/B">B</li>
<li class="EntityList-item" data-href="/oglas/C">C</li>
</ul></section>
</body></html>`

// openListing starts Chrome on a local njuskalo style listing. Tests using
// it are skipped when no Chrome binary is installed.
func openListing(t *testing.T) (*Page, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if FindChromePath() == "" {
		t.Skip("Chrome not installed")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingHTML)
	}))
	t.Cleanup(srv.Close)

	b := New(DefaultConfig())
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pg, err := b.Open(ctx, srv.URL+"/prodaja-stanova")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = pg.Close() })
	return pg, srv.URL
}

// displayStates returns item text mapped to its inline display style.
func displayStates(t *testing.T, pg *Page) map[string]string {
	t.Helper()
	var states map[string]string
	err := pg.run(context.Background(), chromedp.Evaluate(`Object.fromEntries(
		Array.from(document.querySelectorAll("li.EntityList-item")).map((e) => [e.textContent, e.style.display]))`, &states))
	if err != nil {
		t.Fatalf("failed to read display states: %v", err)
	}
	return states
}

func TestPage_SnapshotAndURL(t *testing.T) {
	pg, base := openListing(t)

	doc, err := pg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if n := doc.Find("li.EntityList-item").Length(); n != 3 {
		t.Errorf("expected 3 items in snapshot, got %d", n)
	}
	if got := pg.URL().String(); got != base+"/prodaja-stanova" {
		t.Errorf("URL() = %s", got)
	}
}

func TestPage_HideMatchesByURL(t *testing.T) {
	pg, base := openListing(t)
	ctx := context.Background()

	// B is at snapshot index 1.
	if err := pg.Hide(ctx, site.Njuskalo, page.Ad{Index: 1, URL: base + "/oglas/B"}); err != nil {
		t.Fatalf("Hide() error = %v", err)
	}
	// Hiding twice is a no-op.
	if err := pg.Hide(ctx, site.Njuskalo, page.Ad{Index: 1, URL: base + "/oglas/B"}); err != nil {
		t.Fatalf("second Hide() error = %v", err)
	}

	states := displayStates(t, pg)
	if states["B"] != "none" || states["A"] != "" || states["C"] != "" {
		t.Errorf("only B should be hidden, got %v", states)
	}
}

func TestPage_HideAfterListRerender(t *testing.T) {
	pg, base := openListing(t)
	ctx := context.Background()

	// The list re-renders between snapshot and hide: A is removed, so B and
	// C shift one position up.
	err := pg.run(ctx, chromedp.Evaluate(`document.querySelector("li.EntityList-item").remove()`, nil))
	if err != nil {
		t.Fatalf("failed to remove item: %v", err)
	}

	err = pg.Hide(ctx, site.Njuskalo, page.Ad{Index: 0, URL: base + "/oglas/A"})
	if !errors.Is(err, page.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound for a removed ad, got %v", err)
	}
	states := displayStates(t, pg)
	if states["B"] != "" || states["C"] != "" {
		t.Fatalf("a removed ad must not hide the item now at its index, got %v", states)
	}

	// C was classified at index 2 and now sits at index 1.
	if err := pg.Hide(ctx, site.Njuskalo, page.Ad{Index: 2, URL: base + "/oglas/C"}); err != nil {
		t.Fatalf("Hide() error = %v", err)
	}
	states = displayStates(t, pg)
	if states["C"] != "none" || states["B"] != "" {
		t.Errorf("only C should be hidden, got %v", states)
	}
	if _, ok := states["A"]; ok {
		t.Errorf("A should be gone, got %v", states)
	}
}

func TestPage_ConcurrentHidesAndSnapshots(t *testing.T) {
	pg, base := openListing(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i, name := range []string{"A", "B", "C"} {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- pg.Hide(ctx, site.Njuskalo, page.Ad{Index: i, URL: base + "/oglas/" + name})
		}()
		go func() {
			defer wg.Done()
			_, err := pg.Snapshot(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent call failed: %v", err)
		}
	}
	for name, display := range displayStates(t, pg) {
		if display != "none" {
			t.Errorf("%s not hidden: %q", name, display)
		}
	}
}
