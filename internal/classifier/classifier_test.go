package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jmylchreest/adsift/pkg/fetcher"
	"github.com/jmylchreest/adsift/pkg/site"
)

// recordingFetcher wraps a real fetcher and records requested URLs.
type recordingFetcher struct {
	fetcher.Fetcher
	mu   sync.Mutex
	urls []string
}

func (f *recordingFetcher) Fetch(ctx context.Context, url string, opts fetcher.Options) (fetcher.Content, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return f.Fetcher.Fetch(ctx, url, opts)
}

func newRecorder() *recordingFetcher {
	return &recordingFetcher{Fetcher: fetcher.NewStatic(fetcher.StaticConfig{})}
}

// --- ExtractAdCode / APIURL ---

func TestExtractAdCode(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.index.hr/oglasi/prodaja/stan/123456", "123456", false},
		{"https://www.index.hr/oglasi/prodaja/stan/123456/", "123456", false},
		{"https://www.index.hr/oglasi/auto/oglas/golf?code=123456", "123456", false},
		{"https://www.index.hr/oglasi/777/oglas?code=123456", "123456", false},
		{"https://www.index.hr/oglasi/stan-123456", "", true},
		{"https://www.index.hr/oglasi/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ExtractAdCode(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractAdCode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrNoAdCode) {
				t.Errorf("expected ErrNoAdCode, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractAdCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIURL_SameShapeForBothCodeForms(t *testing.T) {
	a, _ := ExtractAdCode("https://www.index.hr/oglasi/prodaja/stan/123456/")
	b, _ := ExtractAdCode("https://www.index.hr/oglasi/prodaja/stan?code=123456")

	want := "https://www.index.hr/oglasi/api/aditem/single-ad?code=123456&format=1"
	if got := APIURL(site.IndexAPIEndpoint, a); got != want {
		t.Errorf("APIURL(path code) = %q, want %q", got, want)
	}
	if got := APIURL(site.IndexAPIEndpoint, b); got != want {
		t.Errorf("APIURL(query code) = %q, want %q", got, want)
	}
}

// --- API lookup ---

func TestLookup_LegalEntity(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantHide bool
		wantErr  bool
	}{
		{"legal entity", 200, `{"data":[{"legalEntity":2}]}`, true, false},
		{"private person", 200, `{"data":[{"legalEntity":1}]}`, false, false},
		{"zero", 200, `{"data":[{"legalEntity":0}]}`, false, false},
		{"null", 200, `{"data":[{"legalEntity":null}]}`, false, false},
		{"string two", 200, `{"data":[{"legalEntity":"2"}]}`, false, false},
		{"only first record counts", 200, `{"data":[{"legalEntity":1},{"legalEntity":2}]}`, false, false},
		{"empty data", 200, `{"data":[]}`, false, false},
		{"empty object", 200, `{}`, false, false},
		{"empty body", 200, ``, false, true},
		{"malformed", 200, `{"data":[{"legalEntity":2}`, false, true},
		{"server error", 500, `{"data":[{"legalEntity":2}]}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := New(fetcher.NewStatic(fetcher.StaticConfig{}), Config{})
			v := c.Lookup(context.Background(), srv.URL+"/single-ad", "https://www.index.hr/oglasi/prodaja/stan/123456")

			if v.Hide != tt.wantHide {
				t.Errorf("Hide = %v, want %v", v.Hide, tt.wantHide)
			}
			if (v.Err != nil) != tt.wantErr {
				t.Errorf("Err = %v, wantErr %v", v.Err, tt.wantErr)
			}
			if gotQuery != "code=123456&format=1" {
				t.Errorf("API query = %q", gotQuery)
			}
			if v.Strategy != site.APILookup {
				t.Errorf("Strategy = %v", v.Strategy)
			}
		})
	}
}

func TestLookup_NoCodeMakesNoRequest(t *testing.T) {
	rec := newRecorder()
	c := New(rec, Config{})

	v := c.Lookup(context.Background(), "http://127.0.0.1:1/unused", "https://www.index.hr/oglasi/stan-u-centru")
	if v.Hide {
		t.Error("expected do-not-hide without ad code")
	}
	if !errors.Is(v.Err, ErrNoAdCode) {
		t.Errorf("expected ErrNoAdCode, got %v", v.Err)
	}
	if len(rec.urls) != 0 {
		t.Errorf("expected no requests, got %v", rec.urls)
	}
}

func TestLookup_NetworkFailureIsFailOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	c := New(fetcher.NewStatic(fetcher.StaticConfig{}), Config{})
	v := c.Lookup(context.Background(), endpoint, "https://www.index.hr/oglasi/x/42")
	if v.Hide || v.Err == nil {
		t.Errorf("expected fail-open with error, got %+v", v)
	}
}

// --- Content scan ---

const adPage = `<html><body>
<div class="ClassifiedDetailOwnerDetails">
  <a class="ClassifiedDetailOwnerDetails-logo" href="/trgovina/nekretnine-plus">Logo</a>
  <a class="ClassifiedDetailOwnerDetails-placeholderLogoWrapper" href="/korisnik/ivan">Ivan</a>
</div>
<div class="top-details"><a href="/profil/x">Agencija za nekretnine</a></div>
<div class="top-details"><span>Agencija in a span</span></div>
<p class="private">Privatni oglas</p>
</body></html>`

func adServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, adPage)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScanRegion(t *testing.T) {
	srv := adServer(t)

	tests := []struct {
		name      string
		path      string
		region    string
		blacklist []string
		wantHide  bool
		wantMatch string
		wantErr   bool
	}{
		{"match in href", "/ad/1", "a.ClassifiedDetailOwnerDetails-logo", []string{"agencija", "trgovina"}, true, "trgovina", false},
		{"match in text case-insensitive", "/ad/1", "div.top-details a", []string{"AGENCIJA"}, true, "AGENCIJA", false},
		{"multi-word term", "/ad/1", "div.top-details a", []string{"agencija za"}, true, "agencija za", false},
		{"no match", "/ad/1", "a.ClassifiedDetailOwnerDetails-placeholderLogoWrapper", []string{"agencija", "tvrtka"}, false, "", false},
		{"region absent", "/ad/1", "div.SellerInfo__info", []string{"agencija"}, false, "", false},
		{"http error fails open", "/missing", "div.top-details a", []string{"agencija"}, false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(fetcher.NewStatic(fetcher.StaticConfig{}), Config{})
			v := c.ScanRegion(context.Background(), srv.URL+tt.path, tt.region, tt.blacklist)

			if v.Hide != tt.wantHide {
				t.Errorf("Hide = %v, want %v", v.Hide, tt.wantHide)
			}
			if v.Match != tt.wantMatch {
				t.Errorf("Match = %q, want %q", v.Match, tt.wantMatch)
			}
			if (v.Err != nil) != tt.wantErr {
				t.Errorf("Err = %v, wantErr %v", v.Err, tt.wantErr)
			}
			if v.Region != tt.region {
				t.Errorf("Region = %q", v.Region)
			}
		})
	}
}

func TestMatchBlacklist(t *testing.T) {
	tests := []struct {
		href, text string
		blacklist  []string
		want       string
		ok         bool
	}{
		{"", "Agencija za nekretnine", []string{"agencija", "tvrtka"}, "agencija", true},
		{"https://x.hr/tvrtka/1", "Ivan", []string{"agencija", "tvrtka"}, "tvrtka", true},
		{"", "Pravna osoba", []string{"Pravna osoba"}, "Pravna osoba", true},
		{"", "Fizička osoba", []string{"Pravna osoba"}, "", false},
		{"", "anything", []string{""}, "", false},
		{"", "", nil, "", false},
	}

	for _, tt := range tests {
		got, ok := MatchBlacklist(tt.href, tt.text, tt.blacklist)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MatchBlacklist(%q, %q) = %q, %v; want %q, %v", tt.href, tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

// --- Dispatch ---

func TestClassify_DispatchesOnStrategy(t *testing.T) {
	var apiHits, pageHits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Path == "/api" {
			apiHits++
			_, _ = fmt.Fprint(w, `{"data":[{"legalEntity":2}]}`)
			return
		}
		pageHits++
		_, _ = fmt.Fprint(w, adPage)
	}))
	defer srv.Close()

	c := New(fetcher.NewStatic(fetcher.StaticConfig{}), Config{APIEndpoint: srv.URL + "/api"})
	ctx := context.Background()

	v := c.Classify(ctx, site.IndexOglasi, "https://www.index.hr/oglasi/stan/123456", site.IndexOglasi.CheckSelectors[0])
	if !v.Hide || v.Strategy != site.APILookup || v.Match != "legalEntity=2" {
		t.Errorf("unexpected API verdict %+v", v)
	}

	v = c.Classify(ctx, site.Oglasnik, srv.URL+"/ad/9", site.Oglasnik.CheckSelectors[0])
	if !v.Hide || v.Strategy != site.ContentScan || v.Match != "agencija" {
		t.Errorf("unexpected content verdict %+v", v)
	}

	if apiHits != 1 || pageHits != 1 {
		t.Errorf("expected one request per strategy, got api=%d page=%d", apiHits, pageHits)
	}
}
