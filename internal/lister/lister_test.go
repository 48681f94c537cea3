package lister

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/adsift/pkg/page"
	"github.com/jmylchreest/adsift/pkg/site"
)

// readTestdata parses a file from the testdata directory
func readTestdata(t *testing.T, filename string) *goquery.Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", filename, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("failed to parse testdata %s: %v", filename, err)
	}
	return doc
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	return u
}

func TestList_HrefAttribute(t *testing.T) {
	doc := readTestdata(t, "njuskalo_list.html")
	pageURL := mustURL(t, "https://www.njuskalo.hr/prodaja-stanova/zagreb")

	ads := List(doc, site.Njuskalo, pageURL)

	want := []page.Ad{
		{Index: 0, URL: "https://www.njuskalo.hr/nekretnine/stan-zagreb-oglas-101"},
		{Index: 2, URL: "https://www.njuskalo.hr/nekretnine/stan-split-oglas-102"},
		{Index: 3, URL: "https://www.njuskalo.hr/"},
		{Index: 4, URL: "https://www.njuskalo.hr/nekretnine/stan-rijeka-oglas-103"},
	}
	if len(ads) != len(want) {
		t.Fatalf("expected %d ads, got %d: %v", len(want), len(ads), ads)
	}
	for i := range want {
		if ads[i] != want[i] {
			t.Errorf("ad %d = %+v, want %+v", i, ads[i], want[i])
		}
	}
}

func TestList_HrefSelector(t *testing.T) {
	doc := readTestdata(t, "index_list.html")
	pageURL := mustURL(t, "https://www.index.hr/oglasi/nekretnine?page=2")

	ads := List(doc, site.IndexOglasi, pageURL)

	want := []page.Ad{
		{Index: 0, URL: "https://www.index.hr/oglasi/prodaja/stan/oglas/stan-u-centru/123456"},
		{Index: 3, URL: "https://www.index.hr/oglasi/auto/oglas/golf?code=654321"},
	}
	if len(ads) != len(want) {
		t.Fatalf("expected %d ads, got %d: %v", len(want), len(ads), ads)
	}
	for i := range want {
		if ads[i] != want[i] {
			t.Errorf("ad %d = %+v, want %+v", i, ads[i], want[i])
		}
	}
}

func TestList_MissingContainer(t *testing.T) {
	doc := readTestdata(t, "index_list.html")
	pageURL := mustURL(t, "https://www.njuskalo.hr/")

	if ads := List(doc, site.Njuskalo, pageURL); len(ads) != 0 {
		t.Errorf("expected no ads without list container, got %v", ads)
	}
}

func TestResolve(t *testing.T) {
	base := mustURL(t, "https://www.oglasnik.hr/")

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"/stanovi/oglas-1", "https://www.oglasnik.hr/stanovi/oglas-1", true},
		{"https://www.oglasnik.hr/x", "https://www.oglasnik.hr/x", true},
		{"  /padded  ", "https://www.oglasnik.hr/padded", true},
		{"", "", false},
		{"#", "https://www.oglasnik.hr/", true},
		{"#galerija", "https://www.oglasnik.hr/#galerija", true},
		{"JavaScript:void(0)", "", false},
		{"mailto:someone@example.com", "", false},
		{"http://[::1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Resolve(base, tt.raw)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
			}
		})
	}
}
