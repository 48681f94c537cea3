package site

import "sync"

// IndexAPIEndpoint is the single-ad endpoint of the index.hr classifieds API.
const IndexAPIEndpoint = "https://www.index.hr/oglasi/api/aditem/single-ad"

// Built-in profiles, in resolution priority order.
var (
	Njuskalo = Profile{
		Name:          "njuskalo",
		Domain:        "njuskalo.hr",
		ListSelector:  "section.EntityList--Regular",
		ItemSelector:  "li.EntityList-item",
		HrefAttribute: "data-href",
		CheckSelectors: []string{
			"a.ClassifiedDetailOwnerDetails-logo",
			"a.ClassifiedDetailOwnerDetails-placeholderLogoWrapper",
		},
		Blacklist: []string{"agencija", "investitor", "trgovina", "tvrtka"},
		Strategy:  Strategy{Kind: ContentScan},
	}

	Oglasnik = Profile{
		Name:           "oglasnik",
		Domain:         "oglasnik.hr",
		ListSelector:   "#classifieds-list",
		ItemSelector:   "a.classified-box",
		HrefAttribute:  "href",
		CheckSelectors: []string{"div.top-details a"},
		Blacklist:      []string{"trgovina", "agencija", "investitor"},
		Strategy:       Strategy{Kind: ContentScan},
	}

	IndexOglasi = Profile{
		Name:           "index-oglasi",
		Domain:         "index.hr",
		ListSelector:   `div[class^="ant-row-flex paginationAds__adList"]`,
		ItemSelector:   "div.ant-col",
		HrefSelector:   `a[class^="AdLink__link"]`,
		CheckSelectors: []string{`div[class^="SellerInfo__info"]`},
		Blacklist:      []string{"Pravna osoba"},
		Strategy:       Strategy{Kind: APILookup, Endpoint: IndexAPIEndpoint},
	}
)

var (
	builtinOnce sync.Once
	builtin     *Registry
)

// Builtin returns the registry of compiled-in profiles. It panics if a
// built-in profile is invalid, which is a programming error.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		r, err := NewRegistry(Njuskalo, Oglasnik, IndexOglasi)
		if err != nil {
			panic(err)
		}
		builtin = r
	})
	return builtin
}
