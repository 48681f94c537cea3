package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/tidwall/gjson"

	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/pkg/site"
)

// LegalEntityFlag is the legalEntity value the API reports for businesses.
const LegalEntityFlag = 2

// ErrNoAdCode is returned when no numeric ad code can be found in a URL.
var ErrNoAdCode = errors.New("no ad code in URL")

// ErrInvalidResponse indicates the API answered with something that is not JSON.
var ErrInvalidResponse = errors.New("invalid API response")

var (
	codeParamPattern   = regexp.MustCompile(`code=(\d+)`)
	codeSegmentPattern = regexp.MustCompile(`/(\d+)(/|$)`)
)

// ExtractAdCode finds the numeric ad code in adURL: a code= query parameter
// first, then an all-digit path segment.
func ExtractAdCode(adURL string) (string, error) {
	if m := codeParamPattern.FindStringSubmatch(adURL); m != nil {
		return m[1], nil
	}
	if m := codeSegmentPattern.FindStringSubmatch(adURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoAdCode, adURL)
}

// APIURL builds the single-ad request URL for code.
func APIURL(endpoint, code string) string {
	q := url.Values{}
	q.Set("code", code)
	q.Set("format", "1")
	return endpoint + "?" + q.Encode()
}

// Lookup asks the ad API whether the ad was posted by a legal entity.
func (c *Classifier) Lookup(ctx context.Context, endpoint, adURL string) Verdict {
	v := Verdict{Strategy: site.APILookup}

	code, err := ExtractAdCode(adURL)
	if err != nil {
		logger.Warn("could not extract ad code", "url", adURL)
		v.Err = err
		return v
	}

	apiURL := APIURL(endpoint, code)
	content, err := c.fetcher.Fetch(ctx, apiURL, c.config.FetchOptions)
	if err != nil {
		logger.Error("ad lookup failed", "url", adURL, "api", apiURL, "error", err)
		v.Err = err
		return v
	}

	if !gjson.ValidBytes(content.Body) {
		v.Err = fmt.Errorf("%w: %s", ErrInvalidResponse, apiURL)
		logger.Error("ad lookup failed", "url", adURL, "api", apiURL, "error", v.Err)
		return v
	}

	flag := gjson.GetBytes(content.Body, "data.0.legalEntity")
	if flag.Type == gjson.Number && flag.Num == LegalEntityFlag {
		logger.Info("legal entity ad", "code", code, "url", adURL)
		v.Hide = true
		v.Match = fmt.Sprintf("legalEntity=%d", LegalEntityFlag)
	}
	return v
}
