// Package site holds the per-domain profiles that tell adsift where the ad
// list lives on a listing page, how to get each ad's URL, where the owner
// details sit on the ad page and which owner types to hide.
package site

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// StrategyKind selects how an ad is classified.
type StrategyKind int

const (
	// ContentScan fetches the ad detail page and scans check regions for
	// blacklisted terms.
	ContentScan StrategyKind = iota
	// APILookup asks the site's ad API for the legal entity flag.
	APILookup
)

func (k StrategyKind) String() string {
	switch k {
	case ContentScan:
		return "content-scan"
	case APILookup:
		return "api-lookup"
	default:
		return fmt.Sprintf("strategy(%d)", int(k))
	}
}

// Strategy is the tagged classification strategy of a profile.
// Endpoint is only meaningful for APILookup.
type Strategy struct {
	Kind     StrategyKind
	Endpoint string `validate:"required_if=Kind 1"`
}

// Profile describes one supported classifieds site.
type Profile struct {
	Name   string `validate:"required"`
	Domain string `validate:"required,hostname"`

	ListSelector string `validate:"required"`
	ItemSelector string `validate:"required"`

	// Exactly one of HrefAttribute and HrefSelector is set.
	HrefAttribute string `validate:"required_without=HrefSelector,excluded_with=HrefSelector"`
	HrefSelector  string `validate:"required_without=HrefAttribute"`

	CheckSelectors []string `validate:"min=1,dive,required"`
	Blacklist      []string `validate:"min=1,dive,required"`

	Strategy Strategy
}

// Clone returns a deep copy so callers cannot mutate registered profiles.
func (p Profile) Clone() Profile {
	p.CheckSelectors = slices.Clone(p.CheckSelectors)
	p.Blacklist = slices.Clone(p.Blacklist)
	return p
}

// ErrInvalidProfile is returned when a profile fails validation.
var ErrInvalidProfile = errors.New("invalid site profile")

var validate = validator.New()

// Validate checks the profile's structural rules.
func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, e := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("%w %q: %s", ErrInvalidProfile, p.Name, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w %q: %v", ErrInvalidProfile, p.Name, err)
	}
	return nil
}
