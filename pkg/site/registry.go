package site

import (
	"fmt"
	"strings"
	"sync"
)

// Matcher reports whether a hostname belongs to a profile.
type Matcher func(hostname string) bool

// HostContains matches any hostname containing domain, so "www.njuskalo.hr"
// and "njuskalo.hr" both match "njuskalo.hr".
func HostContains(domain string) Matcher {
	domain = strings.ToLower(domain)
	return func(hostname string) bool {
		return strings.Contains(strings.ToLower(hostname), domain)
	}
}

type entry struct {
	match   Matcher
	profile Profile
}

// Registry is an ordered dispatch table from hostname matchers to profiles.
// Entries are consulted in registration order and the first match wins.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry creates a registry from profiles, each matched by
// HostContains on its Domain, in the given priority order.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{}
	for _, p := range profiles {
		if err := r.Register(HostContains(p.Domain), p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a profile at the lowest priority.
func (r *Registry) Register(match Matcher, p Profile) error {
	if match == nil {
		return fmt.Errorf("%w %q: nil matcher", ErrInvalidProfile, p.Name)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.profile.Name == p.Name {
			return fmt.Errorf("%w %q: duplicate name", ErrInvalidProfile, p.Name)
		}
	}
	r.entries = append(r.entries, entry{match: match, profile: p.Clone()})
	return nil
}

// Resolve returns the first profile whose matcher accepts hostname.
func (r *Registry) Resolve(hostname string) (Profile, bool) {
	if hostname == "" {
		return Profile{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.match(hostname) {
			return e.profile.Clone(), true
		}
	}
	return Profile{}, false
}

// Profiles returns the registered profiles in priority order.
func (r *Registry) Profiles() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.profile.Clone())
	}
	return out
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
