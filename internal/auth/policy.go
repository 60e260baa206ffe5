package auth

import (
	"fmt"
	"strings"
	"sync"

	"taskbot/internal/identity"
)

// DefaultDomains are allowed when no domains are configured.
var DefaultDomains = []string{"microsoft.com", "skype.com"}

// PolicyDeniedError is returned for a profile outside the allowed domains.
type PolicyDeniedError struct {
	Profile *identity.Profile
}

func (e *PolicyDeniedError) Error() string {
	return fmt.Sprintf("profile %s is not allowed", e.Profile)
}

// Policy decides which authenticated profiles may use the bot: the email
// address must end in "@" followed by one of the allowed domains, compared
// case-insensitively.
type Policy struct {
	mu      sync.RWMutex
	domains []string
}

// NewPolicy creates a policy for domains, or DefaultDomains when none are given.
func NewPolicy(domains ...string) *Policy {
	p := &Policy{}
	p.SetDomains(domains)
	return p
}

// SetDomains replaces the allowed domains.
func (p *Policy) SetDomains(domains []string) {
	normalized := normalizeDomains(domains)
	if len(normalized) == 0 {
		normalized = normalizeDomains(DefaultDomains)
	}
	p.mu.Lock()
	p.domains = normalized
	p.mu.Unlock()
}

// Domains returns the allowed domains.
func (p *Policy) Domains() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.domains...)
}

// Allowed reports whether profile passes the policy.
func (p *Policy) Allowed(profile *identity.Profile) bool {
	if profile == nil || profile.EmailAddress == "" {
		return false
	}
	email := strings.ToLower(strings.TrimSpace(profile.EmailAddress))

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, d := range p.domains {
		if strings.HasSuffix(email, "@"+d) {
			return true
		}
	}
	return false
}

// Check is Allowed as an error.
func (p *Policy) Check(profile *identity.Profile) error {
	if p.Allowed(profile) {
		return nil
	}
	return &PolicyDeniedError{Profile: profile}
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "@")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
