package routes

import (
	"fmt"
	"regexp"
	"strings"
)

// labelRegex validates a single DNS label: alphanumeric with interior
// hyphens only.
var labelRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)

const (
	maxDomainLength = 253
	maxLabelLength  = 63
)

// DomainValidation is the outcome of validating a candidate domain.
// Warnings never block the route.
type DomainValidation struct {
	Valid    bool     `json:"valid"`
	Domain   string   `json:"domain"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateDomain checks a candidate domain against DNS syntax rules, the
// reserved set and the uniqueness invariant. It is deterministic for a
// given registry state and performs no remote calls.
func (m *Manager) ValidateDomain(domain string) DomainValidation {
	v := DomainValidation{Valid: true, Domain: domain, Errors: []string{}, Warnings: []string{}}

	if domain == "" {
		v.Valid = false
		v.Errors = append(v.Errors, "domain is empty")
		return v
	}

	if len(domain) > maxDomainLength {
		v.Valid = false
		v.Errors = append(v.Errors, fmt.Sprintf("domain exceeds %d characters", maxDomainLength))
	}

	labels := strings.Split(domain, ".")
	for _, label := range labels {
		switch {
		case len(label) > maxLabelLength:
			v.Valid = false
			v.Errors = append(v.Errors, fmt.Sprintf("label %q exceeds %d characters", label, maxLabelLength))
		case strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-"):
			v.Valid = false
			v.Errors = append(v.Errors, fmt.Sprintf("label %q starts or ends with a hyphen", label))
		case !labelRegex.MatchString(label):
			v.Valid = false
			v.Errors = append(v.Errors, fmt.Sprintf("label %q is not a valid DNS label", label))
		}
	}

	if _, reserved := m.reserved[strings.ToLower(domain)]; reserved {
		v.Valid = false
		v.Errors = append(v.Errors, fmt.Sprintf("domain %q is reserved", domain))
	}

	m.mu.RLock()
	if id, taken := m.hosts[domain]; taken {
		v.Valid = false
		v.Errors = append(v.Errors, fmt.Sprintf("domain already in use by route %s", id))
	}
	m.mu.RUnlock()

	if len(labels) == 1 {
		v.Warnings = append(v.Warnings, "domain has no subdomain")
	}
	if strings.HasPrefix(domain, "www.") {
		v.Warnings = append(v.Warnings, "domain starts with www.")
	}

	return v
}
