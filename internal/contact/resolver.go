// Package contact normalizes raw phone numbers and email addresses into the
// addressing form expected by the transport.
package contact

import (
	"fmt"
	"strings"

	"github.com/outflow-sh/outflow/internal/domain"
)

// Defaults applied when a Resolver field is left empty. Ten-digit numbers
// are assumed to be local and get the default country code prepended.
const (
	DefaultCountryCode = "91"
	DefaultDomain      = "s.whatsapp.net"
)

// Resolver turns raw address strings into transport addresses.
type Resolver struct {
	// CountryCode is prepended to bare 10-digit numbers.
	CountryCode string

	// Domain is the transport-specific suffix appended to the digit string.
	Domain string
}

// NewResolver creates a Resolver, filling empty fields with defaults.
func NewResolver(countryCode, domain string) *Resolver {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if domain == "" {
		domain = DefaultDomain
	}
	return &Resolver{CountryCode: countryCode, Domain: domain}
}

// Resolve normalizes a raw phone number: strips every non-digit character,
// prepends the country code when exactly 10 digits remain, and appends the
// transport domain. An input with no digits at all fails with
// domain.ErrInvalidAddress.
func (r *Resolver) Resolve(raw string) (string, error) {
	clean := digitsOf(raw)
	if clean == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAddress, raw)
	}
	if len(clean) == 10 {
		clean = r.CountryCode + clean
	}
	return clean + "@" + r.Domain, nil
}

// ResolveEmail validates a raw email address minimally and lowercases it.
// Anything without a "@" between non-empty local and domain parts fails with
// domain.ErrInvalidAddress.
func (r *Resolver) ResolveEmail(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	at := strings.IndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAddress, raw)
	}
	return addr, nil
}

func digitsOf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
