package tenants

import (
	"net"
	"strings"
)

const localhost = "localhost"

// Resolution is the result of parsing a hostname into its tenant label and base domain.
type Resolution struct {
	TenantSlug string // normalised, empty when the host carries no tenant label
	BaseDomain string
	// Nested is set when more than one label precedes the base domain. Only the
	// first label is used as the tenant slug.
	Nested bool
}

// HasTenant reports whether the hostname carried a tenant label.
func (r Resolution) HasTenant() bool {
	return r.TenantSlug != ""
}

// Resolve parses a hostname such as "tenant-a.example.com", "localhost" or
// "tenant_a.localhost:3000". It never fails: malformed input yields no tenant slug.
func Resolve(hostname string) Resolution {
	host := strings.ToLower(strings.TrimSpace(stripPort(hostname)))
	host = strings.TrimSuffix(host, ".")

	if !strings.Contains(host, ".") || net.ParseIP(host) != nil {
		return Resolution{BaseDomain: host}
	}

	labels := strings.Split(host, ".")
	if hasEmptyLabel(labels) {
		return Resolution{BaseDomain: baseDomainOf(labels)}
	}

	if labels[len(labels)-1] == localhost {
		return Resolution{
			TenantSlug: Normalize(labels[0]),
			BaseDomain: localhost,
			Nested:     len(labels) > 2,
		}
	}

	if len(labels) == 2 {
		return Resolution{BaseDomain: host}
	}
	return Resolution{
		TenantSlug: Normalize(labels[0]),
		BaseDomain: strings.Join(labels[len(labels)-2:], "."),
		Nested:     len(labels) > 3,
	}
}

// BaseDomain returns the tenant-less root of hostname.
func BaseDomain(hostname string) string {
	return Resolve(hostname).BaseDomain
}

// IsLocal reports whether hostname is localhost or a subdomain of it.
func IsLocal(hostname string) bool {
	return BaseDomain(hostname) == localhost
}

// Normalize converts a tenant identifier into its DNS label form: lower case,
// underscores replaced with hyphens. Normalize(Normalize(s)) == Normalize(s).
func Normalize(slug string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(slug)), "_", "-")
}

// SameSlug compares two tenant identifiers, treating '_' and '-' as equal and ignoring case.
func SameSlug(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// NormalizeHost normalises every label of a hostname, keeping any port.
func NormalizeHost(hostname string) string {
	return strings.ReplaceAll(strings.ToLower(hostname), "_", "-")
}

func stripPort(hostname string) string {
	if host, _, err := net.SplitHostPort(hostname); err == nil {
		return host
	}
	return hostname
}

func hasEmptyLabel(labels []string) bool {
	for _, l := range labels {
		if l == "" {
			return true
		}
	}
	return false
}

// baseDomainOf is the best effort base domain for hosts with empty labels.
func baseDomainOf(labels []string) string {
	var kept []string
	for _, l := range labels {
		if l != "" {
			kept = append(kept, l)
		}
	}
	switch {
	case len(kept) == 0:
		return ""
	case kept[len(kept)-1] == localhost, len(kept) == 1:
		return kept[len(kept)-1]
	default:
		return strings.Join(kept[len(kept)-2:], ".")
	}
}
