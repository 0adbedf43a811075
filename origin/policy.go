// Package origin decides which browser origin a session belongs to and builds the
// URLs used to move between the public origin and tenant origins.
package origin

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-tenant-gateway/internal/config"
	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/tenants"
)

// Classification is the relation between the current origin and a user's tenant.
type Classification int

const (
	// Public: no tenant label on the current host and no tenant on the user.
	Public Classification = iota
	// Matched: the current host is the user's tenant origin.
	Matched
	// Mismatched: the user belongs to another origin.
	Mismatched
)

func (c Classification) String() string {
	switch c {
	case Public:
		return "public"
	case Matched:
		return "matched"
	default:
		return "mismatched"
	}
}

// Policy carries the environment conventions needed to build origins.
type Policy struct {
	Development     bool
	FrontendDevPort string // e.g. "3000"
	BackendDevPort  string // e.g. "8000"
	BackendScheme   string // empty follows the request scheme
}

func NewPolicy(cfg config.EnvConfig) *Policy {
	return &Policy{
		Development:     cfg.IsDevelopment(),
		FrontendDevPort: cfg.GetFrontendDevPort(),
		BackendDevPort:  cfg.GetBackendDevPort(),
		BackendScheme:   cfg.GetBackendScheme(),
	}
}

// Classify compares the tenant label of currentHost with targetSlug.
func (p *Policy) Classify(currentHost, targetSlug string) Classification {
	current := tenants.Resolve(currentHost)
	target := tenants.Normalize(targetSlug)

	switch {
	case !current.HasTenant() && target == "":
		return Public
	case current.HasTenant() && current.TenantSlug == target:
		return Matched
	default:
		return Mismatched
	}
}

// IsDevelopment reports whether currentHost follows the development port convention.
func (p *Policy) IsDevelopment(currentHost string) bool {
	return p.Development || tenants.IsLocal(currentHost)
}

// BuildTenantURL composes scheme://slug.baseDomain[:port]path[?query] for the tenant.
func (p *Policy) BuildTenantURL(scheme, currentHost, tenantSlug, path string, query url.Values) (string, error) {
	slug := tenants.Normalize(tenantSlug)
	if slug == "" {
		return "", &errors.InvalidTenantError{Slug: tenantSlug}
	}
	host := slug + "." + tenants.BaseDomain(currentHost)
	return p.compose(scheme, host, p.frontendPort(currentHost), path, query), nil
}

// BuildPublicURL composes a URL on the tenant-less origin.
func (p *Policy) BuildPublicURL(scheme, currentHost, path string, query url.Values) string {
	return p.compose(scheme, tenants.BaseDomain(currentHost), p.frontendPort(currentHost), path, query)
}

// BackendURL returns the REST API root. Public endpoints live on the base domain,
// tenant endpoints on the normalised current host.
func (p *Policy) BackendURL(scheme, currentHost string, public bool) string {
	if p.BackendScheme != "" {
		scheme = p.BackendScheme
	}
	host := tenants.NormalizeHost(stripPort(currentHost))
	if public {
		host = tenants.BaseDomain(currentHost)
	}
	port := ""
	if p.IsDevelopment(currentHost) && p.BackendDevPort != "" {
		port = ":" + p.BackendDevPort
	}
	return fmt.Sprintf("%s://%s%s/api", normalizeScheme(scheme), host, port)
}

func (p *Policy) frontendPort(currentHost string) string {
	if p.IsDevelopment(currentHost) && p.FrontendDevPort != "" {
		return ":" + p.FrontendDevPort
	}
	return ""
}

func (p *Policy) compose(scheme, host, port, path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := fmt.Sprintf("%s://%s%s%s", normalizeScheme(scheme), host, port, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// normalizeScheme accepts both "https" and the browser's "https:" form.
func normalizeScheme(scheme string) string {
	scheme = strings.TrimSuffix(strings.ToLower(scheme), ":")
	if scheme == "" {
		return "http"
	}
	return scheme
}

func stripPort(host string) string {
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host[i:], "]") {
		return host[:i]
	}
	return host
}
