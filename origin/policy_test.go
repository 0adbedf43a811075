package origin_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/origin"
	"github.com/stretchr/testify/require"
)

func devPolicy() *origin.Policy {
	return &origin.Policy{Development: true, FrontendDevPort: "3000", BackendDevPort: "8000"}
}

func prodPolicy() *origin.Policy {
	return &origin.Policy{FrontendDevPort: "3000", BackendDevPort: "8000"}
}

func TestPolicy_Classify(t *testing.T) {
	p := prodPolicy()

	require.Equal(t, origin.Public, p.Classify("localhost", ""))
	require.Equal(t, origin.Public, p.Classify("example.com", ""))
	require.Equal(t, origin.Matched, p.Classify("tenant-a.example.com", "tenant-a"))
	require.Equal(t, origin.Matched, p.Classify("tenant_a.example.com", "tenant-a"))
	require.Equal(t, origin.Matched, p.Classify("hopital-central.localhost:3000", "hopital_central"))
	require.Equal(t, origin.Mismatched, p.Classify("localhost", "hopital_central"))
	require.Equal(t, origin.Mismatched, p.Classify("tenant-a.example.com", "tenant-b"))
	require.Equal(t, origin.Mismatched, p.Classify("tenant-a.example.com", ""))
}

func TestPolicy_BuildTenantURL(t *testing.T) {
	t.Run("development localhost handoff", func(t *testing.T) {
		p := prodPolicy()
		q := url.Values{"token": {"dG9r"}}
		raw, err := p.BuildTenantURL("http:", "localhost", "hopital_central", "/auth-callback", q)
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "hopital-central.localhost", u.Hostname())
		require.Equal(t, "3000", u.Port())
		require.Equal(t, "/auth-callback", u.Path)
		require.Equal(t, "dG9r", u.Query().Get("token"))
	})

	t.Run("production has no port", func(t *testing.T) {
		raw, err := prodPolicy().BuildTenantURL("https", "example.com", "tenant-a", "/dashboard", nil)
		require.NoError(t, err)
		require.Equal(t, "https://tenant-a.example.com/dashboard", raw)
	})

	t.Run("development env forces port", func(t *testing.T) {
		raw, err := devPolicy().BuildTenantURL("https", "other.example.com", "tenant-a", "dashboard", url.Values{})
		require.NoError(t, err)
		require.Equal(t, "https://tenant-a.example.com:3000/dashboard", raw)
	})

	t.Run("empty slug fails", func(t *testing.T) {
		_, err := prodPolicy().BuildTenantURL("https", "example.com", "", "/dashboard", nil)
		require.Error(t, err)
		var invalid *errors.InvalidTenantError
		require.ErrorAs(t, err, &invalid)
		require.ErrorIs(t, err, errors.ErrInvalidTenant)
	})
}

func TestPolicy_BuildPublicURL(t *testing.T) {
	require.Equal(t, "http://localhost:3000/authentication/sign-in",
		prodPolicy().BuildPublicURL("http", "hopital-central.localhost:3000", "/authentication/sign-in", nil))
	require.Equal(t, "https://example.com/authentication/sign-in",
		prodPolicy().BuildPublicURL("https", "tenant-a.example.com", "/authentication/sign-in", nil))
}

func TestPolicy_BackendURL(t *testing.T) {
	p := prodPolicy()
	require.Equal(t, "http://localhost:8000/api", p.BackendURL("http", "hopital_central.localhost:3000", true))
	require.Equal(t, "http://hopital-central.localhost:8000/api", p.BackendURL("http", "hopital_central.localhost:3000", false))
	require.Equal(t, "https://tenant-a.example.com/api", p.BackendURL("https", "tenant-a.example.com", false))
	require.Equal(t, "https://example.com/api", p.BackendURL("https", "tenant-a.example.com", true))

	p.BackendScheme = "http"
	require.Equal(t, "http://example.com/api", p.BackendURL("https", "tenant-a.example.com", true))
}
