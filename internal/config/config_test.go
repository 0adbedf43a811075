package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"PORT", "ENV", "FRONTEND_DEV_PORT", "BACKEND_DEV_PORT", "BACKEND_SCHEME", "SESSION_DRIVER",
		"REDIS_DB", "SESSION_COOKIE", "SESSION_MAX_AGE", "LOGOUT_TIMEOUT", "PUBLIC_ENDPOINTS", "UPSTREAM_TIMEOUT",
		"MAX_REQUEST_BODY"} {
		t.Setenv(v, "")
	}

	c := config.New()
	require.Equal(t, ":3000", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.True(t, c.IsDevelopment())
	require.Equal(t, "3000", c.GetFrontendDevPort())
	require.Equal(t, "8000", c.GetBackendDevPort())
	require.Equal(t, "", c.GetBackendScheme())
	require.Equal(t, "memory", c.GetSessionDriver())
	require.Equal(t, 0, c.GetRedisDB())
	require.Equal(t, "gw_session", c.GetSessionCookieName())
	require.Equal(t, 7*24*time.Hour, c.GetMaxSessionAge())
	require.Equal(t, 3*time.Second, c.GetLogoutTimeout())
	require.Equal(t, 30*time.Second, c.GetUpstreamTimeout())
	require.Equal(t, int64(32<<20), c.GetMaxRequestBody())
	require.Equal(t, []string{"/auth/login/", "/auth/token/refresh/", "/tenants/create/"}, c.GetPublicEndpoints())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", ":8080")
	t.Setenv("ENV", "prod")
	t.Setenv("SESSION_DRIVER", "Redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOGOUT_TIMEOUT", "500ms")
	t.Setenv("PUBLIC_ENDPOINTS", " /auth/login/ , ,/health/")
	t.Setenv("MAX_REQUEST_BODY", "2MiB")

	c := config.New()
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "PROD", c.GetEnv())
	require.False(t, c.IsDevelopment())
	require.Equal(t, "redis", c.GetSessionDriver())
	require.Equal(t, 2, c.GetRedisDB())
	require.Equal(t, 500*time.Millisecond, c.GetLogoutTimeout())
	require.Equal(t, []string{"/auth/login/", "/health/"}, c.GetPublicEndpoints())
	require.Equal(t, int64(2<<20), c.GetMaxRequestBody())

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("REDIS_DB", "two")
		t.Setenv("UPSTREAM_TIMEOUT", "soon")
		t.Setenv("MAX_REQUEST_BODY", "lots")
		require.Equal(t, 0, c.GetRedisDB())
		require.Equal(t, int64(32<<20), c.GetMaxRequestBody())
		require.Equal(t, 30*time.Second, c.GetUpstreamTimeout())
	})
}

func TestPublicEndpointsAreCopied(t *testing.T) {
	t.Setenv("PUBLIC_ENDPOINTS", "")
	c := config.New()
	endpoints := c.GetPublicEndpoints()
	endpoints[0] = "/changed/"
	require.Equal(t, "/auth/login/", c.GetPublicEndpoints()[0])
}
