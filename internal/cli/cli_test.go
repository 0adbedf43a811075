package cli_test

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-tenant-gateway/internal/cli"
	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/jrsteele09/go-tenant-gateway/transfer"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd("1.2.3")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolve(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "resolve", "-o", "json", "hopital_central.localhost:3000", "example.com", "a.b.example.com")
		require.NoError(t, err)

		var got []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 3)
		require.Equal(t, "hopital-central", got[0]["tenant_slug"])
		require.Equal(t, "localhost", got[0]["base_domain"])
		require.Equal(t, "", got[1]["tenant_slug"])
		require.Equal(t, "example.com", got[1]["base_domain"])
		require.Equal(t, "a", got[2]["tenant_slug"])
		require.Equal(t, true, got[2]["nested"])
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "resolve", "--output", "yaml", "tenant-a.example.com")
		require.NoError(t, err)

		var got []map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		require.Equal(t, "tenant-a", got[0]["tenant_slug"])
		require.Equal(t, "example.com", got[0]["base_domain"])
	})

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "resolve", "hopital_central.localhost:3000", "localhost")
		require.NoError(t, err)
		require.Contains(t, out, "hopital-central")
		require.Contains(t, out, "BASE DOMAIN")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, "resolve", "-o", "xml", "example.com")
		require.ErrorContains(t, err, "unknown output format")
	})

	t.Run("requires a host", func(t *testing.T) {
		_, err := execute(t, "resolve")
		require.Error(t, err)
	})
}

func TestTenantURL(t *testing.T) {
	t.Run("production host", func(t *testing.T) {
		t.Setenv("ENV", "PROD")
		out, err := execute(t, "tenant-url", "clinique_nord", "--host", "example.com", "--scheme", "https", "-o", "json")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Equal(t, "https://clinique-nord.example.com/dashboard", got["url"])
		require.Equal(t, "https://clinique-nord.example.com/api", got["tenant_api"])
		require.Equal(t, "https://example.com/api", got["public_api"])
		require.Equal(t, "https://example.com/authentication/sign-in", got["sign_in_url"])
		require.Equal(t, false, got["development"])
	})

	t.Run("localhost uses development ports", func(t *testing.T) {
		t.Setenv("ENV", "PROD")
		out, err := execute(t, "tenant-url", "hopital_central", "/patients", "-o", "json")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Equal(t, "http://hopital-central.localhost:3000/patients", got["url"])
		require.Equal(t, "http://hopital-central.localhost:8000/api", got["tenant_api"])
		require.Equal(t, "http://localhost:8000/api", got["public_api"])
		require.Equal(t, true, got["development"])
	})

	t.Run("dev flag", func(t *testing.T) {
		t.Setenv("ENV", "PROD")
		out, err := execute(t, "tenant-url", "acme", "--host", "example.com", "--dev")
		require.NoError(t, err)
		require.Contains(t, out, "http://acme.example.com:3000/dashboard")
	})

	t.Run("empty slug", func(t *testing.T) {
		_, err := execute(t, "tenant-url", "  ")
		require.ErrorIs(t, err, errors.ErrInvalidTenant)
	})
}

func TestDecode(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":        "42",
		"token_type": "access",
		"exp":        exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	q := transfer.Encode(sessions.Credentials{
		AccessToken:  access,
		RefreshToken: "opaque-refresh",
		User:         json.RawMessage(`{"id":42,"email":"a@b.c"}`),
		Tenant:       json.RawMessage(`{"schema_name":"hopital_central"}`),
	}, "/patients")
	callback := "http://hopital-central.localhost:3000/auth-callback?" + q.Encode()

	t.Run("json hides tokens", func(t *testing.T) {
		out, err := execute(t, "decode", "-o", "json", callback)
		require.NoError(t, err)
		require.NotContains(t, out, access)
		require.NotContains(t, out, "opaque-refresh")

		var got struct {
			Destination string `json:"destination"`
			AccessToken struct {
				Subject   string `json:"subject"`
				TokenType string `json:"token_type"`
				Expired   bool   `json:"expired"`
			} `json:"access_token"`
			User   map[string]any `json:"user"`
			Tenant map[string]any `json:"tenant"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Equal(t, "/patients", got.Destination)
		require.Equal(t, "42", got.AccessToken.Subject)
		require.Equal(t, "access", got.AccessToken.TokenType)
		require.False(t, got.AccessToken.Expired)
		require.Equal(t, "a@b.c", got.User["email"])
		require.Equal(t, "hopital_central", got.Tenant["schema_name"])
	})

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "decode", callback)
		require.NoError(t, err)
		require.Contains(t, out, "/patients")
		require.Contains(t, out, "<redacted, 14 chars>")
		require.NotContains(t, out, access)
	})

	t.Run("missing fields", func(t *testing.T) {
		u, err := url.Parse(callback)
		require.NoError(t, err)
		q := u.Query()
		q.Del(transfer.ParamUser)
		u.RawQuery = q.Encode()

		_, err = execute(t, "decode", u.String())
		require.Error(t, err)
		var decodeErr *transfer.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		require.Equal(t, transfer.ParamUser, decodeErr.Field)
	})
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "gatewayctl 1.2.3", strings.TrimSpace(out))
}
