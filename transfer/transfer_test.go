package transfer_test

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/jrsteele09/go-tenant-gateway/transfer"
	"github.com/stretchr/testify/require"
)

func testCredentials() sessions.Credentials {
	return sessions.Credentials{
		AccessToken:  "eyJhbGciOiJIUzI1NiJ9.eyJ1c2VyX2lkIjo0Mn0.sig",
		RefreshToken: "refresh+/=token",
		User:         json.RawMessage(`{"email":"reception@hopital.example","role":"reception","name":"Élodie"}`),
		Tenant:       json.RawMessage(`{"name":"Hôpital Central","schema_name":"hopital_central"}`),
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		c    sessions.Credentials
		path string
	}{
		{name: "with tenant", c: testCredentials(), path: "/dashboard"},
		{name: "nested path", c: testCredentials(), path: "/complaints/12?tab=comments"},
		{name: "no tenant", c: func() sessions.Credentials { c := testCredentials(); c.Tenant = nil; return c }(), path: "/tenants"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := transfer.Encode(tc.c, tc.path)

			// Survive a trip through a real URL.
			u, err := url.Parse("http://hopital-central.localhost:3000/auth-callback?" + q.Encode())
			require.NoError(t, err)

			p, err := transfer.Decode(u.Query())
			require.NoError(t, err)
			require.Equal(t, tc.c, p.Credentials)
			require.Equal(t, tc.path, p.DestinationPath)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Run("values are base64", func(t *testing.T) {
		q := transfer.Encode(testCredentials(), "/dashboard")
		for _, k := range []string{transfer.ParamAccessToken, transfer.ParamRefreshToken, transfer.ParamUser, transfer.ParamTenant, transfer.ParamRedirect} {
			_, err := base64.StdEncoding.DecodeString(q.Get(k))
			require.NoError(t, err, k)
		}
	})

	t.Run("tenant omitted when absent", func(t *testing.T) {
		c := testCredentials()
		c.Tenant = nil
		q := transfer.Encode(c, "/dashboard")
		require.False(t, q.Has(transfer.ParamTenant))
	})
}

func TestDecode_Errors(t *testing.T) {
	valid := func() url.Values { return transfer.Encode(testCredentials(), "/dashboard") }

	for _, field := range []string{transfer.ParamAccessToken, transfer.ParamRefreshToken, transfer.ParamUser} {
		t.Run("missing "+field, func(t *testing.T) {
			q := valid()
			q.Del(field)
			p, err := transfer.Decode(q)
			require.Nil(t, p)

			var decodeErr *transfer.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			require.Equal(t, transfer.MissingField, decodeErr.Kind)
			require.Equal(t, field, decodeErr.Field)
			require.ErrorIs(t, err, &transfer.DecodeError{Kind: transfer.MissingField})
		})
	}

	t.Run("bad base64", func(t *testing.T) {
		q := valid()
		q.Set(transfer.ParamAccessToken, "%%%not-base64")
		_, err := transfer.Decode(q)
		require.ErrorIs(t, err, &transfer.DecodeError{Kind: transfer.MalformedEncoding, Field: transfer.ParamAccessToken})
	})

	t.Run("bad user json", func(t *testing.T) {
		q := valid()
		q.Set(transfer.ParamUser, base64.StdEncoding.EncodeToString([]byte(`{"email":`)))
		_, err := transfer.Decode(q)
		require.ErrorIs(t, err, &transfer.DecodeError{Kind: transfer.MalformedEncoding, Field: transfer.ParamUser})
	})

	t.Run("bad tenant json", func(t *testing.T) {
		q := valid()
		q.Set(transfer.ParamTenant, base64.StdEncoding.EncodeToString([]byte(`nope`)))
		_, err := transfer.Decode(q)
		require.ErrorIs(t, err, &transfer.DecodeError{Kind: transfer.MalformedEncoding})
	})
}

func TestDecode_Destination(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		q := transfer.Encode(testCredentials(), "")
		q.Del(transfer.ParamRedirect)
		p, err := transfer.Decode(q)
		require.NoError(t, err)
		require.Equal(t, transfer.DefaultDestination, p.DestinationPath)
	})

	t.Run("clear text path accepted", func(t *testing.T) {
		q := transfer.Encode(testCredentials(), "")
		q.Set(transfer.ParamRedirect, "/complaints")
		p, err := transfer.Decode(q)
		require.NoError(t, err)
		require.Equal(t, "/complaints", p.DestinationPath)
	})

	t.Run("external destination rejected", func(t *testing.T) {
		for _, dest := range []string{"https://evil.example", "//evil.example/x", `/\evil.example`} {
			p, err := transfer.Decode(transfer.Encode(testCredentials(), dest))
			require.NoError(t, err)
			require.Equal(t, transfer.DefaultDestination, p.DestinationPath, dest)
		}
	})
}

func TestStrip(t *testing.T) {
	u, err := url.Parse("http://t.localhost:3000/auth-callback?" + transfer.Encode(testCredentials(), "/dashboard").Encode() + "&lang=fr")
	require.NoError(t, err)

	cleaned := transfer.Strip(u)
	require.Equal(t, "lang=fr", cleaned.RawQuery)
	require.Contains(t, u.RawQuery, "token=")
}
