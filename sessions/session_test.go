package sessions_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	sessionrepofakes "github.com/jrsteele09/go-tenant-gateway/sessions/repofakes"
	"github.com/stretchr/testify/require"
)

const (
	testOrigin    = "hopital-central.localhost"
	testSessionID = "sid-1"
)

func testCredentials() sessions.Credentials {
	return sessions.Credentials{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         json.RawMessage(`{"email":"agent@example.com","role":"agent"}`),
		Tenant:       json.RawMessage(`{"schema_name":"hopital_central"}`),
	}
}

func TestScopedStore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store reads nil", func(t *testing.T) {
		store := sessions.Scoped(sessionrepofakes.NewFakeSessionRepo(), testOrigin, testSessionID, time.Hour)
		c, err := store.Read(ctx)
		require.NoError(t, err)
		require.Nil(t, c)
	})

	t.Run("write then read", func(t *testing.T) {
		store := sessions.Scoped(sessionrepofakes.NewFakeSessionRepo(), testOrigin, testSessionID, time.Hour)
		require.NoError(t, store.Write(ctx, testCredentials()))

		c, err := store.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, testCredentials(), *c)
	})

	t.Run("write replaces wholesale", func(t *testing.T) {
		store := sessions.Scoped(sessionrepofakes.NewFakeSessionRepo(), testOrigin, testSessionID, time.Hour)
		require.NoError(t, store.Write(ctx, testCredentials()))

		next := testCredentials()
		next.AccessToken = "access-2"
		next.Tenant = nil
		require.NoError(t, store.Write(ctx, next))

		c, err := store.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, "access-2", c.AccessToken)
		require.False(t, c.HasTenant())
	})

	t.Run("sessions are origin scoped", func(t *testing.T) {
		repo := sessionrepofakes.NewFakeSessionRepo()
		require.NoError(t, sessions.Scoped(repo, testOrigin, testSessionID, time.Hour).Write(ctx, testCredentials()))

		other, err := sessions.Scoped(repo, "localhost", testSessionID, time.Hour).Read(ctx)
		require.NoError(t, err)
		require.Nil(t, other)
	})

	t.Run("clear removes every key", func(t *testing.T) {
		repo := sessionrepofakes.NewFakeSessionRepo()
		store := sessions.Scoped(repo, testOrigin, testSessionID, time.Hour)
		require.NoError(t, store.Write(ctx, testCredentials()))
		require.NoError(t, store.Clear(ctx))

		c, err := store.Read(ctx)
		require.NoError(t, err)
		require.Nil(t, c)
		require.Zero(t, repo.Count(testOrigin))
	})

	t.Run("rejects incomplete credentials", func(t *testing.T) {
		store := sessions.Scoped(sessionrepofakes.NewFakeSessionRepo(), testOrigin, testSessionID, time.Hour)
		require.Error(t, store.Write(ctx, sessions.Credentials{AccessToken: "a"}))
	})

	t.Run("ttl follows refresh token expiry", func(t *testing.T) {
		repo := sessionrepofakes.NewFakeSessionRepo()
		store := sessions.Scoped(repo, testOrigin, testSessionID, time.Hour)

		refresh, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
			"exp": time.Now().Add(48 * time.Hour).Unix(),
		}).SignedString([]byte("k"))
		require.NoError(t, err)

		c := testCredentials()
		c.RefreshToken = refresh
		require.NoError(t, store.Write(ctx, c))
		require.Greater(t, repo.TTL(testOrigin, testSessionID), 47*time.Hour)

		require.NoError(t, store.Write(ctx, testCredentials()))
		require.Equal(t, time.Hour, repo.TTL(testOrigin, testSessionID))
	})
}

func TestFields(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		c := testCredentials()
		back, err := sessions.FromFields(c.Fields())
		require.NoError(t, err)
		require.Equal(t, c, *back)
	})

	t.Run("tenant key omitted", func(t *testing.T) {
		c := testCredentials()
		c.Tenant = json.RawMessage("null")
		_, ok := c.Fields()[sessions.KeyTenant]
		require.False(t, ok)
	})

	t.Run("invalid user json", func(t *testing.T) {
		_, err := sessions.FromFields(map[string]string{sessions.KeyUser: "{"})
		require.Error(t, err)
	})
}

func TestScopedStore_ConditionalWrites(t *testing.T) {
	ctx := context.Background()

	newPair := func() (sessions.VersionedStore, sessions.VersionedStore, *sessionrepofakes.FakeSessionRepo) {
		repo := sessionrepofakes.NewFakeSessionRepo()
		guard := sessions.NewGuard()
		return sessions.Scoped(repo, testOrigin, testSessionID, time.Hour, sessions.WithGuard(guard)),
			sessions.Scoped(repo, testOrigin, testSessionID, time.Hour, sessions.WithGuard(guard)),
			repo
	}

	t.Run("write after clear from another request is dropped", func(t *testing.T) {
		renewing, signingOut, repo := newPair()
		require.NoError(t, renewing.Write(ctx, testCredentials()))

		_, v, err := renewing.ReadVersion(ctx)
		require.NoError(t, err)
		require.NoError(t, signingOut.Clear(ctx))

		next := testCredentials()
		next.AccessToken = "access-2"
		written, err := renewing.WriteIfVersion(ctx, v, next)
		require.NoError(t, err)
		require.False(t, written)
		require.Zero(t, repo.Count(testOrigin))
	})

	t.Run("unchanged session is written once per version", func(t *testing.T) {
		store, _, _ := newPair()
		require.NoError(t, store.Write(ctx, testCredentials()))

		_, v, err := store.ReadVersion(ctx)
		require.NoError(t, err)

		next := testCredentials()
		next.AccessToken = "access-2"
		written, err := store.WriteIfVersion(ctx, v, next)
		require.NoError(t, err)
		require.True(t, written)

		written, err = store.WriteIfVersion(ctx, v, testCredentials())
		require.NoError(t, err)
		require.False(t, written)

		c, err := store.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, "access-2", c.AccessToken)
	})

	t.Run("conditional clear keeps a newer session", func(t *testing.T) {
		renewing, signingIn, _ := newPair()
		require.NoError(t, renewing.Write(ctx, testCredentials()))

		_, v, err := renewing.ReadVersion(ctx)
		require.NoError(t, err)

		fresh := testCredentials()
		fresh.AccessToken = "fresh"
		require.NoError(t, signingIn.Write(ctx, fresh))

		cleared, err := renewing.ClearIfVersion(ctx, v)
		require.NoError(t, err)
		require.False(t, cleared)

		c, err := renewing.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, "fresh", c.AccessToken)
	})
}
