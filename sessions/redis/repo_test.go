package redis_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/jrsteele09/go-tenant-gateway/sessions/redis"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	require.Equal(t, "gw:session:tenant-a.example.com|abc", redis.Key("tenant-a.example.com", "abc"))
}

// TestRepo runs against a live server when REDIS_TEST_ADDR is set.
func TestRepo(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	repo := redis.New(addr, 0)
	defer repo.Close()
	require.NoError(t, repo.Ping(ctx))

	sid := uuid.NewString()
	first := sessions.Credentials{
		AccessToken:  "a1",
		RefreshToken: "r1",
		User:         json.RawMessage(`{"id":1}`),
		Tenant:       json.RawMessage(`{"schema_name":"t1"}`),
	}
	require.NoError(t, repo.Put(ctx, "t1.localhost", sid, first, time.Minute))

	got, err := repo.Get(ctx, "t1.localhost", sid)
	require.NoError(t, err)
	require.Equal(t, first, got)

	second := sessions.Credentials{AccessToken: "a2", RefreshToken: "r2", User: json.RawMessage(`{"id":2}`)}
	require.NoError(t, repo.Put(ctx, "t1.localhost", sid, second, time.Minute))
	got, err = repo.Get(ctx, "t1.localhost", sid)
	require.NoError(t, err)
	require.False(t, got.HasTenant())

	require.NoError(t, repo.Delete(ctx, "t1.localhost", sid))
	_, err = repo.Get(ctx, "t1.localhost", sid)
	require.ErrorIs(t, err, errors.ErrSessionNotFound)
}
