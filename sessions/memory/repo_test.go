package memory_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/jrsteele09/go-tenant-gateway/sessions/memory"
	"github.com/stretchr/testify/require"
)

func TestRepo(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(time.Hour)
	c := sessions.Credentials{AccessToken: "a", RefreshToken: "r", User: json.RawMessage(`{"id":1}`)}

	_, err := repo.Get(ctx, "localhost", "sid")
	require.ErrorIs(t, err, errors.ErrSessionNotFound)

	require.NoError(t, repo.Put(ctx, "localhost", "sid", c, time.Hour))
	got, err := repo.Get(ctx, "localhost", "sid")
	require.NoError(t, err)
	require.Equal(t, c, got)
	require.Equal(t, 1, repo.Len())

	got.User[0] = 'x'
	again, err := repo.Get(ctx, "localhost", "sid")
	require.NoError(t, err)
	require.Equal(t, c, again)

	require.NoError(t, repo.Delete(ctx, "localhost", "sid"))
	_, err = repo.Get(ctx, "localhost", "sid")
	require.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestRepo_Expiry(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(time.Hour)
	c := sessions.Credentials{AccessToken: "a", User: json.RawMessage(`{}`)}

	require.NoError(t, repo.Put(ctx, "localhost", "sid", c, 10*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := repo.Get(ctx, "localhost", "sid")
		return errors.Is(err, errors.ErrSessionNotFound)
	}, time.Second, 5*time.Millisecond)
}
