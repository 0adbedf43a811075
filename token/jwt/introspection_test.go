package jwt_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-tenant-gateway/token/jwt"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestIntrospect(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	jwt.NowTimeFunc = func() time.Time { return now }
	defer func() { jwt.NowTimeFunc = time.Now }()

	t.Run("reads claims without verifying", func(t *testing.T) {
		raw := signed(t, jwtlib.MapClaims{
			"exp":        now.Add(time.Hour).Unix(),
			"iat":        now.Unix(),
			"user_id":    float64(42),
			"token_type": "refresh",
			"tenant":     "hopital_central",
		})
		ti, err := jwt.Introspect(raw)
		require.NoError(t, err)
		require.Equal(t, "42", ti.UserID)
		require.Equal(t, "refresh", ti.TokenType)
		require.Equal(t, "hopital_central", ti.Tenant)
		require.False(t, ti.Expired())
		require.Equal(t, time.Hour, jwt.TimeToLive(raw, time.Minute))
	})

	t.Run("expired token falls back", func(t *testing.T) {
		raw := signed(t, jwtlib.MapClaims{"exp": now.Add(-time.Minute).Unix()})
		ti, err := jwt.Introspect(raw)
		require.NoError(t, err)
		require.True(t, ti.Expired())
		require.Equal(t, time.Minute, jwt.TimeToLive(raw, time.Minute))
	})

	t.Run("opaque token", func(t *testing.T) {
		_, err := jwt.Introspect("opaque-refresh-token")
		require.ErrorIs(t, err, jwt.ErrNotJWT)
		require.Equal(t, 5*time.Minute, jwt.TimeToLive("opaque-refresh-token", 5*time.Minute))
	})
}
