// Package jwt reads the claims of tokens issued by the backend. Signatures are not
// verified here: the gateway only uses the claims for bookkeeping (session lifetime,
// log fields) and the backend remains the authority on validity.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var ErrNotJWT = errors.New("token is not a JWT")

// TokenIntrospection holds the claims the gateway reads from a backend token.
type TokenIntrospection struct {
	Exp       *time.Time // Expiration
	Iat       *time.Time // Issued at time
	Sub       string     // Subject
	UserID    string     // user_id claim used by the backend
	TokenType string     // token_type claim: "access" or "refresh"
	Tenant    string     // tenant or tenant_schema claim, when present
}

// Expired reports whether the token carries an expiry in the past.
func (t *TokenIntrospection) Expired() bool {
	return t.Exp != nil && !NowTimeFunc().Before(*t.Exp)
}

// Introspect parses rawToken without verifying its signature.
func Introspect(rawToken string) (*TokenIntrospection, error) {
	if strings.Count(strings.TrimSpace(rawToken), ".") != 2 {
		return nil, ErrNotJWT
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("[jwt Introspect] %w", err)
	}
	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("[jwt Introspect] error extracting claims")
	}

	ti := &TokenIntrospection{}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ti.Exp = &exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		ti.Iat = &iat.Time
	}
	ti.Sub, _ = claims.GetSubject()
	ti.UserID = stringClaim(claims, "user_id")
	ti.TokenType = stringClaim(claims, "token_type")
	ti.Tenant = stringClaim(claims, "tenant")
	if ti.Tenant == "" {
		ti.Tenant = stringClaim(claims, "tenant_schema")
	}
	return ti, nil
}

// TimeToLive returns how long rawToken remains valid, or fallback when the token
// has no readable expiry.
func TimeToLive(rawToken string, fallback time.Duration) time.Duration {
	ti, err := Introspect(rawToken)
	if err != nil || ti.Exp == nil {
		return fallback
	}
	ttl := ti.Exp.Sub(NowTimeFunc())
	if ttl <= 0 {
		return fallback
	}
	return ttl
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	switch v := claims[name].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
