package refresh

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/internal/metrics"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Refresher exchanges a refresh token for new tokens. An empty RefreshToken in the
// result means the backend did not rotate it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f(ctx, refreshToken)
}

// Coordinator runs at most one renewal per session at a time. Requests that hit a
// 401 while a renewal is in flight wait for it and share its result.
type Coordinator struct {
	refresher Refresher
	sf        singleflight.Group
}

func NewCoordinator(refresher Refresher) *Coordinator {
	return &Coordinator{refresher: refresher}
}

// Renew returns an access token that differs from stale. key identifies the session
// (see sessions.ScopeKey); status is the response status that triggered the renewal.
//
// When the session cannot be renewed it is cleared and an *errors.AuthExpiredError
// is returned. The renewed tokens are stored only if the session was neither written
// nor cleared while the refresh was in flight.
func (c *Coordinator) Renew(ctx context.Context, key string, store sessions.VersionedStore, stale string, status int) (*oauth2.Token, error) {
	// The flight outlives any single waiter: one caller giving up must not fail the others.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(key, func() (interface{}, error) {
		return c.renew(flightCtx, store, stale, status)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}

func (c *Coordinator) renew(ctx context.Context, store sessions.VersionedStore, stale string, status int) (*oauth2.Token, error) {
	creds, version, err := store.ReadVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("[refresh Renew] read session: %w", err)
	}

	// A previous flight already replaced the token this request was sent with.
	if creds != nil && creds.AccessToken != "" && creds.AccessToken != stale {
		metrics.TokenRefreshes.WithLabelValues(metrics.RefreshReused).Inc()
		return bearer(creds.AccessToken, creds.RefreshToken), nil
	}

	if creds == nil || creds.RefreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues(metrics.RefreshNoRefreshToken).Inc()
		if !c.clear(ctx, store, version) {
			return c.superseded(ctx, store, status)
		}
		return nil, &errors.AuthExpiredError{StatusCode: status}
	}

	tok, err := c.refresher.Refresh(ctx, creds.RefreshToken)
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = fmt.Errorf("refresh response carried no access token")
	}
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(metrics.RefreshFailed).Inc()
		log.Warn().Err(err).Int("status", status).Msg("token refresh failed, clearing session")
		if !c.clear(ctx, store, version) {
			return c.superseded(ctx, store, status)
		}
		return nil, &errors.AuthExpiredError{StatusCode: status, Cause: err}
	}

	next := *creds
	next.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	written, err := store.WriteIfVersion(ctx, version, next)
	if err != nil {
		return nil, fmt.Errorf("[refresh Renew] write session: %w", err)
	}
	if !written {
		return c.superseded(ctx, store, status)
	}

	metrics.TokenRefreshes.WithLabelValues(metrics.RefreshRefreshed).Inc()
	log.Debug().Bool("rotated", tok.RefreshToken != "").Msg("access token refreshed")
	return bearer(next.AccessToken, next.RefreshToken), nil
}

// superseded handles a refresh whose session changed underneath it: the renewed
// tokens are dropped and the session as it is now decides the outcome.
func (c *Coordinator) superseded(ctx context.Context, store sessions.Store, status int) (*oauth2.Token, error) {
	metrics.TokenRefreshes.WithLabelValues(metrics.RefreshDiscarded).Inc()
	creds, err := store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("[refresh Renew] read session: %w", err)
	}
	if creds == nil || creds.AccessToken == "" {
		log.Debug().Int("status", status).Msg("session cleared during refresh, dropping renewed tokens")
		return nil, &errors.AuthExpiredError{StatusCode: status, Cause: errors.ErrSessionNotFound}
	}
	return bearer(creds.AccessToken, creds.RefreshToken), nil
}

// clear drops the session unless it was replaced since version, e.g. by a new sign-in.
// It reports false only in that case.
func (c *Coordinator) clear(ctx context.Context, store sessions.VersionedStore, version sessions.Version) bool {
	cleared, err := store.ClearIfVersion(ctx, version)
	if err != nil {
		log.Err(err).Msg("failed to clear session after refresh failure")
		return true
	}
	return cleared
}

func bearer(access, refresh string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
}
