package memory

import (
	"context"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	gocache "github.com/patrickmn/go-cache"
)

var _ sessions.Repo = (*Repo)(nil)

// Repo keeps sessions in process memory with per-session expiry.
type Repo struct{ c *gocache.Cache }

func New(defaultTTL time.Duration) *Repo {
	return &Repo{c: gocache.New(defaultTTL, time.Minute)}
}

func (r *Repo) Put(_ context.Context, origin, sessionID string, c sessions.Credentials, ttl time.Duration) error {
	r.c.Set(sessions.ScopeKey(origin, sessionID), c.Clone(), ttl)
	return nil
}

func (r *Repo) Get(_ context.Context, origin, sessionID string) (sessions.Credentials, error) {
	v, ok := r.c.Get(sessions.ScopeKey(origin, sessionID))
	if !ok {
		return sessions.Credentials{}, errors.ErrSessionNotFound
	}
	c, ok := v.(sessions.Credentials)
	if !ok {
		return sessions.Credentials{}, errors.ErrSessionNotFound
	}
	return c.Clone(), nil
}

func (r *Repo) Delete(_ context.Context, origin, sessionID string) error {
	r.c.Delete(sessions.ScopeKey(origin, sessionID))
	return nil
}

// Len returns the number of live sessions.
func (r *Repo) Len() int {
	return r.c.ItemCount()
}
