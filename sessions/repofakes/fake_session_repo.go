package sessionrepofakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory sessions.Repo for tests.
type FakeSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]map[string]sessions.Credentials // origin -> sessionID -> credentials
	ttls     map[string]time.Duration
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]map[string]sessions.Credentials),
		ttls:     make(map[string]time.Duration),
	}
}

func (r *FakeSessionRepo) Put(_ context.Context, origin, sessionID string, c sessions.Credentials, ttl time.Duration) error {
	if origin == "" {
		return fmt.Errorf("origin is required")
	}
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[origin]; !ok {
		r.sessions[origin] = make(map[string]sessions.Credentials)
	}
	r.sessions[origin][sessionID] = c.Clone()
	r.ttls[sessions.ScopeKey(origin, sessionID)] = ttl
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, origin, sessionID string) (sessions.Credentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.sessions[origin][sessionID]
	if !ok {
		return sessions.Credentials{}, errors.ErrSessionNotFound
	}
	return c.Clone(), nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, origin, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	originSessions, ok := r.sessions[origin]
	if !ok {
		return nil
	}
	delete(originSessions, sessionID)
	delete(r.ttls, sessions.ScopeKey(origin, sessionID))
	if len(originSessions) == 0 {
		delete(r.sessions, origin)
	}
	return nil
}

// TTL returns the lifetime the session was last stored with.
func (r *FakeSessionRepo) TTL(origin, sessionID string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ttls[sessions.ScopeKey(origin, sessionID)]
}

// Count returns the number of sessions stored for origin.
func (r *FakeSessionRepo) Count(origin string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[origin])
}
