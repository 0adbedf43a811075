// Package sessions holds the credential set of one browser origin.
//
// A browser keeps these values in origin-scoped storage; the gateway keeps them in a
// Repo keyed by the origin host and a host-only session cookie, which gives the same
// isolation: a session written for one origin is never visible from another.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/token/jwt"
)

// Persisted keys of a session.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyTenant       = "tenant"
)

// AllKeys lists every persisted key.
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyTenant}

// Credentials is the authenticated state of one origin. User and Tenant are the
// backend's JSON records, kept opaque. Tenant is nil for users without a tenant.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	User         json.RawMessage
	Tenant       json.RawMessage
}

// Validate checks the fields every stored session must have.
func (c Credentials) Validate() error {
	if c.AccessToken == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "missing %s", KeyAccessToken)
	}
	if len(c.User) == 0 {
		return errors.Wrapf(errors.ErrInvalidRequest, "missing %s", KeyUser)
	}
	return nil
}

// HasTenant reports whether a tenant record is present.
func (c Credentials) HasTenant() bool {
	return len(c.Tenant) > 0 && string(c.Tenant) != "null"
}

// Clone returns a deep copy so stored records are never shared with callers.
func (c Credentials) Clone() Credentials {
	c.User = cloneRaw(c.User)
	c.Tenant = cloneRaw(c.Tenant)
	return c
}

// Fields flattens the credentials into the persisted key/value layout.
// The tenant key is absent when there is no tenant.
func (c Credentials) Fields() map[string]string {
	f := map[string]string{
		KeyAccessToken:  c.AccessToken,
		KeyRefreshToken: c.RefreshToken,
		KeyUser:         string(c.User),
	}
	if c.HasTenant() {
		f[KeyTenant] = string(c.Tenant)
	}
	return f
}

// FromFields rebuilds credentials from the persisted layout.
func FromFields(f map[string]string) (*Credentials, error) {
	c := &Credentials{
		AccessToken:  f[KeyAccessToken],
		RefreshToken: f[KeyRefreshToken],
	}
	if u := f[KeyUser]; u != "" {
		if !json.Valid([]byte(u)) {
			return nil, fmt.Errorf("[sessions FromFields] %s is not valid JSON", KeyUser)
		}
		c.User = json.RawMessage(u)
	}
	if t := f[KeyTenant]; t != "" {
		if !json.Valid([]byte(t)) {
			return nil, fmt.Errorf("[sessions FromFields] %s is not valid JSON", KeyTenant)
		}
		c.Tenant = json.RawMessage(t)
	}
	return c, nil
}

// Store is the credential set of the current origin.
type Store interface {
	// Read returns nil without error when no session exists.
	Read(ctx context.Context) (*Credentials, error)
	// Write replaces the session wholesale. Keys of a previous session never survive.
	Write(ctx context.Context, c Credentials) error
	// Clear removes every key of the session.
	Clear(ctx context.Context) error
}

// VersionedStore is a Store whose writes can be made conditional on the session not
// having changed since it was read.
type VersionedStore interface {
	Store
	// ReadVersion is Read plus the version of what was read.
	ReadVersion(ctx context.Context) (*Credentials, Version, error)
	// WriteIfVersion replaces the session only when it is still at version v. It
	// reports false without writing when the session was written or cleared since.
	WriteIfVersion(ctx context.Context, v Version, c Credentials) (bool, error)
	// ClearIfVersion clears the session only when it is still at version v.
	ClearIfVersion(ctx context.Context, v Version) (bool, error)
}

// Repo persists sessions for all origins.
type Repo interface {
	Put(ctx context.Context, origin, sessionID string, c Credentials, ttl time.Duration) error
	// Get returns errors.ErrSessionNotFound when no session exists.
	Get(ctx context.Context, origin, sessionID string) (Credentials, error)
	Delete(ctx context.Context, origin, sessionID string) error
}

// ScopeKey identifies a session across origins.
func ScopeKey(origin, sessionID string) string {
	return origin + "|" + sessionID
}

type scopedStore struct {
	repo       Repo
	guard      *Guard
	origin     string
	sessionID  string
	defaultTTL time.Duration
}

// ScopeOption configures a store returned by Scoped.
type ScopeOption func(*scopedStore)

// WithGuard makes the store coordinate with every other store sharing g.
func WithGuard(g *Guard) ScopeOption {
	return func(s *scopedStore) {
		if g != nil {
			s.guard = g
		}
	}
}

// Scoped binds repo to a single origin and session. The session lifetime follows
// the refresh token's expiry when it is a JWT, else defaultTTL.
func Scoped(repo Repo, origin, sessionID string, defaultTTL time.Duration, options ...ScopeOption) VersionedStore {
	s := &scopedStore{repo: repo, origin: origin, sessionID: sessionID, defaultTTL: defaultTTL}
	for _, opt := range options {
		opt(s)
	}
	if s.guard == nil {
		s.guard = NewGuard()
	}
	return s
}

func (s *scopedStore) key() string {
	return ScopeKey(s.origin, s.sessionID)
}

func (s *scopedStore) Read(ctx context.Context) (*Credentials, error) {
	c, err := s.repo.Get(ctx, s.origin, s.sessionID)
	if errors.Is(err, errors.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[sessions Read] %w", err)
	}
	return &c, nil
}

func (s *scopedStore) ReadVersion(ctx context.Context) (*Credentials, Version, error) {
	unlock := s.guard.lock(s.key())
	defer unlock()

	c, err := s.Read(ctx)
	if err != nil {
		return nil, 0, err
	}
	return c, s.guard.current(s.key()), nil
}

func (s *scopedStore) Write(ctx context.Context, c Credentials) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("[sessions Write] %w", err)
	}
	unlock := s.guard.lock(s.key())
	defer unlock()

	s.guard.changed(s.key())
	return s.put(ctx, c)
}

func (s *scopedStore) WriteIfVersion(ctx context.Context, v Version, c Credentials) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, fmt.Errorf("[sessions WriteIfVersion] %w", err)
	}
	unlock := s.guard.lock(s.key())
	defer unlock()

	if !s.guard.matches(s.key(), v) {
		return false, nil
	}
	s.guard.changed(s.key())
	if err := s.put(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}

func (s *scopedStore) put(ctx context.Context, c Credentials) error {
	ttl := jwt.TimeToLive(c.RefreshToken, s.defaultTTL)
	if err := s.repo.Put(ctx, s.origin, s.sessionID, c.Clone(), ttl); err != nil {
		return fmt.Errorf("[sessions Write] %w", err)
	}
	return nil
}

func (s *scopedStore) Clear(ctx context.Context) error {
	unlock := s.guard.lock(s.key())
	defer unlock()

	return s.clear(ctx)
}

func (s *scopedStore) ClearIfVersion(ctx context.Context, v Version) (bool, error) {
	unlock := s.guard.lock(s.key())
	defer unlock()

	if !s.guard.matches(s.key(), v) {
		return false, nil
	}
	if err := s.clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *scopedStore) clear(ctx context.Context) error {
	s.guard.changed(s.key())
	if err := s.repo.Delete(ctx, s.origin, s.sessionID); err != nil {
		return fmt.Errorf("[sessions Clear] %w", err)
	}
	return nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
