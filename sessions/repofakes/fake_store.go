package sessionrepofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-tenant-gateway/sessions"
)

var _ sessions.VersionedStore = (*FakeStore)(nil)

// FakeStore is a single in-memory session. The error fields make the next call of
// the matching method fail.
type FakeStore struct {
	mu      sync.Mutex
	creds   *sessions.Credentials
	version sessions.Version
	writes  int
	clears  int

	WriteErr error
	ClearErr error
}

func NewFakeStore(initial *sessions.Credentials) *FakeStore {
	s := &FakeStore{}
	if initial != nil {
		c := initial.Clone()
		s.creds = &c
	}
	return s
}

func (s *FakeStore) Read(_ context.Context) (*sessions.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

func (s *FakeStore) ReadVersion(_ context.Context) (*sessions.Credentials, sessions.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), s.version, nil
}

func (s *FakeStore) Write(_ context.Context, c sessions.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(c)
}

func (s *FakeStore) WriteIfVersion(_ context.Context, v sessions.Version, c sessions.Credentials) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != v {
		return false, nil
	}
	if err := s.write(c); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FakeStore) write(c sessions.Credentials) error {
	if err := s.WriteErr; err != nil {
		s.WriteErr = nil
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	c = c.Clone()
	s.creds = &c
	s.version++
	s.writes++
	return nil
}

func (s *FakeStore) snapshot() *sessions.Credentials {
	if s.creds == nil {
		return nil
	}
	c := s.creds.Clone()
	return &c
}

func (s *FakeStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear()
}

func (s *FakeStore) ClearIfVersion(_ context.Context, v sessions.Version) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != v {
		return false, nil
	}
	if err := s.clear(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FakeStore) clear() error {
	if err := s.ClearErr; err != nil {
		s.ClearErr = nil
		return err
	}
	s.creds = nil
	s.version++
	s.clears++
	return nil
}

// Snapshot returns the stored credentials without going through Read.
func (s *FakeStore) Snapshot() *sessions.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *FakeStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *FakeStore) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}
