package sessions

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	gocache "github.com/patrickmn/go-cache"
)

// Version identifies one state of a session as seen by ReadVersion.
type Version uint64

const (
	guardStripes = 64
	// versionTTL bounds how long a version handed out by ReadVersion stays usable.
	// It is far longer than any upstream call.
	versionTTL = 10 * time.Minute
)

// Guard serialises the changes made to each session and tracks their versions, so a
// conditional write never lands on a session that was cleared or replaced after it
// was read. One Guard must be shared by every store of a process.
type Guard struct {
	stripes  [guardStripes]sync.Mutex
	versions *gocache.Cache
	next     atomic.Uint64
}

func NewGuard() *Guard {
	return &Guard{versions: gocache.New(versionTTL, versionTTL)}
}

func (g *Guard) lock(key string) func() {
	m := &g.stripes[xxhash.Sum64String(key)%guardStripes]
	m.Lock()
	return m.Unlock
}

// current returns the version of key, assigning a fresh one when the session has
// changed since the last call. The caller holds the key's lock.
func (g *Guard) current(key string) Version {
	if v, ok := g.versions.Get(key); ok {
		return v.(Version)
	}
	v := Version(g.next.Add(1))
	g.versions.Set(key, v, gocache.DefaultExpiration)
	return v
}

// matches reports whether key is still at version v. The caller holds the key's lock.
func (g *Guard) matches(key string, v Version) bool {
	cur, ok := g.versions.Get(key)
	return ok && cur.(Version) == v
}

// changed invalidates every version handed out for key. The caller holds the key's lock.
func (g *Guard) changed(key string) {
	g.versions.Delete(key)
}
