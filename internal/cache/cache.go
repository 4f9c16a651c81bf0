package cache

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/copystructure"
	gocache "github.com/patrickmn/go-cache"
)

// Cache is a read-through cache for query results. Values are deep-copied on the way
// in and out, so callers can never mutate a cached entry.
//
// A reader takes the key's Version before loading a value and passes it to Set. Set
// drops the value if the key was invalidated in between, so a load that raced with a
// mutation never outlives that mutation's Invalidate.
type Cache interface {
	Get(key string) (any, bool)
	Version(key string) uint64
	Set(key string, value any, version uint64)
	Invalidate(keys ...string)
}

// MatchKey is the cache key of a match view.
func MatchKey(matchID string) string { return "match:" + matchID }

// StatsKey is the cache key of a user's stats.
func StatsKey(userID string) string { return "stats:" + userID }

type memory struct {
	mu       sync.Mutex
	c        *gocache.Cache
	versions map[string]uint64
}

// New creates an in-process cache whose entries expire after ttl.
func New(ttl time.Duration) Cache {
	return &memory{c: gocache.New(ttl, 2*ttl), versions: make(map[string]uint64)}
}

func (m *memory) Get(key string) (any, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	copied, err := copystructure.Copy(v)
	if err != nil {
		log.Warn("Failed to copy cached value", "key", key, "error", err)
		return nil, false
	}
	return copied, true
}

func (m *memory) Version(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[key]
}

func (m *memory) Set(key string, value any, version uint64) {
	copied, err := copystructure.Copy(value)
	if err != nil {
		log.Warn("Failed to copy value for cache", "key", key, "error", err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[key] != version {
		log.Debug("Dropped stale cache value", "key", key)
		return
	}
	m.c.SetDefault(key, copied)
}

func (m *memory) Invalidate(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.versions[k]++
		m.c.Delete(k)
	}
}

// Noop is a Cache that never stores anything.
type Noop struct{}

func (Noop) Get(string) (any, bool)  { return nil, false }
func (Noop) Version(string) uint64   { return 0 }
func (Noop) Set(string, any, uint64) {}
func (Noop) Invalidate(...string)    {}
