package ids

import (
	"io"
	"math/rand"
	"sync"

	"github.com/mauv0809/courtmatch/internal/clock"
	"github.com/oklog/ulid/v2"
)

// Generator produces new opaque identifiers.
type Generator interface {
	NewID() string
}

// ULID generates lexicographically sortable ids. Ids created within the same
// millisecond are strictly increasing, which makes them usable as a secondary
// ordering key behind a timestamp.
type ULID struct {
	mu      sync.Mutex
	clock   clock.Clock
	entropy io.Reader
}

// NewULID creates a monotonic ULID generator stamped with clk.
func NewULID(clk clock.Clock) *ULID {
	now := clk.Now()
	return &ULID{
		clock:   clk,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0),
	}
}

// NewID returns the next id.
func (g *ULID) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.clock.Now()), g.entropy).String()
}
