package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source used by the engine.
// In production, use New(). In tests, a clockwork.FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// New returns the real wall clock.
func New() Clock {
	return clockwork.NewRealClock()
}
