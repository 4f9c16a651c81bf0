package sweeper

import "context"

// Target is the maintenance work run on every tick.
type Target interface {
	Sweep(ctx context.Context) error
}
