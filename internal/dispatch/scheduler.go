package dispatch

import (
	"context"
	"math/rand"
	"time"
)

// Default inter-send jitter window. Each gap between consecutive sends is
// drawn uniformly from this range so runs do not pace like a machine.
const (
	DefaultDelayMin = 3 * time.Second
	DefaultDelayMax = 5 * time.Second
)

// DelayPolicy yields the pause inserted between consecutive sends.
type DelayPolicy interface {
	Next() time.Duration
}

// FixedDelay pauses the same duration between every send.
type FixedDelay time.Duration

func (d FixedDelay) Next() time.Duration { return time.Duration(d) }

// JitterDelay draws each pause uniformly from [Min, Max].
type JitterDelay struct {
	Min time.Duration
	Max time.Duration
}

func (d JitterDelay) Next() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)+1))
}

// DefaultDelay returns the standard jitter policy for bulk runs.
func DefaultDelay() DelayPolicy {
	return JitterDelay{Min: DefaultDelayMin, Max: DefaultDelayMax}
}

// Wait sleeps for d or until ctx is done, whichever comes first. Returns
// ctx.Err() when the context ended the wait early.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
