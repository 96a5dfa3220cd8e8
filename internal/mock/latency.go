package mock

import (
	"context"
	"math/rand/v2"
	"time"
)

// Latency is a simulated stage delay: Min plus a uniform draw from
// [0, Jitter).
type Latency struct {
	Min    time.Duration
	Jitter time.Duration
}

// Draw returns one delay sample.
func (l Latency) Draw() time.Duration {
	d := l.Min
	if l.Jitter > 0 {
		d += rand.N(l.Jitter)
	}
	if d < 0 {
		return 0
	}
	return d
}

// Max is the longest delay Draw can return.
func (l Latency) Max() time.Duration {
	return max(l.Min+l.Jitter, 0)
}

// Wait sleeps for one drawn delay or until ctx is done.
func (l Latency) Wait(ctx context.Context) error {
	d := l.Draw()
	if d == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latencies holds one delay per stage.
type Latencies struct {
	Intent Latency
	Query  Latency
	Fetch  Latency
}

// DefaultLatencies are the demo delays.
func DefaultLatencies() Latencies {
	return Latencies{
		Intent: Latency{Min: 1500 * time.Millisecond, Jitter: 500 * time.Millisecond},
		Query:  Latency{Min: 2000 * time.Millisecond, Jitter: 700 * time.Millisecond},
		Fetch:  Latency{Min: 2500 * time.Millisecond, Jitter: 800 * time.Millisecond},
	}
}

// NoLatency disables every delay.
func NoLatency() Latencies {
	return Latencies{}
}
