package random

import (
	"context"
	"time"
)

// Clock is the time seam for simulated delays and timestamps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Sleep waits d on clock c. It returns ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}

// FrozenClock reports a fixed instant and fires every wait immediately.
type FrozenClock struct {
	At time.Time
}

func (f FrozenClock) Now() time.Time { return f.At }

func (f FrozenClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- f.At
	return ch
}
