// Package clock provides the time source used by every fixed-duration wait in the relay.
// Settle windows are blocking sleeps, not completion signals, so tests replace the
// real clock with Fake to observe them.
package clock

import "time"

// Clock is the time source for timed waits.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Since returns the time elapsed on c since t.
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}
