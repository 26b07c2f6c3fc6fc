// Package clock abstracts wall time and one-shot timers so reconnect and
// pulse scheduling can be driven deterministically in tests.
package clock

import "time"

// Clock provides a testable time source.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer, false if it had already fired or been stopped.
	Stop() bool
}

// Real is the production Clock backed by the time package.
type Real struct{}

var _ Clock = Real{}

// Now implements Clock.
func (Real) Now() time.Time { return time.Now() }

// AfterFunc implements Clock.
func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
