package clock

import (
	"time"

	"go.uber.org/fx"
)

// Module provides the wall clock to the application.
var Module = fx.Provide(New)

// Clock is an interface that abstracts the functionality for measuring and displaying time.
type Clock interface {
	// Now returns the current local time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
	// After waits for the duration to elapse and then sends the current time on the returned channel.
	After(d time.Duration) <-chan time.Time
	// Sleep pauses the current goroutine for at least the duration d. A negative or zero duration causes Sleep to return immediately.
	Sleep(duration time.Duration)
}

type clock struct{}

// New creates a new instance of Clock.
func New() Clock {
	return clock{}
}

func (clock) Now() time.Time {
	return time.Now()
}

func (clock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (clock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (clock) Sleep(duration time.Duration) {
	time.Sleep(duration)
}
