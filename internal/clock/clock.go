// Package clock provides an abstraction over time operations for testability.
// Production code uses RealClock, tests can inject a fake for deterministic behavior.
package clock

import "time"

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// NewTicker returns a Ticker firing at the given interval.
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks at a fixed interval.
type Ticker interface {
	// Chan returns the channel on which ticks are delivered.
	Chan() <-chan time.Time
	// Stop turns off the ticker. No more ticks will be delivered.
	Stop()
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// NewRealClock creates a new RealClock.
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now implements Clock.Now using time.Now.
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// NewTicker implements Clock.NewTicker using time.NewTicker.
func (c *RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

// realTicker wraps time.Ticker to implement the Ticker interface.
type realTicker struct {
	ticker *time.Ticker
}

// Chan implements Ticker.Chan.
func (t *realTicker) Chan() <-chan time.Time {
	return t.ticker.C
}

// Stop implements Ticker.Stop.
func (t *realTicker) Stop() {
	t.ticker.Stop()
}
