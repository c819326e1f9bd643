package shared

import "time"

// Clock supplies the current time to command handlers. Aggregates never read
// the wall clock directly; the command timestamp flows in through events so
// replay stays deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Test helper.
type FixedClock struct {
	Instant time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return c.Instant
}
