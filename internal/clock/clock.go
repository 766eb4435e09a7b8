package clock

import "time"

// Clock supplies "now" and the calendar zone. Services take a Clock so
// tests can pin time; production uses System.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// NewSystem returns a Clock reporting wall time in the given zone name.
// An unknown or empty name falls back to Asia/Tokyo.
func NewSystem(zone string) Clock {
	loc, err := time.LoadLocation(zone)
	if err != nil || zone == "" {
		loc = time.FixedZone("JST", 9*60*60)
	}
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *systemClock) Location() *time.Location {
	return c.loc
}

// Fixed is a Clock pinned to a single instant, for tests and for the
// explicit `now` override on the advance endpoint.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time           { return f.T }
func (f Fixed) Location() *time.Location { return f.T.Location() }
