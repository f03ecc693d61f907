package clock

import "time"

// DefaultTimezone pins all attendance time-of-day comparisons to western
// Indonesian time regardless of server locale.
const DefaultTimezone = "Asia/Jakarta"

// Clock supplies the current timestamp. Services take a Clock so tests can
// freeze time.
type Clock interface {
	Now() time.Time
}

// ZoneClock returns timestamps in a fixed IANA timezone.
type ZoneClock struct {
	loc *time.Location
}

// NewZoneClock loads the given IANA zone, falling back to a fixed UTC+7
// offset when the zone database is unavailable.
func NewZoneClock(name string) *ZoneClock {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.FixedZone("WIB", 7*60*60)
	}
	return &ZoneClock{loc: loc}
}

// Now returns the current time in the configured zone.
func (c *ZoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location exposes the underlying zone for date arithmetic.
func (c *ZoneClock) Location() *time.Location {
	return c.loc
}

// Fixed is a Clock pinned to one instant, used in tests.
type Fixed struct {
	Time time.Time
}

// Now returns the pinned instant.
func (f Fixed) Now() time.Time { return f.Time }
