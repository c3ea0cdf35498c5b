// Package clock is the engine's single source of "now", always UTC.
package clock

import "time"

// Clock yields the current instant. Implementations must return UTC.
type Clock func() time.Time

// System is the wall clock.
func System() time.Time {
	return time.Now().UTC()
}

// Epoch converts an instant to epoch seconds with sub-second precision, the
// timestamp unit used by the phase cache and the subscribe stream.
func Epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromEpoch converts cache epoch seconds back to an instant.
func FromEpoch(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second))).UTC()
}
