// Package phase defines the fixed four-phase cycle of an intersection as a
// tagged alphabet with pure transition and color functions. The historical
// integer encoding (0, 1, 3, 4; 2 and 5 reserved for all-red clearance) is
// kept only at the cache boundary via Index/FromIndex.
package phase

import (
	"fmt"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
)

// Phase names one interval of the cycle during which a fixed color assignment
// holds for all four signals.
type Phase string

const (
	NSGreen  Phase = "ns_green"
	NSYellow Phase = "ns_yellow"
	EWGreen  Phase = "ew_green"
	EWYellow Phase = "ew_yellow"
)

// YellowSeconds is the fixed clearance-yellow interval.
const YellowSeconds = 4

// Validate enforces the phase alphabet.
func Validate(p Phase) error {
	switch p {
	case NSGreen, NSYellow, EWGreen, EWYellow:
		return nil
	default:
		return fmt.Errorf("invalid phase: %q", p)
	}
}

// Next returns the successor phase: NSGreen -> NSYellow -> EWGreen ->
// EWYellow -> NSGreen.
func Next(p Phase) Phase {
	switch p {
	case NSGreen:
		return NSYellow
	case NSYellow:
		return EWGreen
	case EWGreen:
		return EWYellow
	default:
		return NSGreen
	}
}

// Colors returns the color a phase dictates for a direction.
func Colors(p Phase, d trafficv1.Direction) trafficv1.Color {
	if d.NorthSouth() {
		switch p {
		case NSGreen:
			return trafficv1.ColorGreen
		case NSYellow:
			return trafficv1.ColorYellow
		default:
			return trafficv1.ColorRed
		}
	}
	switch p {
	case EWGreen:
		return trafficv1.ColorGreen
	case EWYellow:
		return trafficv1.ColorYellow
	default:
		return trafficv1.ColorRed
	}
}

// Duration returns the length of a phase in seconds given the nominal green
// durations of the two axes.
func Duration(p Phase, nsSeconds int, ewSeconds int) int {
	switch p {
	case NSGreen:
		return nsSeconds
	case EWGreen:
		return ewSeconds
	default:
		return YellowSeconds
	}
}

// RedWait returns, for a direction held RED during phase p, the seconds until
// that direction's next green. This is the countdown clients render for red
// heads. It returns 0 when the direction is not red in p.
func RedWait(p Phase, d trafficv1.Direction, nsSeconds int, ewSeconds int) int {
	if d.NorthSouth() {
		switch p {
		case EWGreen:
			return ewSeconds + YellowSeconds
		case EWYellow:
			return YellowSeconds
		default:
			return 0
		}
	}
	switch p {
	case NSGreen:
		return nsSeconds + YellowSeconds
	case NSYellow:
		return YellowSeconds
	default:
		return 0
	}
}

// Index returns the historical integer encoding used by the phase cache.
func Index(p Phase) int {
	switch p {
	case NSGreen:
		return 0
	case NSYellow:
		return 1
	case EWGreen:
		return 3
	default:
		return 4
	}
}

// FromIndex decodes the historical integer encoding.
func FromIndex(i int) (Phase, error) {
	switch i {
	case 0:
		return NSGreen, nil
	case 1:
		return NSYellow, nil
	case 3:
		return EWGreen, nil
	case 4:
		return EWYellow, nil
	default:
		return "", fmt.Errorf("invalid phase index: %d", i)
	}
}
