package phase

import (
	"testing"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
)

func TestNextCycles(t *testing.T) {
	t.Parallel()

	order := []Phase{NSGreen, NSYellow, EWGreen, EWYellow}
	for i, p := range order {
		want := order[(i+1)%len(order)]
		if got := Next(p); got != want {
			t.Fatalf("next(%s) = %s, want %s", p, got, want)
		}
	}
}

func TestColorsTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		phase Phase
		dir   trafficv1.Direction
		want  trafficv1.Color
	}{
		{NSGreen, trafficv1.DirectionNorth, trafficv1.ColorGreen},
		{NSGreen, trafficv1.DirectionSouth, trafficv1.ColorGreen},
		{NSGreen, trafficv1.DirectionEast, trafficv1.ColorRed},
		{NSGreen, trafficv1.DirectionWest, trafficv1.ColorRed},
		{NSYellow, trafficv1.DirectionNorth, trafficv1.ColorYellow},
		{NSYellow, trafficv1.DirectionEast, trafficv1.ColorRed},
		{EWGreen, trafficv1.DirectionNorth, trafficv1.ColorRed},
		{EWGreen, trafficv1.DirectionEast, trafficv1.ColorGreen},
		{EWGreen, trafficv1.DirectionWest, trafficv1.ColorGreen},
		{EWYellow, trafficv1.DirectionWest, trafficv1.ColorYellow},
		{EWYellow, trafficv1.DirectionSouth, trafficv1.ColorRed},
	}
	for _, tc := range cases {
		if got := Colors(tc.phase, tc.dir); got != tc.want {
			t.Fatalf("colors(%s, %s) = %s, want %s", tc.phase, tc.dir, got, tc.want)
		}
	}
}

func TestColorsNeverConflict(t *testing.T) {
	t.Parallel()

	for _, p := range []Phase{NSGreen, NSYellow, EWGreen, EWYellow} {
		nsPermissive := Colors(p, trafficv1.DirectionNorth) != trafficv1.ColorRed
		ewPermissive := Colors(p, trafficv1.DirectionEast) != trafficv1.ColorRed
		if nsPermissive && ewPermissive {
			t.Fatalf("phase %s is permissive on both axes", p)
		}
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	if got := Duration(NSGreen, 60, 45); got != 60 {
		t.Fatalf("ns green duration = %d, want 60", got)
	}
	if got := Duration(EWGreen, 60, 45); got != 45 {
		t.Fatalf("ew green duration = %d, want 45", got)
	}
	if got := Duration(NSYellow, 60, 45); got != YellowSeconds {
		t.Fatalf("yellow duration = %d, want %d", got, YellowSeconds)
	}
	if got := Duration(EWYellow, 60, 45); got != YellowSeconds {
		t.Fatalf("yellow duration = %d, want %d", got, YellowSeconds)
	}
}

func TestRedWait(t *testing.T) {
	t.Parallel()

	// Entering EWGreen, a north head waits out the full cross green plus
	// clearance yellow.
	if got := RedWait(EWGreen, trafficv1.DirectionNorth, 60, 60); got != 64 {
		t.Fatalf("north wait from ew_green = %d, want 64", got)
	}
	if got := RedWait(EWYellow, trafficv1.DirectionSouth, 60, 60); got != YellowSeconds {
		t.Fatalf("south wait from ew_yellow = %d, want %d", got, YellowSeconds)
	}
	if got := RedWait(NSGreen, trafficv1.DirectionEast, 45, 60); got != 49 {
		t.Fatalf("east wait from ns_green = %d, want 49", got)
	}
	if got := RedWait(NSYellow, trafficv1.DirectionWest, 60, 60); got != YellowSeconds {
		t.Fatalf("west wait from ns_yellow = %d, want %d", got, YellowSeconds)
	}
	// Directions that are not red in the phase have no wait.
	if got := RedWait(NSGreen, trafficv1.DirectionNorth, 60, 60); got != 0 {
		t.Fatalf("green head wait = %d, want 0", got)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	t.Parallel()

	want := map[Phase]int{NSGreen: 0, NSYellow: 1, EWGreen: 3, EWYellow: 4}
	for p, idx := range want {
		if got := Index(p); got != idx {
			t.Fatalf("index(%s) = %d, want %d", p, got, idx)
		}
		back, err := FromIndex(idx)
		if err != nil || back != p {
			t.Fatalf("from_index(%d) = %s, %v; want %s", idx, back, err, p)
		}
	}
	// 2 and 5 are reserved for all-red clearance and never scheduled.
	for _, idx := range []int{2, 5, -1, 6} {
		if _, err := FromIndex(idx); err == nil {
			t.Fatalf("expected index %d to be rejected", idx)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	for _, p := range []Phase{NSGreen, NSYellow, EWGreen, EWYellow} {
		if err := Validate(p); err != nil {
			t.Fatalf("expected %s to be valid: %v", p, err)
		}
	}
	if err := Validate(Phase("all_red")); err == nil {
		t.Fatalf("expected unknown phase to fail")
	}
}
