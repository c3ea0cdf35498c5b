// Package signal holds the persisted domain model of the controller: cities,
// areas, intersections, and the four directional signals of each intersection,
// plus the partner/conflict relation that the safety rules are built on.
package signal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
)

// DefaultDurationSeconds is the nominal green time of a freshly provisioned
// signal.
const DefaultDurationSeconds = 60

// Signal is one directional head of an intersection.
type Signal struct {
	ID              int64               `db:"id"`
	IntersectionID  int64               `db:"intersection_id"`
	Direction       trafficv1.Direction `db:"direction"`
	Color           trafficv1.Color     `db:"color"`
	CurrentDensity  int                 `db:"current_density"`
	DurationSeconds int                 `db:"duration_seconds"`
	LastUpdated     time.Time           `db:"last_updated"`
	IsManual        bool                `db:"is_manual"`
	IsActive        bool                `db:"is_active"`
	CreatedAt       sql.NullTime        `db:"created_at"`
	UpdatedAt       sql.NullTime        `db:"updated_at"`
}

// OverrideExpired reports whether a manual override has run past its bound.
func (s Signal) OverrideExpired(now time.Time) bool {
	if !s.IsManual {
		return false
	}
	return now.After(s.LastUpdated.Add(time.Duration(s.DurationSeconds) * time.Second))
}

// Intersection is a set of four signals within a traffic area.
type Intersection struct {
	ID         int64  `db:"id"`
	AreaID     int64  `db:"area_id"`
	Name       string `db:"name"`
	Code       string `db:"code"`
	Location   string `db:"location"`
	IsFavorite bool   `db:"is_favorite"`
}

// TrafficArea groups intersections within a city.
type TrafficArea struct {
	ID     int64  `db:"id"`
	CityID int64  `db:"city_id"`
	Name   string `db:"name"`
	Code   string `db:"code"`
}

// City is the root of the administrative hierarchy.
type City struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Code string `db:"code"`
}

// ColorUpdate is one pending color write produced by a phase transition.
type ColorUpdate struct {
	LightID   int64
	Direction trafficv1.Direction
	Color     trafficv1.Color
}

// Partner returns the co-axial direction that always mirrors color.
func Partner(d trafficv1.Direction) trafficv1.Direction {
	switch d {
	case trafficv1.DirectionNorth:
		return trafficv1.DirectionSouth
	case trafficv1.DirectionSouth:
		return trafficv1.DirectionNorth
	case trafficv1.DirectionEast:
		return trafficv1.DirectionWest
	default:
		return trafficv1.DirectionEast
	}
}

// Conflicts returns the perpendicular pair whose green would violate safety
// given the target direction's green.
func Conflicts(d trafficv1.Direction) []trafficv1.Direction {
	if d.NorthSouth() {
		return []trafficv1.Direction{trafficv1.DirectionEast, trafficv1.DirectionWest}
	}
	return []trafficv1.Direction{trafficv1.DirectionNorth, trafficv1.DirectionSouth}
}

// ByDirection indexes an intersection's signals by direction.
func ByDirection(signals []Signal) map[trafficv1.Direction]*Signal {
	out := make(map[trafficv1.Direction]*Signal, len(signals))
	for i := range signals {
		out[signals[i].Direction] = &signals[i]
	}
	return out
}

// CheckSafety verifies that no perpendicular pair of signals is simultaneously
// permissive: if any head shows GREEN or YELLOW, the crossing axis must be
// fully RED.
func CheckSafety(signals []Signal) error {
	nsPermissive := false
	ewPermissive := false
	for _, s := range signals {
		if s.Color == trafficv1.ColorRed {
			continue
		}
		if s.Direction.NorthSouth() {
			nsPermissive = true
		} else {
			ewPermissive = true
		}
	}
	if nsPermissive && ewPermissive {
		return fmt.Errorf("conflicting permissive signals across axes")
	}
	return nil
}
