package trafficv1

import (
	"fmt"
)

// Color is the wire and storage encoding of a signal head color.
type Color string

const (
	ColorRed    Color = "RED"
	ColorYellow Color = "YELLOW"
	ColorGreen  Color = "GREEN"
)

// Validate enforces the color alphabet.
func (c Color) Validate() error {
	if !isColor(c) {
		return fmt.Errorf("invalid color: %q", c)
	}
	return nil
}

// Direction identifies one of the four signal heads of an intersection.
type Direction string

const (
	DirectionNorth Direction = "North"
	DirectionSouth Direction = "South"
	DirectionEast  Direction = "East"
	DirectionWest  Direction = "West"
)

// Directions lists all four directions in provisioning order.
var Directions = []Direction{DirectionNorth, DirectionSouth, DirectionEast, DirectionWest}

// Validate enforces the direction alphabet.
func (d Direction) Validate() error {
	if !isDirection(d) {
		return fmt.Errorf("invalid direction: %q", d)
	}
	return nil
}

// NorthSouth reports whether the direction lies on the north/south axis.
func (d Direction) NorthSouth() bool {
	return d == DirectionNorth || d == DirectionSouth
}

// Envelope type discriminators for the subscribe stream.
const (
	EnvelopeStateUpdate      = "state_update"
	EnvelopeBatchStateUpdate = "batch_state_update"
)

// SignalState is the client-visible state of one signal. EndTime is an epoch
// seconds countdown anchor: for RED it is the expected start of the next
// green, for GREEN/YELLOW it is the end of the current phase.
type SignalState struct {
	Status  Color   `json:"status"`
	EndTime float64 `json:"end_time"`
}

// Validate enforces signal state invariants.
func (s SignalState) Validate() error {
	if err := s.Status.Validate(); err != nil {
		return err
	}
	if s.EndTime < 0 {
		return fmt.Errorf("end_time must be >=0")
	}
	return nil
}

// StateUpdate pairs a signal identity with its new state.
type StateUpdate struct {
	LightID int64       `json:"light_id"`
	State   SignalState `json:"state"`
}

// Envelope is one push message delivered to subscribers. It is either a
// single update (LightID/State set) or a batch (Updates set), discriminated
// by Type.
type Envelope struct {
	Type    string        `json:"type"`
	LightID int64         `json:"light_id,omitempty"`
	State   *SignalState  `json:"state,omitempty"`
	Updates []StateUpdate `json:"updates,omitempty"`
}

// StateUpdateEnvelope builds a single-update envelope.
func StateUpdateEnvelope(lightID int64, state SignalState) Envelope {
	return Envelope{
		Type:    EnvelopeStateUpdate,
		LightID: lightID,
		State:   &state,
	}
}

// BatchUpdateEnvelope builds a batch envelope.
func BatchUpdateEnvelope(updates []StateUpdate) Envelope {
	return Envelope{
		Type:    EnvelopeBatchStateUpdate,
		Updates: updates,
	}
}

// Validate enforces envelope shape by type.
func (e Envelope) Validate() error {
	switch e.Type {
	case EnvelopeStateUpdate:
		if e.LightID <= 0 {
			return fmt.Errorf("light_id must be >0")
		}
		if e.State == nil {
			return fmt.Errorf("state is required for %s", EnvelopeStateUpdate)
		}
		if len(e.Updates) != 0 {
			return fmt.Errorf("updates must be empty for %s", EnvelopeStateUpdate)
		}
		return e.State.Validate()
	case EnvelopeBatchStateUpdate:
		if len(e.Updates) == 0 {
			return fmt.Errorf("updates are required for %s", EnvelopeBatchStateUpdate)
		}
		if e.LightID != 0 || e.State != nil {
			return fmt.Errorf("light_id and state must be empty for %s", EnvelopeBatchStateUpdate)
		}
		for _, u := range e.Updates {
			if u.LightID <= 0 {
				return fmt.Errorf("light_id must be >0")
			}
			if err := u.State.Validate(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid envelope type: %q", e.Type)
	}
}

// ManualOverrideRequest is the operator override payload.
type ManualOverrideRequest struct {
	Status   Color `json:"status"`
	Duration *int  `json:"duration,omitempty"`
}

// Validate enforces override request invariants.
func (r ManualOverrideRequest) Validate() error {
	if err := r.Status.Validate(); err != nil {
		return err
	}
	if r.Duration != nil && *r.Duration <= 0 {
		return fmt.Errorf("duration must be >0")
	}
	return nil
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

func isColor(v Color) bool {
	switch v {
	case ColorRed, ColorYellow, ColorGreen:
		return true
	default:
		return false
	}
}

func isDirection(v Direction) bool {
	switch v {
	case DirectionNorth, DirectionSouth, DirectionEast, DirectionWest:
		return true
	default:
		return false
	}
}
