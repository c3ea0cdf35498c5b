// Package control implements the synchronous operator operations: manual
// override with safety conflict resolution, intersection reset, override
// release, and the duration/density knobs. Every operation commits the
// durable store first, then writes through the phase cache, then broadcasts.
package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
	"github.com/tiger/traffic-signal-controller/internal/cache"
	"github.com/tiger/traffic-signal-controller/internal/clock"
	"github.com/tiger/traffic-signal-controller/internal/metrics"
	"github.com/tiger/traffic-signal-controller/internal/signal"
	"github.com/tiger/traffic-signal-controller/internal/store"
)

// ErrValidation marks operator input the handlers must reject with a 400.
var ErrValidation = errors.New("validation")

// Store is the durable-record surface the operator operations drive.
type Store interface {
	Signal(ctx context.Context, lightID int64) (signal.Signal, error)
	ListSignals(ctx context.Context) ([]signal.Signal, error)
	SignalsByIntersection(ctx context.Context, intersectionID int64) ([]signal.Signal, error)
	ApplyManualStates(ctx context.Context, signals []signal.Signal, now time.Time) error
	ClearManual(ctx context.Context, lightID int64, now time.Time) error
	SetDuration(ctx context.Context, lightID int64, seconds int) error
	SetDensity(ctx context.Context, lightID int64, value int) error
}

// Broadcaster pushes envelopes to live subscribers.
type Broadcaster interface {
	Publish(env trafficv1.Envelope)
}

// Controller executes operator commands against one store/cache/bus triple.
type Controller struct {
	store   Store
	cache   *cache.Cache
	bus     Broadcaster
	log     *zap.Logger
	metrics *metrics.Metrics

	// Now is injectable for deterministic tests.
	Now clock.Clock
}

// New constructs a controller.
func New(store Store, phaseCache *cache.Cache, bus Broadcaster, log *zap.Logger, m *metrics.Metrics) *Controller {
	return &Controller{
		store:   store,
		cache:   phaseCache,
		bus:     bus,
		log:     log,
		metrics: m,
		Now:     clock.System,
	}
}

// Override applies a manual color to one signal and reconciles the rest of
// its intersection with the safety rules: the partner mirrors the color;
// conflicts go RED under a permissive override and GREEN under a RED one
// (smart switching — operator-driven RED implies cross-traffic may proceed).
// All touched signals become manual with durations synced to the target.
func (c *Controller) Override(ctx context.Context, lightID int64, req trafficv1.ManualOverrideRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	target, err := c.store.Signal(ctx, lightID)
	if err != nil {
		return err
	}
	signals, err := c.store.SignalsByIntersection(ctx, target.IntersectionID)
	if err != nil {
		return err
	}
	byDir := signal.ByDirection(signals)
	tgt := byDir[target.Direction]
	now := c.Now()

	apply := func(s *signal.Signal, color trafficv1.Color, duration int) {
		s.Color = color
		s.IsManual = true
		s.LastUpdated = now
		s.DurationSeconds = duration
	}

	duration := tgt.DurationSeconds
	if req.Duration != nil {
		duration = *req.Duration
	}
	apply(tgt, req.Status, duration)
	if partner, ok := byDir[signal.Partner(tgt.Direction)]; ok {
		apply(partner, req.Status, duration)
	}

	conflictColor := trafficv1.ColorRed
	if req.Status == trafficv1.ColorRed {
		conflictColor = trafficv1.ColorGreen
	}
	for _, dir := range signal.Conflicts(tgt.Direction) {
		if conflict, ok := byDir[dir]; ok {
			apply(conflict, conflictColor, duration)
		}
	}

	if err := c.store.ApplyManualStates(ctx, signals, now); err != nil {
		return err
	}

	endTime := clock.Epoch(now) + float64(duration)
	updates := make([]trafficv1.StateUpdate, 0, len(signals))
	for _, s := range signals {
		state := trafficv1.SignalState{Status: s.Color, EndTime: endTime}
		if err := c.cache.SetSignalState(ctx, s.ID, state); err != nil {
			return fmt.Errorf("signal %d cache write: %w", s.ID, err)
		}
		updates = append(updates, trafficv1.StateUpdate{LightID: s.ID, State: state})
	}
	c.bus.Publish(trafficv1.BatchUpdateEnvelope(updates))

	c.metrics.OverridesTotal.Inc()
	c.log.Info("manual override applied",
		zap.Int64("light_id", lightID),
		zap.String("color", string(req.Status)),
		zap.Int("duration_seconds", duration))
	return nil
}

// Reset restores an intersection to automatic mode: all signals released from
// manual, N/S GREEN and E/W RED. The intersection's phase record is left
// alone; the next engine tick observes state consistent with phase 0 and
// re-aligns at its next natural transition.
func (c *Controller) Reset(ctx context.Context, intersectionID int64) error {
	signals, err := c.store.SignalsByIntersection(ctx, intersectionID)
	if err != nil {
		return err
	}
	if len(signals) == 0 {
		return fmt.Errorf("intersection %d: %w", intersectionID, store.ErrNotFound)
	}
	now := c.Now()

	for i := range signals {
		s := &signals[i]
		s.IsManual = false
		if s.Direction.NorthSouth() {
			s.Color = trafficv1.ColorGreen
		} else {
			s.Color = trafficv1.ColorRed
		}
		s.LastUpdated = now
	}
	if err := c.store.ApplyManualStates(ctx, signals, now); err != nil {
		return err
	}

	for _, s := range signals {
		state := trafficv1.SignalState{
			Status:  s.Color,
			EndTime: clock.Epoch(now) + float64(s.DurationSeconds),
		}
		if err := c.cache.SetSignalState(ctx, s.ID, state); err != nil {
			return fmt.Errorf("signal %d cache write: %w", s.ID, err)
		}
		c.bus.Publish(trafficv1.StateUpdateEnvelope(s.ID, state))
	}

	c.metrics.ResetsTotal.Inc()
	c.log.Info("intersection reset", zap.Int64("intersection_id", intersectionID))
	return nil
}

// ClearManual releases one signal's manual flag without a broadcast; the next
// engine tick resynchronizes it.
func (c *Controller) ClearManual(ctx context.Context, lightID int64) error {
	return c.store.ClearManual(ctx, lightID, c.Now())
}

// SetDuration updates a signal's nominal green time, effective at the next
// phase transition.
func (c *Controller) SetDuration(ctx context.Context, lightID int64, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("%w: duration must be >0", ErrValidation)
	}
	return c.store.SetDuration(ctx, lightID, seconds)
}

// SetDensity stores a simulated density reading. The cycle does not consume
// it.
func (c *Controller) SetDensity(ctx context.Context, lightID int64, value int) error {
	if value < 0 {
		return fmt.Errorf("%w: density must be >=0", ErrValidation)
	}
	return c.store.SetDensity(ctx, lightID, value)
}

// SyncStates assembles the dashboard bootstrap view for every signal from the
// phase cache, falling back to the durable record for signals the cache has
// never seen.
func (c *Controller) SyncStates(ctx context.Context) (map[int64]trafficv1.SignalState, error) {
	signals, err := c.store.ListSignals(ctx)
	if err != nil {
		return nil, err
	}
	now := c.Now()
	out := make(map[int64]trafficv1.SignalState, len(signals))
	for _, s := range signals {
		state, ok, err := c.cache.SignalState(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("signal %d cache read: %w", s.ID, err)
		}
		if !ok {
			state = trafficv1.SignalState{
				Status:  s.Color,
				EndTime: clock.Epoch(now) + float64(s.DurationSeconds),
			}
		}
		out[s.ID] = state
	}
	return out, nil
}
