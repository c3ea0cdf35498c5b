// Package engine drives the automatic signal cycle: a single long-lived tick
// loop that expires manual overrides, advances each intersection's phase when
// due, writes through to the durable store and the phase cache, and emits
// broadcast envelopes.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
	"github.com/tiger/traffic-signal-controller/internal/cache"
	"github.com/tiger/traffic-signal-controller/internal/clock"
	"github.com/tiger/traffic-signal-controller/internal/metrics"
	"github.com/tiger/traffic-signal-controller/internal/signal"
	"github.com/tiger/traffic-signal-controller/internal/signal/phase"
)

// Store is the durable-record surface the engine drives.
type Store interface {
	ManualSignals(ctx context.Context) ([]signal.Signal, error)
	ListIntersections(ctx context.Context) ([]signal.Intersection, error)
	SignalsByIntersection(ctx context.Context, intersectionID int64) ([]signal.Signal, error)
	UpdateColors(ctx context.Context, updates []signal.ColorUpdate, now time.Time) error
	ResyncSignal(ctx context.Context, lightID int64, color trafficv1.Color, now time.Time) error
	ClearManual(ctx context.Context, lightID int64, now time.Time) error
}

// Broadcaster pushes envelopes to live subscribers.
type Broadcaster interface {
	Publish(env trafficv1.Envelope)
}

// Engine owns the cycle tick loop. One instance runs per process; handlers
// mutate manual signals concurrently and the engine skips them.
type Engine struct {
	store   Store
	cache   *cache.Cache
	bus     Broadcaster
	log     *zap.Logger
	metrics *metrics.Metrics

	// Now is injectable for deterministic tests.
	Now clock.Clock
	// TickEvery is the cycle resolution.
	TickEvery time.Duration
	// FailureBackoff is the pause after a failed tick.
	FailureBackoff time.Duration
}

// New constructs an engine with the production cadence.
func New(store Store, phaseCache *cache.Cache, bus Broadcaster, log *zap.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		store:          store,
		cache:          phaseCache,
		bus:            bus,
		log:            log,
		metrics:        m,
		Now:            clock.System,
		TickEvery:      time.Second,
		FailureBackoff: 5 * time.Second,
	}
}

// Run executes the tick loop until the context is cancelled. Tick errors are
// logged and suppressed; the loop backs off and resumes.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("cycle engine started",
		zap.Duration("tick_every", e.TickEvery),
		zap.Duration("failure_backoff", e.FailureBackoff))
	for {
		select {
		case <-ctx.Done():
			e.log.Info("cycle engine stopped")
			return nil
		case <-time.After(e.TickEvery):
		}
		if err := e.Tick(ctx); err != nil {
			e.metrics.TickErrorsTotal.Inc()
			e.log.Error("tick failed", zap.Error(err))
			select {
			case <-ctx.Done():
				e.log.Info("cycle engine stopped")
				return nil
			case <-time.After(e.FailureBackoff):
			}
		}
	}
}

// Tick runs one cycle step: expire overdue manual overrides, then advance
// every intersection that has reached its phase end.
func (e *Engine) Tick(ctx context.Context) error {
	now := e.Now()
	e.metrics.TicksTotal.Inc()

	if err := e.expireOverrides(ctx, now); err != nil {
		return err
	}

	intersections, err := e.store.ListIntersections(ctx)
	if err != nil {
		return fmt.Errorf("list intersections: %w", err)
	}
	for _, ix := range intersections {
		if err := e.advance(ctx, ix, now); err != nil {
			return fmt.Errorf("intersection %d: %w", ix.ID, err)
		}
	}
	return nil
}

// expireOverrides clears manual flags whose bound has passed and resyncs each
// released signal to the color its intersection's current phase dictates.
func (e *Engine) expireOverrides(ctx context.Context, now time.Time) error {
	manual, err := e.store.ManualSignals(ctx)
	if err != nil {
		return fmt.Errorf("list manual signals: %w", err)
	}
	for _, sig := range manual {
		if !sig.OverrideExpired(now) {
			continue
		}
		rec, ok, err := e.cache.Phase(ctx, sig.IntersectionID)
		if err != nil {
			return fmt.Errorf("signal %d phase lookup: %w", sig.ID, err)
		}
		if !ok {
			// No phase record to resync against; release the signal and let
			// the next transition pick it up.
			if err := e.store.ClearManual(ctx, sig.ID, now); err != nil {
				return err
			}
			continue
		}
		color := phase.Colors(rec.Phase, sig.Direction)
		if err := e.store.ResyncSignal(ctx, sig.ID, color, now); err != nil {
			return err
		}
		state := trafficv1.SignalState{Status: color, EndTime: rec.End}
		if err := e.cache.SetSignalState(ctx, sig.ID, state); err != nil {
			return fmt.Errorf("signal %d cache write: %w", sig.ID, err)
		}
		e.bus.Publish(trafficv1.StateUpdateEnvelope(sig.ID, state))
		e.log.Debug("manual override expired",
			zap.Int64("light_id", sig.ID),
			zap.String("color", string(color)))
	}
	return nil
}

// advance moves one intersection through the cycle: initialize a missing
// phase record, or transition once the current phase has expired. The store
// commit happens before cache writes, which happen before the broadcast.
func (e *Engine) advance(ctx context.Context, ix signal.Intersection, now time.Time) error {
	rec, ok, err := e.cache.Phase(ctx, ix.ID)
	if err != nil {
		return err
	}

	if !ok {
		// Initialization is separate from a transition: anchor phase 0 and
		// write no signal state this tick.
		signals, err := e.store.SignalsByIntersection(ctx, ix.ID)
		if err != nil {
			return err
		}
		nsDur, _ := axisDurations(signals)
		return e.cache.SetPhase(ctx, ix.ID, cache.PhaseRecord{
			Phase: phase.NSGreen,
			End:   clock.Epoch(now) + float64(nsDur),
		})
	}

	if clock.Epoch(now) < rec.End {
		return nil
	}

	next := phase.Next(rec.Phase)
	signals, err := e.store.SignalsByIntersection(ctx, ix.ID)
	if err != nil {
		return err
	}
	nsDur, ewDur := axisDurations(signals)

	var updates []signal.ColorUpdate
	for _, sig := range signals {
		if sig.IsManual {
			continue
		}
		updates = append(updates, signal.ColorUpdate{
			LightID:   sig.ID,
			Direction: sig.Direction,
			Color:     phase.Colors(next, sig.Direction),
		})
	}

	// A store failure aborts this intersection's transition for the tick; the
	// phase record stays put and the transition retries next tick.
	if err := e.store.UpdateColors(ctx, updates, now); err != nil {
		return err
	}

	nextDur := phase.Duration(next, nsDur, ewDur)
	phaseEnd := clock.Epoch(now) + float64(nextDur)
	if err := e.cache.SetPhase(ctx, ix.ID, cache.PhaseRecord{Phase: next, End: phaseEnd}); err != nil {
		return err
	}

	batch := make([]trafficv1.StateUpdate, 0, len(updates))
	for _, u := range updates {
		end := phaseEnd
		if u.Color == trafficv1.ColorRed {
			if wait := phase.RedWait(next, u.Direction, nsDur, ewDur); wait > 0 {
				end = clock.Epoch(now) + float64(wait)
			}
		}
		state := trafficv1.SignalState{Status: u.Color, EndTime: end}
		if err := e.cache.SetSignalState(ctx, u.LightID, state); err != nil {
			return fmt.Errorf("signal %d cache write: %w", u.LightID, err)
		}
		batch = append(batch, trafficv1.StateUpdate{LightID: u.LightID, State: state})
	}
	if len(batch) > 0 {
		e.bus.Publish(trafficv1.BatchUpdateEnvelope(batch))
	}

	e.metrics.TransitionsTotal.WithLabelValues(string(next)).Inc()
	e.log.Debug("phase transition",
		zap.Int64("intersection_id", ix.ID),
		zap.String("phase", string(next)),
		zap.Int("duration_seconds", nextDur))
	return nil
}

// axisDurations resolves the nominal green time per axis, preferring the
// primary head of each axis and defaulting when an intersection is malformed.
func axisDurations(signals []signal.Signal) (nsDur int, ewDur int) {
	nsDur, ewDur = signal.DefaultDurationSeconds, signal.DefaultDurationSeconds
	byDir := signal.ByDirection(signals)
	if s, ok := byDir[trafficv1.DirectionNorth]; ok {
		nsDur = s.DurationSeconds
	} else if s, ok := byDir[trafficv1.DirectionSouth]; ok {
		nsDur = s.DurationSeconds
	}
	if s, ok := byDir[trafficv1.DirectionEast]; ok {
		ewDur = s.DurationSeconds
	} else if s, ok := byDir[trafficv1.DirectionWest]; ok {
		ewDur = s.DurationSeconds
	}
	return nsDur, ewDur
}
