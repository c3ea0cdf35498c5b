// Package cache is the low-latency shared store of current phase and
// per-signal color/countdown. It is the authoritative read source for
// dashboards and survives engine restarts; records are written last-writer-
// wins with no TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
	"github.com/tiger/traffic-signal-controller/internal/signal/phase"
)

// PhaseRecord is the cached cycle position of one intersection. End is the
// epoch-second instant at which the phase expires.
type PhaseRecord struct {
	Phase phase.Phase
	End   float64
}

// Cache adapts the redis key/value scheme:
//
//	intersection:{id}:phase      -> phase index
//	intersection:{id}:phase_end  -> epoch seconds
//	traffic_light:{id}:status    -> color
//	traffic_light:{id}:end_time  -> epoch seconds
type Cache struct {
	rdb *redis.Client
}

// New wraps a connected redis client.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Phase reads an intersection's phase record. A missing record is not an
// error; it returns ok=false and the engine re-initializes. A phase key
// missing alongside a present phase_end decodes as phase 0.
func (c *Cache) Phase(ctx context.Context, intersectionID int64) (PhaseRecord, bool, error) {
	endRaw, err := c.rdb.Get(ctx, phaseEndKey(intersectionID)).Result()
	if errors.Is(err, redis.Nil) {
		return PhaseRecord{}, false, nil
	}
	if err != nil {
		return PhaseRecord{}, false, fmt.Errorf("read phase_end: %w", err)
	}
	end, err := strconv.ParseFloat(endRaw, 64)
	if err != nil {
		return PhaseRecord{}, false, fmt.Errorf("decode phase_end: %w", err)
	}

	index := 0
	indexRaw, err := c.rdb.Get(ctx, phaseKey(intersectionID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return PhaseRecord{}, false, fmt.Errorf("read phase: %w", err)
	default:
		index, err = strconv.Atoi(indexRaw)
		if err != nil {
			return PhaseRecord{}, false, fmt.Errorf("decode phase: %w", err)
		}
	}
	p, err := phase.FromIndex(index)
	if err != nil {
		return PhaseRecord{}, false, err
	}
	return PhaseRecord{Phase: p, End: end}, true, nil
}

// SetPhase writes an intersection's phase record.
func (c *Cache) SetPhase(ctx context.Context, intersectionID int64, rec PhaseRecord) error {
	if err := phase.Validate(rec.Phase); err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, phaseKey(intersectionID), strconv.Itoa(phase.Index(rec.Phase)), 0).Err(); err != nil {
		return fmt.Errorf("write phase: %w", err)
	}
	if err := c.rdb.Set(ctx, phaseEndKey(intersectionID), formatEpoch(rec.End), 0).Err(); err != nil {
		return fmt.Errorf("write phase_end: %w", err)
	}
	return nil
}

// SetSignalState writes one signal's color and countdown anchor.
func (c *Cache) SetSignalState(ctx context.Context, lightID int64, state trafficv1.SignalState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, statusKey(lightID), string(state.Status), 0).Err(); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if err := c.rdb.Set(ctx, endTimeKey(lightID), formatEpoch(state.EndTime), 0).Err(); err != nil {
		return fmt.Errorf("write end_time: %w", err)
	}
	return nil
}

// SignalState reads one signal's cached state; ok=false when the status key
// is absent and the caller should fall back to the durable store.
func (c *Cache) SignalState(ctx context.Context, lightID int64) (trafficv1.SignalState, bool, error) {
	statusRaw, err := c.rdb.Get(ctx, statusKey(lightID)).Result()
	if errors.Is(err, redis.Nil) {
		return trafficv1.SignalState{}, false, nil
	}
	if err != nil {
		return trafficv1.SignalState{}, false, fmt.Errorf("read status: %w", err)
	}
	state := trafficv1.SignalState{Status: trafficv1.Color(statusRaw)}

	endRaw, err := c.rdb.Get(ctx, endTimeKey(lightID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return trafficv1.SignalState{}, false, fmt.Errorf("read end_time: %w", err)
	default:
		state.EndTime, err = strconv.ParseFloat(endRaw, 64)
		if err != nil {
			return trafficv1.SignalState{}, false, fmt.Errorf("decode end_time: %w", err)
		}
	}
	return state, true, nil
}

func phaseKey(intersectionID int64) string {
	return fmt.Sprintf("intersection:%d:phase", intersectionID)
}

func phaseEndKey(intersectionID int64) string {
	return fmt.Sprintf("intersection:%d:phase_end", intersectionID)
}

func statusKey(lightID int64) string {
	return fmt.Sprintf("traffic_light:%d:status", lightID)
}

func endTimeKey(lightID int64) string {
	return fmt.Sprintf("traffic_light:%d:end_time", lightID)
}

func formatEpoch(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
