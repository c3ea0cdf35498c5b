// Package store is the durable record of the administrative hierarchy and the
// four directional signals of each intersection. It is the only source of
// truth for is_manual, duration_seconds, and last_updated; every mutating
// operation covers its full update set in one transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
	"github.com/tiger/traffic-signal-controller/internal/signal"
)

// ErrNotFound marks lookups of unknown signals or intersections.
var ErrNotFound = errors.New("not found")

const signalColumns = `id, intersection_id, direction, color, current_density,
	duration_seconds, last_updated, is_manual, is_active, created_at, updated_at`

// Store wraps the relational database.
type Store struct {
	db *sqlx.DB
}

// New wraps a connected database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Signal loads one signal by id.
func (s *Store) Signal(ctx context.Context, lightID int64) (signal.Signal, error) {
	var out signal.Signal
	err := s.db.GetContext(ctx, &out,
		`SELECT `+signalColumns+` FROM traffic_lights WHERE id = $1`, lightID)
	if errors.Is(err, sql.ErrNoRows) {
		return signal.Signal{}, fmt.Errorf("signal %d: %w", lightID, ErrNotFound)
	}
	if err != nil {
		return signal.Signal{}, fmt.Errorf("load signal %d: %w", lightID, err)
	}
	return out, nil
}

// ListSignals loads every signal, ordered by id.
func (s *Store) ListSignals(ctx context.Context) ([]signal.Signal, error) {
	var out []signal.Signal
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+signalColumns+` FROM traffic_lights ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	return out, nil
}

// SignalsByIntersection loads an intersection's signals ordered by id.
func (s *Store) SignalsByIntersection(ctx context.Context, intersectionID int64) ([]signal.Signal, error) {
	var out []signal.Signal
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+signalColumns+` FROM traffic_lights WHERE intersection_id = $1 ORDER BY id`,
		intersectionID)
	if err != nil {
		return nil, fmt.Errorf("load intersection %d signals: %w", intersectionID, err)
	}
	return out, nil
}

// ManualSignals loads every signal currently under manual override.
func (s *Store) ManualSignals(ctx context.Context) ([]signal.Signal, error) {
	var out []signal.Signal
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+signalColumns+` FROM traffic_lights WHERE is_manual ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list manual signals: %w", err)
	}
	return out, nil
}

// ListIntersections loads every intersection ordered by id.
func (s *Store) ListIntersections(ctx context.Context) ([]signal.Intersection, error) {
	var out []signal.Intersection
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, area_id, name, code, location, is_favorite FROM intersections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list intersections: %w", err)
	}
	return out, nil
}

// UpdateColors commits a phase transition's color writes in one transaction.
func (s *Store) UpdateColors(ctx context.Context, updates []signal.ColorUpdate, now time.Time) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE traffic_lights SET color = $1, last_updated = $2, updated_at = $2 WHERE id = $3`,
			u.Color, now, u.LightID); err != nil {
			return fmt.Errorf("update signal %d color: %w", u.LightID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// ApplyManualStates commits override or reset writes: color, manual flag, and
// duration per signal, in one transaction.
func (s *Store) ApplyManualStates(ctx context.Context, signals []signal.Signal, now time.Time) error {
	if len(signals) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manual update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, sig := range signals {
		if _, err := tx.ExecContext(ctx,
			`UPDATE traffic_lights
			 SET color = $1, is_manual = $2, duration_seconds = $3, last_updated = $4, updated_at = $4
			 WHERE id = $5`,
			sig.Color, sig.IsManual, sig.DurationSeconds, now, sig.ID); err != nil {
			return fmt.Errorf("update signal %d: %w", sig.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit manual update: %w", err)
	}
	return nil
}

// ResyncSignal clears a signal's expired override and restores the color its
// intersection's current phase dictates.
func (s *Store) ResyncSignal(ctx context.Context, lightID int64, color trafficv1.Color, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE traffic_lights
		 SET is_manual = FALSE, color = $1, last_updated = $2, updated_at = $2
		 WHERE id = $3`,
		color, now, lightID)
	if err != nil {
		return fmt.Errorf("resync signal %d: %w", lightID, err)
	}
	return requireAffected(res, lightID)
}

// ClearManual drops a signal's manual flag without touching its color.
func (s *Store) ClearManual(ctx context.Context, lightID int64, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE traffic_lights SET is_manual = FALSE, last_updated = $1, updated_at = $1 WHERE id = $2`,
		now, lightID)
	if err != nil {
		return fmt.Errorf("clear manual %d: %w", lightID, err)
	}
	return requireAffected(res, lightID)
}

// SetDuration updates a signal's nominal green time; the change takes effect
// at the next phase transition, so last_updated is left alone.
func (s *Store) SetDuration(ctx context.Context, lightID int64, seconds int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE traffic_lights SET duration_seconds = $1 WHERE id = $2`,
		seconds, lightID)
	if err != nil {
		return fmt.Errorf("set duration %d: %w", lightID, err)
	}
	return requireAffected(res, lightID)
}

// SetDensity records a simulated traffic density reading. The value is stored
// but never consumed by the cycle.
func (s *Store) SetDensity(ctx context.Context, lightID int64, value int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE traffic_lights SET current_density = $1 WHERE id = $2`,
		value, lightID)
	if err != nil {
		return fmt.Errorf("set density %d: %w", lightID, err)
	}
	return requireAffected(res, lightID)
}

func requireAffected(res sql.Result, lightID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("signal %d: %w", lightID, ErrNotFound)
	}
	return nil
}
