package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
	"github.com/tiger/traffic-signal-controller/internal/signal"
)

// CreateCity inserts a city.
func (s *Store) CreateCity(ctx context.Context, name string, code string) (signal.City, error) {
	var out signal.City
	err := s.db.GetContext(ctx, &out,
		`INSERT INTO cities (name, code) VALUES ($1, $2) RETURNING id, name, code`,
		name, code)
	if err != nil {
		return signal.City{}, fmt.Errorf("create city: %w", err)
	}
	return out, nil
}

// ListCities loads every city ordered by id.
func (s *Store) ListCities(ctx context.Context) ([]signal.City, error) {
	var out []signal.City
	if err := s.db.SelectContext(ctx, &out, `SELECT id, name, code FROM cities ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return out, nil
}

// CreateArea inserts a traffic area under a city.
func (s *Store) CreateArea(ctx context.Context, cityID int64, name string, code string) (signal.TrafficArea, error) {
	var out signal.TrafficArea
	err := s.db.GetContext(ctx, &out,
		`INSERT INTO traffic_areas (city_id, name, code) VALUES ($1, $2, $3)
		 RETURNING id, city_id, name, code`,
		cityID, name, code)
	if err != nil {
		return signal.TrafficArea{}, fmt.Errorf("create area: %w", err)
	}
	return out, nil
}

// ListAreas loads every traffic area ordered by id.
func (s *Store) ListAreas(ctx context.Context) ([]signal.TrafficArea, error) {
	var out []signal.TrafficArea
	if err := s.db.SelectContext(ctx, &out,
		`SELECT id, city_id, name, code FROM traffic_areas ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	return out, nil
}

// CreateIntersection inserts an intersection and auto-provisions its four
// signals in the same transaction: N/S GREEN and E/W RED with the default
// nominal green time.
func (s *Store) CreateIntersection(ctx context.Context, areaID int64, name string, code string, location string) (signal.Intersection, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return signal.Intersection{}, fmt.Errorf("begin create intersection: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var out signal.Intersection
	err = tx.GetContext(ctx, &out,
		`INSERT INTO intersections (area_id, name, code, location)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, area_id, name, code, location, is_favorite`,
		areaID, name, code, location)
	if err != nil {
		return signal.Intersection{}, fmt.Errorf("create intersection: %w", err)
	}

	now := time.Now().UTC()
	for _, dir := range trafficv1.Directions {
		color := trafficv1.ColorRed
		if dir.NorthSouth() {
			color = trafficv1.ColorGreen
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO traffic_lights
			 (intersection_id, direction, color, duration_seconds, last_updated)
			 VALUES ($1, $2, $3, $4, $5)`,
			out.ID, dir, color, signal.DefaultDurationSeconds, now); err != nil {
			return signal.Intersection{}, fmt.Errorf("provision %s signal: %w", dir, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return signal.Intersection{}, fmt.Errorf("commit create intersection: %w", err)
	}
	return out, nil
}
