// Package seed installs the demonstration dataset: one city, two areas, and
// three intersections, each auto-provisioned with four signals.
package seed

import (
	"context"
	"fmt"

	"github.com/tiger/traffic-signal-controller/internal/store"
)

type seedIntersection struct {
	area     string
	name     string
	code     string
	location string
}

// Apply seeds the directory when it is empty; a populated database is left
// untouched.
func Apply(ctx context.Context, st *store.Store) error {
	cities, err := st.ListCities(ctx)
	if err != nil {
		return err
	}
	if len(cities) > 0 {
		return nil
	}

	city, err := st.CreateCity(ctx, "Metropolis", "MET")
	if err != nil {
		return err
	}
	areas := map[string]int64{}
	for _, a := range []struct{ name, code string }{
		{"Downtown", "DT"},
		{"Uptown", "UP"},
	} {
		area, err := st.CreateArea(ctx, city.ID, a.name, a.code)
		if err != nil {
			return err
		}
		areas[a.name] = area.ID
	}

	for _, ix := range []seedIntersection{
		{"Downtown", "Main St & 1st Ave", "INT-001", "Downtown Core"},
		{"Downtown", "Broadway & 5th", "INT-002", "Financial District"},
		{"Uptown", "Park Ave & 59th", "INT-003", "Residential Zone"},
	} {
		areaID, ok := areas[ix.area]
		if !ok {
			return fmt.Errorf("unknown seed area %q", ix.area)
		}
		if _, err := st.CreateIntersection(ctx, areaID, ix.name, ix.code, ix.location); err != nil {
			return err
		}
	}
	return nil
}
