package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
	"github.com/tiger/traffic-signal-controller/internal/signal"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func signalRow(id int64, dir trafficv1.Direction, color trafficv1.Color, manual bool) *sqlmock.Rows {
	return signalRows().AddRow(
		id, int64(1), string(dir), string(color), 0, 60,
		time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC), manual, true, nil, nil)
}

func signalRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "intersection_id", "direction", "color", "current_density",
		"duration_seconds", "last_updated", "is_manual", "is_active",
		"created_at", "updated_at",
	})
}

func TestSignal(t *testing.T) {
	t.Parallel()

	st, mock := newTestStore(t)
	mock.ExpectQuery(`FROM traffic_lights WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(signalRow(4, trafficv1.DirectionNorth, trafficv1.ColorGreen, false))

	sig, err := st.Signal(context.Background(), 4)
	if err != nil {
		t.Fatalf("signal: %v", err)
	}
	if sig.ID != 4 || sig.Direction != trafficv1.DirectionNorth || sig.Color != trafficv1.ColorGreen {
		t.Fatalf("signal = %+v", sig)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSignalNotFound(t *testing.T) {
	t.Parallel()

	st, mock := newTestStore(t)
	mock.ExpectQuery(`FROM traffic_lights WHERE id = \$1`).
		WithArgs(int64(999)).
		WillReturnRows(signalRows())

	_, err := st.Signal(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManualSignals(t *testing.T) {
	t.Parallel()

	st, mock := newTestStore(t)
	mock.ExpectQuery(`FROM traffic_lights WHERE is_manual ORDER BY id`).
		WillReturnRows(signalRow(7, trafficv1.DirectionEast, trafficv1.ColorGreen, true))

	signals, err := st.ManualSignals(context.Background())
	if err != nil {
		t.Fatalf("manual signals: %v", err)
	}
	if len(signals) != 1 || !signals[0].IsManual {
		t.Fatalf("signals = %+v", signals)
	}
}

func TestUpdateColorsCommitsOneTransaction(t *testing.T) {
	t.Parallel()

	st, mock := newTestStore(t)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	stmt := regexp.QuoteMeta(`UPDATE traffic_lights SET color = $1, last_updated = $2, updated_at = $2 WHERE id = $3`)

	mock.ExpectBegin()
	mock.ExpectExec(stmt).
		WithArgs(trafficv1.ColorYellow, now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt).
		WithArgs(trafficv1.ColorYellow, now, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.UpdateColors(context.Background(), []signal.ColorUpdate{
		{LightID: 1, Color: trafficv1.ColorYellow},
		{LightID: 2, Color: trafficv1.ColorYellow},
	}, now)
	if err != nil {
		t.Fatalf("update colors: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateColorsEmptyIsNoop(t *testing.T) {
	t.Parallel()

	st, mock := newTestStore(t)
	if err := st.UpdateColors(context.Background(), nil, time.Now()); err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplyManualStatesRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	st, mock := newTestStore(t)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE traffic_lights`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := st.ApplyManualStates(context.Background(), []signal.Signal{
		{ID: 1, Color: trafficv1.ColorGreen, IsManual: true, DurationSeconds: 30},
	}, now)
	if err == nil {
		t.Fatalf("expected failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetDurationUnknownSignal(t *testing.T) {
	t.Parallel()

	st, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE traffic_lights SET duration_seconds = $1 WHERE id = $2`)).
		WithArgs(45, int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.SetDuration(context.Background(), 404, 45)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClearManual(t *testing.T) {
	t.Parallel()

	st, mock := newTestStore(t)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE traffic_lights SET is_manual = FALSE, last_updated = $1, updated_at = $1 WHERE id = $2`)).
		WithArgs(now, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.ClearManual(context.Background(), 9, now); err != nil {
		t.Fatalf("clear manual: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateIntersectionProvisionsFourSignals(t *testing.T) {
	t.Parallel()

	st, mock := newTestStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO intersections`).
		WithArgs(int64(2), "Main & First", "INT-010", "downtown").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "area_id", "name", "code", "location", "is_favorite"}).
			AddRow(int64(10), int64(2), "Main & First", "INT-010", "downtown", false))
	for _, dir := range trafficv1.Directions {
		color := trafficv1.ColorRed
		if dir.NorthSouth() {
			color = trafficv1.ColorGreen
		}
		mock.ExpectExec(`INSERT INTO traffic_lights`).
			WithArgs(int64(10), dir, color, signal.DefaultDurationSeconds, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	got, err := st.CreateIntersection(context.Background(), 2, "Main & First", "INT-010", "downtown")
	if err != nil {
		t.Fatalf("create intersection: %v", err)
	}
	if got.ID != 10 || got.Code != "INT-010" {
		t.Fatalf("intersection = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
