package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/flightzone/internal/config"
	"github.com/sells-group/flightzone/internal/geo"
	"github.com/sells-group/flightzone/internal/mission"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleMission(name string) mission.Mission {
	return mission.Mission{
		Name: name,
		Route: []geo.GeoPoint{
			{Lat: 59.9139, Lng: 10.7522},
			{Lat: 59.9149, Lng: 10.7542},
		},
		Settings: geo.ZoneSettings{FlightGeographyM: 10, ContingencyM: 20, GroundRiskM: 30, Mode: geo.ModeCorridor},
	}
}

func TestSQLite_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateMission(ctx, sampleMission("harbour survey"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := st.GetMission(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "harbour survey", got.Name)
	assert.Equal(t, created.Route, got.Route)
	assert.Equal(t, created.Settings, got.Settings)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, 0)
}

func TestSQLite_CreateInvalid(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.CreateMission(context.Background(), sampleMission("  "))
	assert.Error(t, err)
}

func TestSQLite_GetNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetMission(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Update(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateMission(ctx, sampleMission("v1"))
	require.NoError(t, err)

	created.Name = "v2"
	created.Settings.GroundRiskM = 90
	updated, err := st.UpdateMission(ctx, *created)
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Name)
	assert.InDelta(t, 90.0, updated.Settings.GroundRiskM, 1e-9)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestSQLite_UpdateNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	m := sampleMission("ghost")
	m.ID = "missing"
	_, err := st.UpdateMission(context.Background(), m)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateMission(ctx, sampleMission("doomed"))
	require.NoError(t, err)

	require.NoError(t, st.DeleteMission(ctx, created.ID))
	_, err = st.GetMission(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, st.DeleteMission(ctx, created.ID), ErrNotFound)
}

func TestSQLite_ListFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, name := range []string{"bridge north", "bridge south", "field"} {
		_, err := st.CreateMission(ctx, sampleMission(name))
		require.NoError(t, err)
	}

	all, err := st.ListMissions(ctx, MissionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bridges, err := st.ListMissions(ctx, MissionFilter{NameContains: "bridge"})
	require.NoError(t, err)
	assert.Len(t, bridges, 2)

	page, err := st.ListMissions(ctx, MissionFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestSQLite_ImportUpserts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	existing, err := st.CreateMission(ctx, sampleMission("old name"))
	require.NoError(t, err)

	renamed := *existing
	renamed.Name = "new name"
	n, err := st.ImportMissions(ctx, []mission.Mission{renamed, sampleMission("fresh")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := st.GetMission(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "new name", got.Name)

	all, err := st.ListMissions(ctx, MissionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_ImportEmptyAndInvalid(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.ImportMissions(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	bad := sampleMission("bad")
	bad.Settings.ContingencyM = -1
	_, err = st.ImportMissions(ctx, []mission.Mission{bad})
	assert.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "open.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	_, err = s.CreateMission(context.Background(), sampleMission("opened"))
	assert.NoError(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
