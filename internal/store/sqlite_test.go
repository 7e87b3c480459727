package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
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

var _ Store = (*SQLiteStore)(nil)

// --- Runs ---

func TestSQLite_RunLifecycle_Complete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.StagePrepare, "data/raw_sales_data", "data/house_transactions_for_scraping.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	result := model.StageResult{RowsIn: 120, RowsOut: 118}
	result.Add("bbb_malformed", 2)
	require.NoError(t, st.CompleteRun(ctx, run.ID, result))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StagePrepare, got.Stage)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 120, got.RowsIn)
	assert.Equal(t, 118, got.RowsOut)
	assert.Equal(t, 2, got.Counters["bbb_malformed"])
	require.NotNil(t, got.FinishedAt)
	assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))
}

func TestSQLite_RunLifecycle_Fail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.StageCPIFetch, "", "data/fred.csv")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, errors.New("fred: status 400")))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "fred: status 400", got.Error)
	assert.Nil(t, got.Counters)
}

func TestSQLite_RunNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	err = st.CompleteRun(ctx, "missing", model.StageResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	assert.Error(t, st.FailRun(ctx, "missing", errors.New("x")))
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, model.StagePrepare, "in", "out")
	require.NoError(t, err)
	b, err := st.CreateRun(ctx, model.StageFilter, "in", "out")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, model.StageFilter, "in", "out")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, a.ID, model.StageResult{}))
	require.NoError(t, st.FailRun(ctx, b.ID, errors.New("boom")))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filters, err := st.ListRuns(ctx, RunFilter{Stage: model.StageFilter})
	require.NoError(t, err)
	assert.Len(t, filters, 2)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, b.ID, failed[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

// --- Geocode cache ---

func TestSQLite_Geocode_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.SetGeocodes(ctx, []model.GeocodeEntry{
		{Key: "k1", Query: "2700 WOODBURN AVE, Hamilton County, OH", Provider: "nominatim", Latitude: 39.13, Longitude: -84.48, Found: true},
		{Key: "k2", Query: "NOWHERE RD, Hamilton County, OH"},
	})
	require.NoError(t, err)

	e, err := st.GetGeocode(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, e.Found)
	assert.Equal(t, "nominatim", e.Provider)
	assert.InDelta(t, 39.13, e.Latitude, 1e-9)
	assert.InDelta(t, -84.48, e.Longitude, 1e-9)
	assert.False(t, e.CachedAt.IsZero())

	miss, err := st.GetGeocode(ctx, "k2")
	require.NoError(t, err)
	require.NotNil(t, miss)
	assert.False(t, miss.Found)

	none, err := st.GetGeocode(ctx, "k3")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSQLite_Geocode_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetGeocodes(ctx, []model.GeocodeEntry{{Key: "k", Query: "q"}}))
	require.NoError(t, st.SetGeocodes(ctx, []model.GeocodeEntry{{Key: "k", Query: "q", Provider: "census", Latitude: 1, Longitude: 2, Found: true}}))

	e, err := st.GetGeocode(ctx, "k")
	require.NoError(t, err)
	assert.True(t, e.Found)
	assert.Equal(t, "census", e.Provider)
}

func TestSQLite_Geocode_EmptyBatch(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.SetGeocodes(context.Background(), nil))
}

// --- Parcel cache ---

func TestSQLite_Parcel_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetParcel(ctx, model.ParcelPage{Parcel: "0010001000100", TaxYear: 2021, Data: []byte(`{"acreage":0.12}`)}))
	require.NoError(t, st.SetParcel(ctx, model.ParcelPage{Parcel: "0010001000100", TaxYear: 2021, Data: []byte(`{"acreage":0.25}`)}))

	p, err := st.GetParcel(ctx, "0010001000100", 2021)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.JSONEq(t, `{"acreage":0.25}`, string(p.Data))

	other, err := st.GetParcel(ctx, "0010001000100", 2022)
	require.NoError(t, err)
	assert.Nil(t, other)
}
