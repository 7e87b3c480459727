package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cat-astrophic/cincinnati-fc/internal/config"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/pkg/geocode"
)

func TestResolveLandmarks(t *testing.T) {
	gc := newStubGeocoder(map[string][2]float64{
		"Nippert Stadium, Cincinnati, OH 45221": {39.1312, -84.5165},
	})
	landmarks, err := ResolveLandmarks(context.Background(), gc, []config.LandmarkConfig{
		{Name: "Nippert", Address: "Nippert Stadium, Cincinnati, OH 45221"},
		{Name: "Mercy", Address: "ignored", Latitude: 39.1585, Longitude: -84.2627},
	})
	require.NoError(t, err)
	require.Len(t, landmarks, 2)
	assert.InDelta(t, 39.1312, landmarks[0].Latitude, 1e-9)
	assert.Equal(t, "Mercy", landmarks[1].Name)
	assert.Equal(t, 0, gc.calls["ignored"])
}

func TestResolveLandmarks_NotFound(t *testing.T) {
	gc := newStubGeocoder(nil)
	_, err := ResolveLandmarks(context.Background(), gc, []config.LandmarkConfig{
		{Name: "Nowhere", Address: "1 Nowhere Ln"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere")
}

func TestResolveLandmarks_GeocoderError(t *testing.T) {
	gc := newStubGeocoder(nil)
	gc.failing["1 Main St"] = true
	_, err := ResolveLandmarks(context.Background(), gc, []config.LandmarkConfig{
		{Name: "Main", Address: "1 Main St"},
	})
	assert.Error(t, err)
}

func TestGeocodeRows(t *testing.T) {
	gc := newStubGeocoder(map[string][2]float64{
		"100 MAIN ST, Hamilton County, OH": {39.1312, -84.5165},
	})
	gc.failing["300 ELM ST, Hamilton County, OH"] = true

	tbl := tableOf([]string{model.ColAddresses},
		[]string{"100 MAIN ST, Hamilton County, OH"},
		[]string{"200 OAK ST, Hamilton County, OH"},
		[]string{"300 ELM ST, Hamilton County, OH"},
		[]string{"100 MAIN ST, Hamilton County, OH"},
	)
	landmarks := []Landmark{
		{Name: "Nippert", Latitude: 39.1312, Longitude: -84.5165},
		{Name: "Equator", Latitude: 0, Longitude: -84.5165},
	}
	var res model.StageResult

	require.NoError(t, GeocodeRows(context.Background(), gc, tbl, landmarks, 2, &res))

	assert.Equal(t, []string{model.ColAddresses, "Nippert", "Equator", model.ColCoordinates}, tbl.Columns())
	assert.Equal(t, "POINT (-84.5165 39.1312)", tbl.Get(0, model.ColCoordinates))
	d, ok := tbl.Float(0, "Nippert")
	require.True(t, ok)
	assert.InDelta(t, 0, d, 1e-9)
	d, ok = tbl.Float(0, "Equator")
	require.True(t, ok)
	assert.InDelta(t, geocode.DistanceKm(39.1312, -84.5165, 0, -84.5165), d, 1e-6)

	for _, row := range []int{1, 2} {
		assert.True(t, tbl.IsNull(row, model.ColCoordinates))
		assert.True(t, tbl.IsNull(row, "Nippert"))
	}
	assert.Equal(t, "POINT (-84.5165 39.1312)", tbl.Get(3, model.ColCoordinates))

	assert.Equal(t, 1, gc.calls["100 MAIN ST, Hamilton County, OH"])
	assert.Equal(t, 1, res.Counters[CounterGeocodeUnmatched])
	assert.Equal(t, 1, res.Counters[CounterGeocodeFailed])
	// Two progress flushes plus the final one.
	assert.Equal(t, 3, gc.flushes)
}

func TestGeocodeRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tbl := tableOf([]string{model.ColAddresses}, []string{"100 MAIN ST"})
	var res model.StageResult
	err := GeocodeRows(ctx, newStubGeocoder(nil), tbl, nil, 0, &res)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
