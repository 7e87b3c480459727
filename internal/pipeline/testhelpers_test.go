package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cat-astrophic/cincinnati-fc/internal/config"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/store"
	"github.com/cat-astrophic/cincinnati-fc/pkg/auditor"
	"github.com/cat-astrophic/cincinnati-fc/pkg/geocode"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testConfig points every path into dir and fixes landmark coordinates.
func testConfig(dir string) *config.Config {
	return &config.Config{
		Paths: config.PathsConfig{
			RawDir:       filepath.Join(dir, "raw"),
			Prepared:     filepath.Join(dir, "out", "prepared.csv"),
			ForScraping:  filepath.Join(dir, "out", "for_scraping.csv"),
			Transactions: filepath.Join(dir, "out", "transactions.csv"),
			CPIRatios:    filepath.Join(dir, "fred.csv"),
			RealPrices:   filepath.Join(dir, "out", "real_prices.csv"),
		},
		Geocode: config.GeocodeConfig{Locality: "Hamilton County, OH"},
		Landmarks: []config.LandmarkConfig{
			{Name: "Nippert", Latitude: 39.1312, Longitude: -84.5165},
			{Name: "Mercy", Latitude: 39.1585, Longitude: -84.2627},
		},
		Auditor: config.AuditorConfig{Concurrency: 2},
		CPI:     config.CPIConfig{Series: "CPIAUCSL", ReferenceMonth: "2020-01"},
		Filter: config.FilterConfig{
			ReferenceLandmark: "nippert",
			MaxDistanceKm:     50,
			DropIncomplete:    true,
		},
	}
}

// stubGeocoder answers from a fixed map. Unknown addresses do not match;
// addresses in failing return an error.
type stubGeocoder struct {
	mu      sync.Mutex
	points  map[string][2]float64
	failing map[string]bool
	calls   map[string]int
	flushes int
}

func newStubGeocoder(points map[string][2]float64) *stubGeocoder {
	return &stubGeocoder{points: points, failing: map[string]bool{}, calls: map[string]int{}}
}

func (s *stubGeocoder) Geocode(_ context.Context, query string) (*geocode.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[query]++
	if s.failing[query] {
		return nil, errors.New("geocoder unavailable")
	}
	p, ok := s.points[query]
	if !ok {
		return &geocode.Result{Matched: false}, nil
	}
	return &geocode.Result{Latitude: p[0], Longitude: p[1], Matched: true, Source: "stub"}, nil
}

func (s *stubGeocoder) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

// stubAuditor returns the same attributes for every parcel except those
// mapped to an error.
type stubAuditor struct {
	attrs  auditor.Attributes
	errs   map[string]error
	mu     sync.Mutex
	called []string
}

func (s *stubAuditor) Lookup(_ context.Context, parcel string) (*auditor.Attributes, error) {
	s.mu.Lock()
	s.called = append(s.called, parcel)
	s.mu.Unlock()
	if err, ok := s.errs[parcel]; ok {
		return nil, err
	}
	a := s.attrs
	return &a, nil
}

func fullAttributes() auditor.Attributes {
	acres := 0.15
	return auditor.Attributes{
		SchoolDistrict: "CINCINNATI CSD",
		DeedType:       "WD",
		Acreage:        &acres,
		OwnerResidence: "Yes",
		Foreclosure:    "No",
	}
}

func tableOf(header []string, rows ...[]string) *model.Table {
	t := model.NewTable(header...)
	for _, r := range rows {
		t.AppendRecord(header, r)
	}
	return t
}
