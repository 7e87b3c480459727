package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cat-astrophic/cincinnati-fc/internal/config"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/pkg/geocode"
)

// Geocode counters.
const (
	CounterGeocodeFailed    = "geocode_failed"
	CounterGeocodeUnmatched = "geocode_unmatched"
	CounterGeocodeCached    = "geocode_cached"
)

// Landmark is a reference point distances are measured to. Its Name is
// also the distance column name.
type Landmark struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// flusher is implemented by geocoders that buffer cache writes.
type flusher interface {
	Flush(ctx context.Context) error
}

// ResolveLandmarks returns the configured landmarks with coordinates,
// geocoding those without fixed ones. A landmark that cannot be located
// is an error.
func ResolveLandmarks(ctx context.Context, gc geocode.Client, cfgs []config.LandmarkConfig) ([]Landmark, error) {
	out := make([]Landmark, 0, len(cfgs))
	for _, c := range cfgs {
		if c.Latitude != 0 || c.Longitude != 0 {
			out = append(out, Landmark{Name: c.Name, Latitude: c.Latitude, Longitude: c.Longitude})
			continue
		}
		if gc == nil {
			return nil, eris.Errorf("pipeline: landmark %q has no coordinates and no geocoder is configured", c.Name)
		}
		r, err := gc.Geocode(ctx, c.Address)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: geocode landmark %q", c.Name)
		}
		if !r.Matched {
			return nil, eris.Errorf("pipeline: landmark %q (%s) not found", c.Name, c.Address)
		}
		zap.L().Info("pipeline: resolved landmark",
			zap.String("landmark", c.Name),
			zap.Float64("lat", r.Latitude),
			zap.Float64("lon", r.Longitude),
		)
		out = append(out, Landmark{Name: c.Name, Latitude: r.Latitude, Longitude: r.Longitude})
	}
	return out, nil
}

// GeocodeRows geocodes the Addresses column, writing one distance column
// per landmark (km) and Coordinates as a WKT point. Rows that fail or do
// not match keep null coordinates and distances. Repeated addresses are
// geocoded once. Only cancellation aborts the stage.
func GeocodeRows(ctx context.Context, gc geocode.Client, t *model.Table, landmarks []Landmark, progressEvery int, res *model.StageResult) error {
	for _, l := range landmarks {
		t.EnsureColumn(l.Name)
	}
	t.EnsureColumn(model.ColCoordinates)

	log := zap.L().With(zap.String("stage", string(model.StagePrepare)))
	seen := make(map[string]*geocode.Result)
	fl, canFlush := gc.(flusher)

	for i := range t.Len() {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "pipeline: geocoding cancelled")
		}

		addr := t.Get(i, model.ColAddresses)
		r, ok := seen[addr]
		if !ok {
			var err error
			r, err = gc.Geocode(ctx, addr)
			if err != nil {
				if ctx.Err() != nil {
					return eris.Wrap(ctx.Err(), "pipeline: geocoding cancelled")
				}
				log.Debug("pipeline: geocode failed", zap.String("address", addr), zap.Error(err))
				res.Inc(CounterGeocodeFailed)
			} else if r.Cached {
				res.Inc(CounterGeocodeCached)
			}
			seen[addr] = r
		}

		if r == nil || !r.Matched {
			if r != nil {
				log.Debug("pipeline: address not found", zap.String("address", addr))
				res.Inc(CounterGeocodeUnmatched)
			}
			for _, l := range landmarks {
				t.SetNull(i, l.Name)
			}
			t.SetNull(i, model.ColCoordinates)
		} else {
			setLocation(t, i, r, landmarks)
		}

		if progressEvery > 0 && (i+1)%progressEvery == 0 {
			log.Info("pipeline: geocoding progress", zap.Int("done", i+1), zap.Int("total", t.Len()))
			if canFlush {
				if err := fl.Flush(ctx); err != nil {
					log.Warn("pipeline: geocode cache flush failed", zap.Error(err))
				}
			}
		}
	}

	if canFlush {
		if err := fl.Flush(ctx); err != nil {
			log.Warn("pipeline: geocode cache flush failed", zap.Error(err))
		}
	}
	return nil
}

func setLocation(t *model.Table, row int, r *geocode.Result, landmarks []Landmark) {
	point, err := geocode.FormatPoint(r.Latitude, r.Longitude)
	if err != nil {
		t.SetNull(row, model.ColCoordinates)
	} else {
		t.Set(row, model.ColCoordinates, point)
	}
	for _, l := range landmarks {
		t.SetFloat(row, l.Name, geocode.DistanceKm(r.Latitude, r.Longitude, l.Latitude, l.Longitude))
	}
}
