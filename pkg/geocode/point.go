package geocode

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// FormatPoint renders a coordinate as WKT, e.g. "POINT (-84.51 39.13)".
// WKT orders axes longitude first.
func FormatPoint(lat, lon float64) (string, error) {
	p := geom.NewPointFlat(geom.XY, []float64{lon, lat})
	s, err := wkt.Marshal(p)
	if err != nil {
		return "", eris.Wrap(err, "geocode: marshal point")
	}
	return s, nil
}

// ParsePoint reads a WKT point written by FormatPoint.
func ParsePoint(s string) (lat, lon float64, err error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "geocode: parse point %q", s)
	}
	p, ok := g.(*geom.Point)
	if !ok || p.Empty() {
		return 0, 0, eris.Errorf("geocode: %q is not a point", s)
	}
	return p.Y(), p.X(), nil
}

// DistanceKm returns the great-circle distance between two coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2}) / 1000
}
