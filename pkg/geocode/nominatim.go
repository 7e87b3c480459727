package geocode

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

const nominatimSearchURL = "https://nominatim.openstreetmap.org/search"

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	AddressType string `json:"addresstype"`
}

// NominatimProvider geocodes through the OpenStreetMap Nominatim search API.
type NominatimProvider struct {
	requester
	baseURL string
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return p.baseURL != "" }

// Geocode implements Provider.
func (p *NominatimProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}

	var places []nominatimPlace
	if err := p.getJSON(ctx, p.baseURL+"?"+params.Encode(), &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lat")
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lon")
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Source:    "nominatim",
		Quality:   nominatimQuality(places[0].AddressType),
		Matched:   true,
	}, nil
}

// nominatimQuality maps Nominatim's addresstype to our quality taxonomy.
func nominatimQuality(addressType string) string {
	switch addressType {
	case "building", "house", "place", "amenity":
		return "rooftop"
	case "road":
		return "range"
	case "postcode", "suburb", "neighbourhood", "village", "town", "city", "hamlet":
		return "centroid"
	default:
		return "approximate"
	}
}
