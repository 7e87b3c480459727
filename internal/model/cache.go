package model

import "time"

// GeocodeEntry is a cached geocoder answer. Found is false for addresses
// no provider could locate, so they are not retried on every run.
type GeocodeEntry struct {
	Key       string    `json:"key"`
	Query     string    `json:"query"`
	Provider  string    `json:"provider,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Found     bool      `json:"found"`
	CachedAt  time.Time `json:"cached_at"`
}

// ParcelPage is a cached auditor summary for one parcel and tax year.
// Data holds the JSON-encoded parsed fields.
type ParcelPage struct {
	Parcel    string    `json:"parcel"`
	TaxYear   int       `json:"tax_year"`
	Data      []byte    `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}
