// Package store persists the run log and the geocode and auditor caches.
package store

import (
	"context"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Stage  model.Stage     `json:"stage,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, stage model.Stage, input, output string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result model.StageResult) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Geocode cache
	GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error)
	SetGeocodes(ctx context.Context, entries []model.GeocodeEntry) error

	// Auditor cache
	GetParcel(ctx context.Context, parcel string, taxYear int) (*model.ParcelPage, error)
	SetParcel(ctx context.Context, page model.ParcelPage) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100
