package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/cat-astrophic/cincinnati-fc/internal/clean"
	"github.com/cat-astrophic/cincinnati-fc/internal/config"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

// FilterPolicy builds the plausibility policy from configuration. The
// reference landmark name is resolved to its configured spelling, which
// is the distance column name.
func FilterPolicy(cfg *config.Config) (clean.FilterPolicy, error) {
	l, ok := cfg.Landmark(cfg.Filter.ReferenceLandmark)
	if !ok {
		return clean.FilterPolicy{}, eris.Errorf("pipeline: unknown reference landmark %q", cfg.Filter.ReferenceLandmark)
	}
	return clean.FilterPolicy{
		DistanceColumn: l.Name,
		MaxDistanceKm:  cfg.Filter.MaxDistanceKm,
		DropIncomplete: cfg.Filter.DropIncomplete,
	}, nil
}

// ApplyFilter runs the policy and records the per-reason drop counts.
func ApplyFilter(t *model.Table, policy clean.FilterPolicy, res *model.StageResult) *model.Table {
	kept, dropped := clean.Filter(t, policy)
	for reason, n := range dropped {
		res.Add("dropped_"+string(reason), n)
	}
	return kept
}
