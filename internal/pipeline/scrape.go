package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/resilience"
	"github.com/cat-astrophic/cincinnati-fc/pkg/auditor"
)

// Scrape counters.
const (
	CounterScrapeFailed      = "scrape_failed"
	CounterScrapeCircuitOpen = "scrape_circuit_open"
	CounterScrapeEmpty       = "scrape_empty"
)

// AttributeSource looks up auditor attributes for a parcel.
type AttributeSource interface {
	Lookup(ctx context.Context, parcel string) (*auditor.Attributes, error)
}

// ScrapeAttributes looks up every row's parcel with at most concurrency
// requests in flight and writes the auditor columns. A failed lookup
// leaves all five columns null for that row.
func ScrapeAttributes(ctx context.Context, src AttributeSource, t *model.Table, concurrency, progressEvery int, res *model.StageResult) error {
	for _, c := range model.AuditorColumns {
		t.EnsureColumn(c)
	}

	log := zap.L().With(zap.String("stage", string(model.StageScrape)))
	results := make([]*auditor.Attributes, t.Len())
	var (
		mu   sync.Mutex
		done atomic.Int64
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i := range t.Len() {
		parcel := t.Get(i, model.ColParcel)
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			attrs, err := src.Lookup(gCtx, parcel)
			switch {
			case err == nil:
				results[i] = attrs
			case gCtx.Err() != nil:
				return gCtx.Err()
			case errors.Is(err, resilience.ErrCircuitOpen):
				mu.Lock()
				res.Inc(CounterScrapeCircuitOpen)
				mu.Unlock()
			default:
				log.Debug("pipeline: scrape failed", zap.String("parcel", parcel), zap.Error(err))
				mu.Lock()
				res.Inc(CounterScrapeFailed)
				mu.Unlock()
			}

			if n := done.Add(1); progressEvery > 0 && n%int64(progressEvery) == 0 {
				log.Info("pipeline: scrape progress", zap.Int64("done", n), zap.Int("total", t.Len()))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "pipeline: scrape cancelled")
	}

	for i, attrs := range results {
		if attrs == nil {
			for _, c := range model.AuditorColumns {
				t.SetNull(i, c)
			}
			continue
		}
		if attrs.Empty() {
			res.Inc(CounterScrapeEmpty)
		}
		setAttributes(t, i, attrs)
	}
	return nil
}

func setAttributes(t *model.Table, row int, a *auditor.Attributes) {
	t.Set(row, model.ColSchoolDistrict, a.SchoolDistrict)
	t.Set(row, model.ColDeedType, a.DeedType)
	if a.Acreage != nil {
		t.SetFloat(row, model.ColAcreage, *a.Acreage)
	} else {
		t.SetNull(row, model.ColAcreage)
	}
	t.Set(row, model.ColOwnerResidence, a.OwnerResidence)
	t.Set(row, model.ColForeclosure, a.Foreclosure)
}
