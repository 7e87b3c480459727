// Package pipeline runs the transaction-preparation stages: merge and
// derive, plausibility filter, auditor scrape and real prices. Each stage
// reads one table file, transforms it in memory and writes one table file,
// and every invocation is recorded in the run log.
package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cat-astrophic/cincinnati-fc/internal/clean"
	"github.com/cat-astrophic/cincinnati-fc/internal/config"
	"github.com/cat-astrophic/cincinnati-fc/internal/cpi"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/store"
	"github.com/cat-astrophic/cincinnati-fc/pkg/geocode"
)

// Pipeline holds the dependencies shared by the stages.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	geocoder geocode.Client
	auditor  AttributeSource
	fred     *cpi.FREDClient
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGeocoder sets the geocoder used by Prepare.
func WithGeocoder(gc geocode.Client) Option {
	return func(p *Pipeline) { p.geocoder = gc }
}

// WithAuditor sets the attribute source used by Scrape.
func WithAuditor(src AttributeSource) Option {
	return func(p *Pipeline) { p.auditor = src }
}

// WithFRED sets the client used by FetchCPI.
func WithFRED(c *cpi.FREDClient) Option {
	return func(p *Pipeline) { p.fred = c }
}

// New creates a Pipeline.
func New(cfg *config.Config, st store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, store: st}
	for _, o := range opts {
		o(p)
	}
	return p
}

// StageOptions override the configured paths of a stage. Limit > 0 keeps
// only the first Limit input rows.
type StageOptions struct {
	In     string
	Out    string
	Ratios string
	Limit  int
}

func pick(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}

// Prepare merges the raw extracts, derives rooms, addresses, coordinates,
// distances, age and price, and writes the filter input.
func (p *Pipeline) Prepare(ctx context.Context, opts StageOptions) (*model.Run, error) {
	in := pick(opts.In, p.cfg.Paths.RawDir)
	out := pick(opts.Out, p.cfg.Paths.Prepared)

	return p.track(ctx, model.StagePrepare, in, out, func(ctx context.Context, res *model.StageResult) error {
		if p.geocoder == nil {
			return eris.New("pipeline: geocoder not configured")
		}
		landmarks, err := ResolveLandmarks(ctx, p.geocoder, p.cfg.Landmarks)
		if err != nil {
			return err
		}

		t, err := Merge(ctx, in, p.cfg.Paths.RawEncoding)
		if err != nil {
			return err
		}
		t = t.Head(opts.Limit)
		res.RowsIn = t.Len()

		t = DropMissingAddress(t, res)
		DeriveRooms(t, res)
		DeriveAddresses(t, p.cfg.Geocode.Locality)
		if err := GeocodeRows(ctx, p.geocoder, t, landmarks, p.cfg.Paths.ProgressEveryN, res); err != nil {
			return err
		}
		DeriveAge(t, res)
		DerivePrice(t, res)

		res.RowsOut = t.Len()
		return WriteTable(out, t)
	})
}

// Scrape adds the auditor attributes to every row.
func (p *Pipeline) Scrape(ctx context.Context, opts StageOptions) (*model.Run, error) {
	in := pick(opts.In, p.cfg.Paths.ForScraping)
	out := pick(opts.Out, p.cfg.Paths.Transactions)

	return p.track(ctx, model.StageScrape, in, out, func(ctx context.Context, res *model.StageResult) error {
		if p.auditor == nil {
			return eris.New("pipeline: auditor client not configured")
		}
		t, err := ReadTable(ctx, in, "")
		if err != nil {
			return err
		}
		t = t.Head(opts.Limit)
		res.RowsIn = t.Len()

		if err := ScrapeAttributes(ctx, p.auditor, t, p.cfg.Auditor.Concurrency, p.cfg.Paths.ProgressEveryN, res); err != nil {
			return err
		}

		res.RowsOut = t.Len()
		return WriteTable(out, t)
	})
}

// Filter drops implausible rows so the scrape only requests pages for
// transactions that are kept.
func (p *Pipeline) Filter(ctx context.Context, opts StageOptions) (*model.Run, error) {
	in := pick(opts.In, p.cfg.Paths.Prepared)
	out := pick(opts.Out, p.cfg.Paths.ForScraping)

	return p.track(ctx, model.StageFilter, in, out, func(ctx context.Context, res *model.StageResult) error {
		policy, err := FilterPolicy(p.cfg)
		if err != nil {
			return err
		}
		t, err := ReadTable(ctx, in, "")
		if err != nil {
			return err
		}
		t = t.Head(opts.Limit)
		res.RowsIn = t.Len()

		kept := ApplyFilter(t, policy, res)

		res.RowsOut = kept.Len()
		return WriteTable(out, kept)
	})
}

// RealPrice joins the CPI ratios and writes real prices.
func (p *Pipeline) RealPrice(ctx context.Context, opts StageOptions) (*model.Run, error) {
	in := pick(opts.In, p.cfg.Paths.Transactions)
	out := pick(opts.Out, p.cfg.Paths.RealPrices)
	ratiosPath := pick(opts.Ratios, p.cfg.Paths.CPIRatios)

	return p.track(ctx, model.StageRealPrice, in, out, func(ctx context.Context, res *model.StageResult) error {
		ratios, err := cpi.LoadRatiosFile(ctx, ratiosPath)
		if err != nil {
			return err
		}
		t, err := ReadTable(ctx, in, "")
		if err != nil {
			return err
		}
		t = t.Head(opts.Limit)
		res.RowsIn = t.Len()

		priced := ApplyRealPrices(t, ratios, res)

		res.RowsOut = priced.Len()
		return WriteTable(out, priced)
	})
}

// FetchCPI downloads the CPI series and writes the ratio table.
func (p *Pipeline) FetchCPI(ctx context.Context, opts StageOptions) (*model.Run, error) {
	out := pick(opts.Out, p.cfg.Paths.CPIRatios)

	return p.track(ctx, model.StageCPIFetch, p.cfg.CPI.Series, out, func(ctx context.Context, res *model.StageResult) error {
		if p.fred == nil {
			return eris.New("pipeline: FRED client not configured")
		}
		ref, err := clean.ParseMonth(p.cfg.CPI.ReferenceMonth)
		if err != nil {
			return eris.Wrap(err, "pipeline: cpi.reference_month")
		}

		obs, err := p.fred.Observations(ctx)
		if err != nil {
			return err
		}
		res.RowsIn = len(obs)

		ratios, err := cpi.ComputeRatios(obs, ref)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := cpi.WriteRatios(&buf, ratios); err != nil {
			return err
		}
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrapf(err, "pipeline: create %s", dir)
			}
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return eris.Wrapf(err, "pipeline: write %s", out)
		}
		res.RowsOut = len(ratios)
		return nil
	})
}

// RunAll runs prepare, filter, scrape and realprice in order with the
// configured paths, stopping at the first failed stage. limit applies to
// prepare only.
func (p *Pipeline) RunAll(ctx context.Context, limit int) ([]*model.Run, error) {
	stages := []func(context.Context, StageOptions) (*model.Run, error){
		p.Prepare, p.Filter, p.Scrape, p.RealPrice,
	}

	var runs []*model.Run
	for i, stage := range stages {
		opts := StageOptions{}
		if i == 0 {
			opts.Limit = limit
		}
		run, err := stage(ctx, opts)
		if run != nil {
			runs = append(runs, run)
		}
		if err != nil {
			return runs, err
		}
	}
	return runs, nil
}

// track records a stage invocation in the run log around fn.
func (p *Pipeline) track(ctx context.Context, stage model.Stage, in, out string, fn func(context.Context, *model.StageResult) error) (*model.Run, error) {
	log := zap.L().With(zap.String("stage", string(stage)), zap.String("input", in), zap.String("output", out))

	run, err := p.store.CreateRun(ctx, stage, in, out)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("pipeline: stage started")

	start := time.Now()
	var res model.StageResult
	fnErr := fn(ctx, &res)
	elapsed := time.Since(start)

	// Record the outcome even when ctx was cancelled.
	recordCtx := context.WithoutCancel(ctx)
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.RowsIn, run.RowsOut, run.Counters = res.RowsIn, res.RowsOut, res.Counters

	if fnErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = fnErr.Error()
		if err := p.store.FailRun(recordCtx, run.ID, fnErr); err != nil {
			log.Warn("pipeline: failed to record failure", zap.Error(err))
		}
		log.Error("pipeline: stage failed", zap.Duration("elapsed", elapsed), zap.Error(fnErr))
		return run, fnErr
	}

	run.Status = model.RunStatusComplete
	if err := p.store.CompleteRun(recordCtx, run.ID, res); err != nil {
		return run, eris.Wrap(err, "pipeline: complete run")
	}
	log.Info("pipeline: stage complete",
		zap.Int("rows_in", res.RowsIn),
		zap.Int("rows_out", res.RowsOut),
		zap.Any("counters", res.Counters),
		zap.Duration("elapsed", elapsed),
	)
	return run, nil
}
