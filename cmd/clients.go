package main

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cat-astrophic/cincinnati-fc/internal/cpi"
	"github.com/cat-astrophic/cincinnati-fc/internal/fetcher"
	"github.com/cat-astrophic/cincinnati-fc/internal/pipeline"
	"github.com/cat-astrophic/cincinnati-fc/internal/resilience"
	"github.com/cat-astrophic/cincinnati-fc/internal/store"
	"github.com/cat-astrophic/cincinnati-fc/pkg/auditor"
	"github.com/cat-astrophic/cincinnati-fc/pkg/geocode"
)

func httpTimeout() time.Duration {
	if cfg.HTTP.TimeoutSecs > 0 {
		return time.Duration(cfg.HTTP.TimeoutSecs) * time.Second
	}
	return 30 * time.Second
}

// initFetcher builds the shared page fetcher. The auditor host gets an
// adaptive limiter starting at auditor.rate_limit.
func initFetcher() *fetcher.HTTPFetcher {
	opts := fetcher.HTTPOptions{
		UserAgent:  cfg.Auditor.UserAgent,
		Timeout:    httpTimeout(),
		MaxRetries: cfg.HTTP.MaxRetries,
	}
	if u, err := url.Parse(cfg.Auditor.BaseURL); err == nil && u.Host != "" && cfg.Auditor.RateLimit > 0 {
		opts.AdaptiveHosts = map[string]float64{u.Host: cfg.Auditor.RateLimit}
	}
	return fetcher.NewHTTPFetcher(opts)
}

// initGeocoder builds the provider cascade with the store as its cache.
func initGeocoder(st store.Store) (*geocode.CascadeClient, error) {
	retry := resilience.DefaultRetryConfig().WithAttempts(cfg.HTTP.MaxRetries)
	providers, err := geocode.NewProviders(cfg.Geocode.Providers,
		geocode.WithHTTPClient(&http.Client{Timeout: httpTimeout()}),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithNominatimURL(cfg.Geocode.NominatimURL),
		geocode.WithGoogleAPIKey(cfg.Geocode.GoogleKey),
		geocode.WithRetry(retry),
	)
	if err != nil {
		return nil, eris.Wrap(err, "init geocoder")
	}
	return geocode.NewCascadeClient(providers, st,
		geocode.WithCascadeCacheEnabled(cfg.Geocode.CacheEnabled),
		geocode.WithCascadeCacheTTLDays(cfg.Geocode.CacheTTLDays),
	), nil
}

// initAuditor builds the auditor client behind a circuit breaker.
func initAuditor(f fetcher.Fetcher, st store.Store) *auditor.Client {
	breakerCfg := resilience.BreakerConfig("auditor", cfg.Auditor.FailureThreshold, cfg.Auditor.ResetTimeoutSecs)
	breakerCfg.ShouldTrip = resilience.IsTransient

	opts := []auditor.Option{
		auditor.WithBaseURL(cfg.Auditor.BaseURL),
		auditor.WithTaxYear(cfg.Auditor.TaxYear),
		auditor.WithBreaker(resilience.NewCircuitBreaker(breakerCfg)),
	}
	if cfg.Auditor.CacheEnabled {
		opts = append(opts, auditor.WithCache(st))
	}
	return auditor.NewClient(f, opts...)
}

// initPipeline wires every stage dependency. The returned close func
// releases the store.
func initPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	gc, err := initGeocoder(st)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	f := initFetcher()
	p := pipeline.New(cfg, st,
		pipeline.WithGeocoder(gc),
		pipeline.WithAuditor(initAuditor(f, st)),
		pipeline.WithFRED(cpi.NewFREDClient(f, cfg.CPI.FREDKey, cfg.CPI.FREDBaseURL, cfg.CPI.Series)),
	)
	return p, func() { _ = st.Close() }, nil
}
