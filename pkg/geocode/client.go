// Package geocode resolves one-line addresses to coordinates via Nominatim,
// the Census Geocoder and Google, with a store-backed cascade in front.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/cat-astrophic/cincinnati-fc/internal/resilience"
)

// Client geocodes one-line addresses.
type Client interface {
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
	Available() bool
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // provider name
	Quality   string // "rooftop", "range", "centroid", "approximate"
	Matched   bool
	Cached    bool
}

// Option configures the providers built by NewProviders.
type Option func(*options)

type options struct {
	httpClient   *http.Client
	rps          float64
	userAgent    string
	nominatimURL string
	googleKey    string
	retry        resilience.RetryConfig
}

// WithHTTPClient sets the HTTP client shared by every provider.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit applied to each provider.
func WithRateLimit(rps float64) Option {
	return func(o *options) { o.rps = rps }
}

// WithUserAgent sets the User-Agent sent to providers. Nominatim rejects
// requests without one, so an empty ua keeps the default.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithNominatimURL overrides the Nominatim search endpoint. Empty keeps the
// public endpoint.
func WithNominatimURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.nominatimURL = u
		}
	}
}

// WithGoogleAPIKey enables the Google provider.
func WithGoogleAPIKey(key string) Option {
	return func(o *options) { o.googleKey = key }
}

// WithRetry sets the retry policy for transient provider failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

// NewProviders builds the named providers in order. Known names are
// "nominatim", "census" and "google".
func NewProviders(names []string, opts ...Option) ([]Provider, error) {
	o := &options{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		rps:          1,
		userAgent:    "cincinnati-fc/1.0",
		nominatimURL: nominatimSearchURL,
		retry:        resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}

	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		base := o.base(name)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "nominatim":
			providers = append(providers, &NominatimProvider{requester: base, baseURL: o.nominatimURL})
		case "census":
			providers = append(providers, &CensusProvider{requester: base})
		case "google":
			providers = append(providers, &GoogleProvider{requester: base, key: o.googleKey})
		default:
			return nil, eris.Errorf("geocode: unknown provider %q", name)
		}
	}
	return providers, nil
}

func (o *options) base(name string) requester {
	rps := o.rps
	if rps <= 0 {
		rps = 1
	}
	return requester{
		name:       strings.ToLower(name),
		httpClient: o.httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), max(int(rps), 1)),
		userAgent:  o.userAgent,
		retry:      o.retry,
	}
}

// requester holds the HTTP plumbing shared by the providers.
type requester struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	retry      resilience.RetryConfig
}

// getJSON GETs reqURL and decodes the body into out, retrying 429 and 5xx.
func (r requester) getJSON(ctx context.Context, reqURL string, out any) error {
	retry := r.retry
	retry.OnRetry = resilience.RetryLogger(r.name, "geocode")

	return resilience.Do(ctx, retry, func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return eris.Wrapf(err, "geocode: %s rate limit", r.name)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return eris.Wrapf(err, "geocode: %s build request", r.name)
		}
		req.Header.Set("User-Agent", r.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return eris.Wrapf(err, "geocode: %s request", r.name)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("geocode: %s returned status %d", r.name, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(err, resp.StatusCode)
			}
			return err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrapf(err, "geocode: %s read body", r.name)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return eris.Wrapf(err, "geocode: %s parse response", r.name)
		}
		return nil
	})
}
