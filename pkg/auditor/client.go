// Package auditor reads parcel attributes from the Hamilton County
// Auditor's property summary pages.
package auditor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cat-astrophic/cincinnati-fc/internal/fetcher"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/resilience"
)

const (
	// DefaultBaseURL is the auditor's real-estate viewer.
	DefaultBaseURL = "https://wedge1.hcauditor.org/view/re/"
	// DefaultTaxYear is the tax year whose summary page is read.
	DefaultTaxYear = 2021

	maxPageBytes = 4 << 20
)

// Cache persists parsed summary pages between runs.
type Cache interface {
	GetParcel(ctx context.Context, parcel string, taxYear int) (*model.ParcelPage, error)
	SetParcel(ctx context.Context, page model.ParcelPage) error
}

// Client looks up parcel attributes.
type Client struct {
	fetcher fetcher.Fetcher
	baseURL string
	taxYear int
	breaker *resilience.CircuitBreaker
	cache   Cache
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithTaxYear overrides DefaultTaxYear.
func WithTaxYear(year int) Option {
	return func(c *Client) {
		if year > 0 {
			c.taxYear = year
		}
	}
}

// WithBreaker sets the circuit breaker guarding page fetches.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithCache enables the parsed-page cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient creates an auditor client fetching through f.
func NewClient(f fetcher.Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher: f,
		baseURL: DefaultBaseURL,
		taxYear: DefaultTaxYear,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.breaker == nil {
		cfg := resilience.BreakerConfig("auditor", 0, 0)
		cfg.ShouldTrip = resilience.IsTransient
		c.breaker = resilience.NewCircuitBreaker(cfg)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	return c
}

// URL returns the summary page address for a parcel number.
func (c *Client) URL(parcel string) string {
	return fmt.Sprintf("%s%s/%d/summary", c.baseURL, strings.ReplaceAll(strings.TrimSpace(parcel), "-", ""), c.taxYear)
}

// Lookup returns the attributes for a parcel, from the cache when present.
// It returns resilience.ErrCircuitOpen while the breaker is open.
func (c *Client) Lookup(ctx context.Context, parcel string) (*Attributes, error) {
	if attrs := c.cached(ctx, parcel); attrs != nil {
		return attrs, nil
	}

	page, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return c.fetcher.Fetch(ctx, c.URL(parcel), maxPageBytes)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "auditor: fetch parcel %s", parcel)
	}

	attrs, err := ParseBytes(page)
	if err != nil {
		return nil, eris.Wrapf(err, "auditor: parcel %s", parcel)
	}

	c.store(ctx, parcel, attrs)
	return attrs, nil
}

// Breaker exposes the circuit breaker state for progress logging.
func (c *Client) Breaker() *resilience.CircuitBreaker { return c.breaker }

func (c *Client) cached(ctx context.Context, parcel string) *Attributes {
	if c.cache == nil {
		return nil
	}
	page, err := c.cache.GetParcel(ctx, parcel, c.taxYear)
	if err != nil {
		zap.L().Warn("auditor: cache lookup failed", zap.String("parcel", parcel), zap.Error(err))
		return nil
	}
	if page == nil {
		return nil
	}
	var attrs Attributes
	if err := json.Unmarshal(page.Data, &attrs); err != nil {
		zap.L().Warn("auditor: corrupt cache entry", zap.String("parcel", parcel), zap.Error(err))
		return nil
	}
	return &attrs
}

func (c *Client) store(ctx context.Context, parcel string, attrs *Attributes) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return
	}
	err = c.cache.SetParcel(ctx, model.ParcelPage{
		Parcel:    parcel,
		TaxYear:   c.taxYear,
		Data:      data,
		FetchedAt: c.now(),
	})
	if err != nil {
		zap.L().Warn("auditor: cache write failed", zap.String("parcel", parcel), zap.Error(err))
	}
}
