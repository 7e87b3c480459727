package cpi

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cat-astrophic/cincinnati-fc/internal/clean"
	"github.com/cat-astrophic/cincinnati-fc/internal/fetcher"
)

const (
	// DefaultFREDURL is the FRED series observations endpoint.
	DefaultFREDURL = "https://api.stlouisfed.org/fred/series/observations"
	// DefaultSeries is CPI for all urban consumers, seasonally adjusted.
	DefaultSeries = "CPIAUCSL"
)

// fredMissing marks an observation with no value.
const fredMissing = "."

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// decodeObservations reads a FRED observations payload. FRED reports bad
// keys and series in the body as error_code/error_message.
func decodeObservations(r io.Reader) (*fredObservations, error) {
	var resp fredObservations
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, eris.Wrap(err, "cpi: decode observations")
	}
	if resp.ErrorMessage != "" {
		return nil, eris.Errorf("cpi: fred error %d: %s", resp.ErrorCode, resp.ErrorMessage)
	}
	return &resp, nil
}

// Observation is one monthly index value.
type Observation struct {
	Month clean.Month
	Value float64
}

// FREDClient downloads series observations from FRED.
type FREDClient struct {
	fetcher fetcher.Fetcher
	baseURL string
	apiKey  string
	series  string
}

// NewFREDClient creates a client. Empty baseURL and series use the defaults.
func NewFREDClient(f fetcher.Fetcher, apiKey, baseURL, series string) *FREDClient {
	if baseURL == "" {
		baseURL = DefaultFREDURL
	}
	if series == "" {
		series = DefaultSeries
	}
	return &FREDClient{fetcher: f, baseURL: baseURL, apiKey: apiKey, series: series}
}

// Observations downloads every observation of the series. Missing values
// are skipped.
func (c *FREDClient) Observations(ctx context.Context) ([]Observation, error) {
	params := url.Values{
		"series_id": {c.series},
		"api_key":   {c.apiKey},
		"file_type": {"json"},
	}
	body, err := c.fetcher.Download(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, eris.Wrapf(err, "cpi: download %s", c.series)
	}
	defer body.Close() //nolint:errcheck

	resp, err := decodeObservations(body)
	if err != nil {
		return nil, eris.Wrapf(err, "cpi: decode %s", c.series)
	}

	out := make([]Observation, 0, len(resp.Observations))
	for _, o := range resp.Observations {
		if strings.TrimSpace(o.Value) == fredMissing {
			continue
		}
		m, err := clean.ParseMonth(o.Date)
		if err != nil {
			return nil, eris.Wrapf(err, "cpi: observation date")
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "cpi: observation %s value %q", o.Date, o.Value)
		}
		out = append(out, Observation{Month: m, Value: v})
	}
	zap.L().Debug("cpi: downloaded observations", zap.String("series", c.series), zap.Int("count", len(out)))
	return out, nil
}

// ComputeRatios turns index values into deflators relative to ref:
// ratio = CPI(ref) / CPI(month).
func ComputeRatios(obs []Observation, ref clean.Month) ([]Ratio, error) {
	var refValue float64
	found := false
	for _, o := range obs {
		if o.Month == ref {
			refValue, found = o.Value, true
			break
		}
	}
	if !found {
		return nil, eris.Errorf("cpi: reference month %s not in series", ref)
	}

	out := make([]Ratio, 0, len(obs))
	for _, o := range obs {
		if o.Value == 0 {
			return nil, eris.Errorf("cpi: zero index value for %s", o.Month)
		}
		out = append(out, Ratio{Month: o.Month, Value: refValue / o.Value})
	}
	return out, nil
}
