package auditor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cat-astrophic/cincinnati-fc/internal/fetcher"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/resilience"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	err   error
	urls  []string
}

func (f *fakeFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	b, err := f.Fetch(ctx, url, 0)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(b))), nil
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, errors.New("download: unexpected status 404")
	}
	return []byte(page), nil
}

type memParcelCache struct {
	pages map[string]model.ParcelPage
}

func (m *memParcelCache) GetParcel(_ context.Context, parcel string, _ int) (*model.ParcelPage, error) {
	p, ok := m.pages[parcel]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memParcelCache) SetParcel(_ context.Context, page model.ParcelPage) error {
	m.pages[page.Parcel] = page
	return nil
}

func TestClient_URL(t *testing.T) {
	c := NewClient(&fakeFetcher{})
	assert.Equal(t, "https://wedge1.hcauditor.org/view/re/0010001000100/2021/summary", c.URL("001-0001-0001-00"))

	c = NewClient(&fakeFetcher{}, WithBaseURL("http://example.test/re"), WithTaxYear(2020))
	assert.Equal(t, "http://example.test/re/5550001/2020/summary", c.URL(" 555-0001 "))
}

func TestClient_LookupCachesResult(t *testing.T) {
	c0 := NewClient(nil)
	f := &fakeFetcher{pages: map[string]string{
		c0.URL("001-0001"): summaryPage("CINCINNATI CSD", map[int]string{rowAcreage: "0.25"}),
	}}
	cache := &memParcelCache{pages: map[string]model.ParcelPage{}}
	c := NewClient(f, WithCache(cache))

	attrs, err := c.Lookup(context.Background(), "001-0001")
	require.NoError(t, err)
	assert.Equal(t, "CINCINNATI CSD", attrs.SchoolDistrict)
	require.Contains(t, cache.pages, "001-0001")
	assert.Equal(t, DefaultTaxYear, cache.pages["001-0001"].TaxYear)

	attrs, err = c.Lookup(context.Background(), "001-0001")
	require.NoError(t, err)
	require.NotNil(t, attrs.Acreage)
	assert.InDelta(t, 0.25, *attrs.Acreage, 1e-9)
	assert.Len(t, f.urls, 1)
}

func TestClient_LookupFetchError(t *testing.T) {
	c := NewClient(&fakeFetcher{})
	_, err := c.Lookup(context.Background(), "999-9999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "999-9999")
	// A missing page is not a transient failure.
	assert.Equal(t, 0, c.Breaker().Failures())
}

func TestClient_BreakerOpensOnTransientFailures(t *testing.T) {
	f := &fakeFetcher{err: resilience.NewTransientError(errors.New("http 503"), http.StatusServiceUnavailable)}
	cfg := resilience.BreakerConfig("auditor", 2, 60)
	cfg.ShouldTrip = resilience.IsTransient
	c := NewClient(f, WithBreaker(resilience.NewCircuitBreaker(cfg)))

	for range 2 {
		_, err := c.Lookup(context.Background(), "001-0001")
		require.Error(t, err)
	}
	assert.Equal(t, resilience.CircuitOpen, c.Breaker().State())

	_, err := c.Lookup(context.Background(), "001-0002")
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Len(t, f.urls, 2)
}

func TestClient_ThroughHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/view/re/0010001/2021/summary", r.URL.Path)
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, summaryPage("FOREST HILLS LSD", map[int]string{rowForeclosure: "No"}))
	}))
	defer srv.Close()

	retry := resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{UserAgent: "Mozilla/5.0", Retry: &retry, MaxRetries: 1})
	c := NewClient(f, WithBaseURL(srv.URL+"/view/re/"))

	attrs, err := c.Lookup(context.Background(), "001-0001")
	require.NoError(t, err)
	assert.Equal(t, "FOREST HILLS LSD", attrs.SchoolDistrict)
	assert.Equal(t, "No", attrs.Foreclosure)
}
