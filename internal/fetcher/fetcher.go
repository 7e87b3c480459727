// Package fetcher downloads remote pages and reads and writes the CSV and
// XLSX tables the pipeline stages exchange.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// Fetch downloads the URL and returns at most maxBytes of its body.
	// maxBytes <= 0 reads the whole body.
	Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, error)
}
