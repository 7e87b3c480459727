// Package cpi loads and builds the monthly CPI deflator table used to
// convert nominal sale prices to real prices.
package cpi

import (
	"context"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cat-astrophic/cincinnati-fc/internal/clean"
	"github.com/cat-astrophic/cincinnati-fc/internal/fetcher"
)

// Ratio column headers of the deflator CSV.
const (
	ColDate  = "DATE"
	ColRatio = "Ratio"
)

// Ratio is the deflator for one month: CPI(reference) / CPI(month).
type Ratio struct {
	Month clean.Month
	Value float64
}

// Ratios is a month-indexed deflator table.
type Ratios struct {
	months []clean.Month // ascending
	values map[clean.Month]float64
}

// NewRatios builds a table from ratios in any order. Later duplicates win.
func NewRatios(ratios []Ratio) *Ratios {
	r := &Ratios{values: make(map[clean.Month]float64, len(ratios))}
	for _, x := range ratios {
		if _, ok := r.values[x.Month]; !ok {
			r.months = append(r.months, x.Month)
		}
		r.values[x.Month] = x.Value
	}
	slices.SortFunc(r.months, func(a, b clean.Month) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return r
}

// Len returns the number of months in the table.
func (r *Ratios) Len() int { return len(r.months) }

// Lookup returns the ratio for m. A month missing from the table uses the
// latest earlier month, which is returned as used. A month before every
// row is an error.
func (r *Ratios) Lookup(m clean.Month) (value float64, used clean.Month, err error) {
	if v, ok := r.values[m]; ok {
		return v, m, nil
	}
	i, _ := slices.BinarySearchFunc(r.months, m, func(e, t clean.Month) int {
		switch {
		case e.Before(t):
			return -1
		case t.Before(e):
			return 1
		}
		return 0
	})
	if i == 0 {
		return 0, clean.Month{}, eris.Errorf("cpi: no ratio at or before %s", m)
	}
	used = r.months[i-1]
	return r.values[used], used, nil
}

// All returns the ratios in month order.
func (r *Ratios) All() []Ratio {
	out := make([]Ratio, len(r.months))
	for i, m := range r.months {
		out[i] = Ratio{Month: m, Value: r.values[m]}
	}
	return out
}

// LoadRatios reads a DATE,Ratio CSV. DATE is M/YYYY or any form
// clean.ParseMonth accepts.
func LoadRatios(ctx context.Context, rd io.Reader) (*Ratios, error) {
	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamCSV(ctx, rd, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var (
		ratios  []Ratio
		dateIdx = -1
		valIdx  = -1
		line    = 1
	)
	for row := range rows {
		line++
		if dateIdx < 0 {
			var err error
			if dateIdx, valIdx, err = ratioColumns(<-headerCh); err != nil {
				return nil, drainWith(rows, err)
			}
		}
		if max(dateIdx, valIdx) >= len(row) {
			return nil, drainWith(rows, eris.Errorf("cpi: line %d: short row", line))
		}
		m, err := clean.ParseMonth(row[dateIdx])
		if err != nil {
			return nil, drainWith(rows, eris.Wrapf(err, "cpi: line %d", line))
		}
		v, err := strconv.ParseFloat(row[valIdx], 64)
		if err != nil {
			return nil, drainWith(rows, eris.Wrapf(err, "cpi: line %d ratio %q", line, row[valIdx]))
		}
		ratios = append(ratios, Ratio{Month: m, Value: v})
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrap(err, "cpi: read ratios")
	}
	if len(ratios) == 0 {
		return nil, eris.New("cpi: ratio table is empty")
	}
	return NewRatios(ratios), nil
}

// LoadRatiosFile opens path and calls LoadRatios.
func LoadRatiosFile(ctx context.Context, path string) (*Ratios, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cpi: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return LoadRatios(ctx, f)
}

// WriteRatios writes ratios as a DATE,Ratio CSV with M/YYYY dates.
func WriteRatios(w io.Writer, ratios []Ratio) error {
	rows := make([][]string, len(ratios))
	for i, r := range ratios {
		rows[i] = []string{r.Month.String(), strconv.FormatFloat(r.Value, 'f', -1, 64)}
	}
	if err := fetcher.WriteCSV(w, []string{ColDate, ColRatio}, rows); err != nil {
		return eris.Wrap(err, "cpi: write ratios")
	}
	return nil
}

func ratioColumns(header []string) (date, ratio int, err error) {
	date, ratio = -1, -1
	for i, h := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(h), ColDate):
			date = i
		case strings.EqualFold(strings.TrimSpace(h), ColRatio):
			ratio = i
		}
	}
	if date < 0 || ratio < 0 {
		return 0, 0, eris.Errorf("cpi: header %v needs %s and %s columns", header, ColDate, ColRatio)
	}
	return date, ratio, nil
}

// drainWith empties rows so the reader goroutine exits, then returns err.
func drainWith(rows <-chan []string, err error) error {
	for range rows {
	}
	return err
}
