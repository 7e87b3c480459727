package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cat-astrophic/cincinnati-fc/internal/fetcher"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// ReadTable reads a CSV or XLSX table. The first row is the header. CSV
// input is decoded from encoding first when it is not UTF-8.
func ReadTable(ctx context.Context, path, encoding string) (*model.Table, error) {
	if isXLSX(path) {
		return readXLSXTable(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r, err := fetcher.DecodeReader(f, encoding)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: decode %s", path)
	}

	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
	})

	var (
		t      *model.Table
		header []string
	)
	for row := range rows {
		if t == nil {
			header = stripBOM(<-headerCh)
			t = model.NewTable(header...)
		}
		t.AppendRecord(header, row)
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}
	if t == nil {
		// Header only, or an empty file.
		select {
		case h := <-headerCh:
			return model.NewTable(stripBOM(h)...), nil
		default:
			return model.NewTable(), nil
		}
	}
	return t, nil
}

func readXLSXTable(path string) (*model.Table, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}
	if len(rows) == 0 {
		return model.NewTable(), nil
	}
	t := model.NewTable(rows[0]...)
	for _, r := range rows[1:] {
		t.AppendRecord(rows[0], r)
	}
	return t, nil
}

// stripBOM removes a UTF-8 byte order mark from the first header cell.
func stripBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header
}

// WriteTable writes t as CSV, or XLSX when path ends in .xlsx. Parent
// directories are created.
func WriteTable(path string, t *model.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "pipeline: create %s", dir)
		}
	}

	rows := make([][]string, t.Len())
	for i := range rows {
		rows[i] = t.Row(i)
	}

	if isXLSX(path) {
		if err := fetcher.WriteXLSX(path, "", t.Columns(), rows); err != nil {
			return eris.Wrapf(err, "pipeline: write %s", path)
		}
		return nil
	}

	// Write to a sibling temp file and rename so a failed write leaves
	// no partial output.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "pipeline: create temp for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := fetcher.WriteCSV(tmp, t.Columns(), rows); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "pipeline: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "pipeline: close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "pipeline: rename to %s", path)
	}
	return nil
}

// Merge reads every table file in dir, in name order, and concatenates
// them. Columns are unioned in first-seen order.
func Merge(ctx context.Context, dir, encoding string) (*model.Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: list %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	if len(names) == 0 {
		return nil, eris.Errorf("pipeline: no raw files in %s", dir)
	}

	merged := model.NewTable()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: merge cancelled")
		}
		path := filepath.Join(dir, name)
		t, err := ReadTable(ctx, path, encoding)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("pipeline: merged raw file", zap.String("file", name), zap.Int("rows", t.Len()))
		for _, c := range t.Columns() {
			merged.EnsureColumn(c)
		}
		merged.Concat(t)
	}
	return merged, nil
}
