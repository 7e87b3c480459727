package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	stage       TEXT NOT NULL,
	input       TEXT NOT NULL DEFAULT '',
	output      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'running',
	rows_in     INTEGER NOT NULL DEFAULT 0,
	rows_out    INTEGER NOT NULL DEFAULT 0,
	counters    TEXT,
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	key       TEXT PRIMARY KEY,
	query     TEXT NOT NULL,
	provider  TEXT NOT NULL DEFAULT '',
	latitude  REAL NOT NULL DEFAULT 0,
	longitude REAL NOT NULL DEFAULT 0,
	found     INTEGER NOT NULL DEFAULT 0,
	cached_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS parcel_cache (
	parcel     TEXT NOT NULL,
	tax_year   INTEGER NOT NULL,
	data       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	PRIMARY KEY (parcel, tax_year)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, stage model.Stage, input, output string) (*model.Run, error) {
	run := newRun(stage, input, output)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, stage, input, output, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Stage), run.Input, run.Output, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result model.StageResult) error {
	countersJSON, err := json.Marshal(result.Counters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counters")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, rows_in = ?, rows_out = ?, counters = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), result.RowsIn, result.RowsOut, string(countersJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, runErr error) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), errorText(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const runColumns = `id, stage, input, output, status, rows_in, rows_out, counters, error, started_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: run not found: %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error) {
	var e model.GeocodeEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT key, query, provider, latitude, longitude, found, cached_at FROM geocode_cache WHERE key = ?`,
		key,
	).Scan(&e.Key, &e.Query, &e.Provider, &e.Latitude, &e.Longitude, &e.Found, &e.CachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get geocode")
	}
	return &e, nil
}

func (s *SQLiteStore) SetGeocodes(ctx context.Context, entries []model.GeocodeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin geocode tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO geocode_cache (key, query, provider, latitude, longitude, found, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET query = excluded.query, provider = excluded.provider,
		 latitude = excluded.latitude, longitude = excluded.longitude,
		 found = excluded.found, cached_at = excluded.cached_at`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare geocode upsert")
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Key, e.Query, e.Provider, e.Latitude, e.Longitude, e.Found, cachedAt(e.CachedAt)); err != nil {
			return eris.Wrapf(err, "sqlite: upsert geocode %s", e.Key)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit geocodes")
}

func (s *SQLiteStore) GetParcel(ctx context.Context, parcel string, taxYear int) (*model.ParcelPage, error) {
	p := model.ParcelPage{Parcel: parcel, TaxYear: taxYear}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, fetched_at FROM parcel_cache WHERE parcel = ? AND tax_year = ?`,
		parcel, taxYear,
	).Scan(&data, &p.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get parcel %s", parcel)
	}
	p.Data = []byte(data)
	return &p, nil
}

func (s *SQLiteStore) SetParcel(ctx context.Context, page model.ParcelPage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parcel_cache (parcel, tax_year, data, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(parcel, tax_year) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
		page.Parcel, page.TaxYear, string(page.Data), cachedAt(page.FetchedAt),
	)
	return eris.Wrapf(err, "sqlite: set parcel %s", page.Parcel)
}

// helpers

func newRun(stage model.Stage, input, output string) *model.Run {
	return &model.Run{
		ID:        uuid.New().String(),
		Stage:     stage,
		Input:     input,
		Output:    output,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

func listLimit(f RunFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func cachedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var r model.Run
	var counters sql.NullString
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Stage, &r.Input, &r.Output, &r.Status,
		&r.RowsIn, &r.RowsOut, &counters, &r.Error, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if counters.Valid && counters.String != "" && counters.String != "null" {
		if err := json.Unmarshal([]byte(counters.String), &r.Counters); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal counters")
		}
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
