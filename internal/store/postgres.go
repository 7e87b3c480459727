package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cat-astrophic/cincinnati-fc/internal/db"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	stage       TEXT NOT NULL,
	input       TEXT NOT NULL DEFAULT '',
	output      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'running',
	rows_in     INTEGER NOT NULL DEFAULT 0,
	rows_out    INTEGER NOT NULL DEFAULT 0,
	counters    JSONB,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	key       TEXT PRIMARY KEY,
	query     TEXT NOT NULL,
	provider  TEXT NOT NULL DEFAULT '',
	latitude  DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
	found     BOOLEAN NOT NULL DEFAULT false,
	cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS parcel_cache (
	parcel     TEXT NOT NULL,
	tax_year   INTEGER NOT NULL,
	data       JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (parcel, tax_year)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, stage model.Stage, input, output string) (*model.Run, error) {
	run := newRun(stage, input, output)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, stage, input, output, status, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, string(run.Stage), run.Input, run.Output, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result model.StageResult) error {
	countersJSON, err := json.Marshal(result.Counters)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counters")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, rows_in = $2, rows_out = $3, counters = $4, finished_at = $5 WHERE id = $6`,
		string(model.RunStatusComplete), result.RowsIn, result.RowsOut, countersJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, runErr error) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), errorText(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID)
	r, err := scanPostgresRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Stage != "" {
		args = append(args, string(filter.Stage))
		query += fmt.Sprintf(` AND stage = $%d`, len(args))
	}
	args = append(args, listLimit(filter))
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error) {
	var e model.GeocodeEntry
	err := s.pool.QueryRow(ctx,
		`SELECT key, query, provider, latitude, longitude, found, cached_at FROM geocode_cache WHERE key = $1`,
		key,
	).Scan(&e.Key, &e.Query, &e.Provider, &e.Latitude, &e.Longitude, &e.Found, &e.CachedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get geocode")
	}
	return &e, nil
}

var geocodeUpsert = db.UpsertConfig{
	Table:        "geocode_cache",
	Columns:      []string{"key", "query", "provider", "latitude", "longitude", "found", "cached_at"},
	ConflictKeys: []string{"key"},
}

func (s *PostgresStore) SetGeocodes(ctx context.Context, entries []model.GeocodeEntry) error {
	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{e.Key, e.Query, e.Provider, e.Latitude, e.Longitude, e.Found, cachedAt(e.CachedAt)}
	}
	_, err := db.BulkUpsert(ctx, s.pool, geocodeUpsert, rows)
	return eris.Wrap(err, "postgres: set geocodes")
}

func (s *PostgresStore) GetParcel(ctx context.Context, parcel string, taxYear int) (*model.ParcelPage, error) {
	p := model.ParcelPage{Parcel: parcel, TaxYear: taxYear}
	err := s.pool.QueryRow(ctx,
		`SELECT data, fetched_at FROM parcel_cache WHERE parcel = $1 AND tax_year = $2`,
		parcel, taxYear,
	).Scan(&p.Data, &p.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get parcel %s", parcel)
	}
	return &p, nil
}

func (s *PostgresStore) SetParcel(ctx context.Context, page model.ParcelPage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO parcel_cache (parcel, tax_year, data, fetched_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (parcel, tax_year) DO UPDATE SET data = $3, fetched_at = $4`,
		page.Parcel, page.TaxYear, page.Data, cachedAt(page.FetchedAt),
	)
	return eris.Wrapf(err, "postgres: set parcel %s", page.Parcel)
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var counters []byte
	err := row.Scan(&r.ID, &r.Stage, &r.Input, &r.Output, &r.Status,
		&r.RowsIn, &r.RowsOut, &counters, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	if len(counters) > 0 && string(counters) != "null" {
		if err := json.Unmarshal(counters, &r.Counters); err != nil {
			return nil, eris.Wrap(err, "unmarshal counters")
		}
	}
	return &r, nil
}
