package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-scout/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	subject       TEXT NOT NULL,
	category      TEXT NOT NULL,
	mode          TEXT NOT NULL,
	source        TEXT NOT NULL,
	direct        INTEGER NOT NULL DEFAULT 0,
	indirect      INTEGER NOT NULL DEFAULT 0,
	emerging      INTEGER NOT NULL DEFAULT 0,
	used_fallback BOOLEAN NOT NULL DEFAULT FALSE,
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	request       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_subject ON runs(subject);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, rec model.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	requestJSON, err := json.Marshal(rec.Request)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal request")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, subject, category, mode, source, direct, indirect, emerging, used_fallback, duration_ms, request, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.Request.Subject, rec.Request.Category, string(rec.Request.Mode),
		string(rec.Source), rec.Direct, rec.Indirect, rec.Emerging,
		rec.UsedFallback, rec.Duration.Milliseconds(), requestJSON, rec.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", rec.ID)
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, direct, indirect, emerging, used_fallback, duration_ms, request, created_at
		 FROM runs WHERE id = $1`, id,
	)
	rec, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	query := `SELECT id, source, direct, indirect, emerging, used_fallback, duration_ms, request, created_at FROM runs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return pgPlaceholder(len(args))
	}
	if filter.Source != "" {
		query += ` AND source = ` + arg(string(filter.Source))
	}
	if filter.Mode != "" {
		query += ` AND mode = ` + arg(string(filter.Mode))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.RunRecord
	for rows.Next() {
		rec, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs")
}

func pgPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func scanPgRun(row pgx.Row) (*model.RunRecord, error) {
	var (
		rec         model.RunRecord
		source      string
		requestJSON []byte
		durationMS  int64
	)
	err := row.Scan(&rec.ID, &source, &rec.Direct, &rec.Indirect, &rec.Emerging,
		&rec.UsedFallback, &durationMS, &requestJSON, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Source = model.ResultSource(source)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal(requestJSON, &rec.Request); err != nil {
		return nil, err
	}
	return &rec, nil
}
