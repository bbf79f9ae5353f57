package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sumika/estimator/internal/apperr"
	"github.com/sumika/estimator/internal/model"
)

// Pool abstracts the pgxpool methods the store uses; pgxmock satisfies it in
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

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS comparable_records (
	id            TEXT NOT NULL,
	partition_key TEXT NOT NULL,
	record_type   TEXT NOT NULL,
	doc           JSONB NOT NULL,
	version       BIGINT NOT NULL DEFAULT 1,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (id, partition_key)
);

CREATE INDEX IF NOT EXISTS idx_comparable_records_recent
	ON comparable_records(record_type, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_comparable_records_id
	ON comparable_records(id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec model.ComparableRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO comparable_records (id, partition_key, record_type, doc, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.PartitionKey, model.RecordType, doc, rec.Version, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert record")
	}
	return nil
}

func (s *PostgresStore) PointRead(ctx context.Context, id, partitionKey string) (*model.ComparableRecord, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM comparable_records WHERE id = $1 AND partition_key = $2`,
		id, partitionKey,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("record %s not found in partition %s", id, partitionKey)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: point read")
	}
	return unmarshalDoc(doc)
}

func (s *PostgresStore) QueryByID(ctx context.Context, id string) (*model.ComparableRecord, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM comparable_records WHERE id = $1 LIMIT 1`, id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query by id")
	}
	return unmarshalDoc(doc)
}

func (s *PostgresStore) Upsert(ctx context.Context, rec model.ComparableRecord, expectedVersion int64) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE comparable_records
		 SET doc = $1, version = $2, updated_at = $3
		 WHERE id = $4 AND partition_key = $5 AND version = $6`,
		doc, rec.Version, time.Now().UTC(), rec.ID, rec.PartitionKey, expectedVersion,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert record")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("record %s changed concurrently (expected version %d)", rec.ID, expectedVersion)
	}
	return nil
}

func (s *PostgresStore) QueryRecent(ctx context.Context, limit int) ([]model.ComparableRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM comparable_records
		 WHERE record_type = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		model.RecordType, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query recent")
	}
	defer rows.Close()

	var out []model.ComparableRecord
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recent")
		}
		rec, err := unmarshalDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate recent")
	}
	return out, nil
}

func unmarshalDoc(doc []byte) (*model.ComparableRecord, error) {
	var rec model.ComparableRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, eris.Wrap(err, "unmarshal record doc")
	}
	return &rec, nil
}
