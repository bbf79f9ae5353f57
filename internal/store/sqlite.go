package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sumika/estimator/internal/apperr"
	"github.com/sumika/estimator/internal/model"
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
CREATE TABLE IF NOT EXISTS comparable_records (
	id            TEXT NOT NULL,
	partition_key TEXT NOT NULL,
	record_type   TEXT NOT NULL,
	doc           TEXT NOT NULL,
	version       INTEGER NOT NULL DEFAULT 1,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	PRIMARY KEY (id, partition_key)
);

CREATE INDEX IF NOT EXISTS idx_comparable_records_recent
	ON comparable_records(record_type, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_comparable_records_id
	ON comparable_records(id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, rec model.ComparableRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO comparable_records (id, partition_key, record_type, doc, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PartitionKey, model.RecordType, string(doc), rec.Version, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert record")
	}
	return nil
}

func (s *SQLiteStore) PointRead(ctx context.Context, id, partitionKey string) (*model.ComparableRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM comparable_records WHERE id = ? AND partition_key = ?`,
		id, partitionKey,
	)
	rec, err := scanDoc(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("record %s not found in partition %s", id, partitionKey)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: point read")
	}
	return rec, nil
}

func (s *SQLiteStore) QueryByID(ctx context.Context, id string) (*model.ComparableRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM comparable_records WHERE id = ? LIMIT 1`, id,
	)
	rec, err := scanDoc(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query by id")
	}
	return rec, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec model.ComparableRecord, expectedVersion int64) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE comparable_records
		 SET doc = ?, version = ?, updated_at = ?
		 WHERE id = ? AND partition_key = ? AND version = ?`,
		string(doc), rec.Version, time.Now().UTC(), rec.ID, rec.PartitionKey, expectedVersion,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert rows affected")
	}
	if n == 0 {
		return apperr.Conflict("record %s changed concurrently (expected version %d)", rec.ID, expectedVersion)
	}
	return nil
}

func (s *SQLiteStore) QueryRecent(ctx context.Context, limit int) ([]model.ComparableRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM comparable_records
		 WHERE record_type = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		model.RecordType, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query recent")
	}
	defer rows.Close()

	var out []model.ComparableRecord
	for rows.Next() {
		rec, err := scanDoc(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recent")
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate recent")
	}
	return out, nil
}

// scanDoc reads a single doc column and unmarshals it.
func scanDoc(scan func(dest ...any) error) (*model.ComparableRecord, error) {
	var doc string
	if err := scan(&doc); err != nil {
		return nil, err
	}
	var rec model.ComparableRecord
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, eris.Wrap(err, "unmarshal record doc")
	}
	return &rec, nil
}
