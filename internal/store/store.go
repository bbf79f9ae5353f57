// Package store persists comparable records behind a document-style
// interface with sqlite and postgres backends.
package store

import (
	"context"

	"github.com/sumika/estimator/internal/model"
)

// Store defines the record-store operations the engine consumes. Reads of
// recent records are advisory snapshots; staleness is acceptable. Writes are
// guarded by a version counter: an Upsert against a stale version fails with
// a conflict instead of silently overwriting.
type Store interface {
	// Insert persists a brand-new record at version 1.
	Insert(ctx context.Context, rec model.ComparableRecord) error
	// PointRead fetches a record by id within its partition. Returns an
	// apperr.NotFound error when absent.
	PointRead(ctx context.Context, id, partitionKey string) (*model.ComparableRecord, error)
	// QueryByID scans across partitions for a record id. Returns (nil, nil)
	// when absent.
	QueryByID(ctx context.Context, id string) (*model.ComparableRecord, error)
	// Upsert replaces the record if its stored version still equals
	// expectedVersion, writing rec.Version as the new version. A stale
	// expectedVersion yields an apperr.Conflict error.
	Upsert(ctx context.Context, rec model.ComparableRecord, expectedVersion int64) error
	// QueryRecent returns up to limit records of this engine's type,
	// creation time descending, across all partitions.
	QueryRecent(ctx context.Context, limit int) ([]model.ComparableRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
