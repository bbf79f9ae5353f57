// Package records owns the comparable-record lifecycle: creating estimate
// drafts and reconciling them against human feedback.
package records

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sumika/estimator/internal/apperr"
	"github.com/sumika/estimator/internal/model"
	"github.com/sumika/estimator/internal/store"
)

// Manager persists new estimate records and applies feedback corrections.
type Manager struct {
	store store.Store
}

// NewManager creates a Manager. Returns nil if st is nil.
func NewManager(st store.Store) *Manager {
	if st == nil {
		return nil
	}
	return &Manager{store: st}
}

// Create assembles and inserts a new ai_draft record from an estimation run.
// Only attachment metadata is retained; no binary survives.
func (m *Manager) Create(ctx context.Context, profile model.PropertyProfile, attachments []model.AttachmentMeta, est model.EstimateResult, summaries []model.ComparableSummary) (*model.ComparableRecord, error) {
	now := time.Now().UTC()
	rec := model.ComparableRecord{
		ID:           uuid.New().String(),
		PartitionKey: PartitionKey(profile.Region),
		Status:       model.StatusAIDraft,
		Property:     profile,
		Attachments:  attachments,
		Estimate:     est,
		Context:      summaries,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.store.Insert(ctx, rec); err != nil {
		return nil, eris.Wrap(err, "records: insert")
	}

	zap.L().Info("records: estimate created",
		zap.String("id", rec.ID),
		zap.String("partition", rec.PartitionKey),
		zap.Float64("amount", est.Amount),
		zap.String("method", string(est.Method)),
	)
	return &rec, nil
}

// SubmitFeedback applies a human correction to an existing record: appends a
// FeedbackEntry, sets the user amount, and finalizes the record. The
// feedback history only grows; prior entries are never touched.
func (m *Manager) SubmitFeedback(ctx context.Context, estimateID string, finalAmount float64, notes, source string) (*model.ComparableRecord, error) {
	if strings.TrimSpace(estimateID) == "" {
		return nil, apperr.Validation("estimateId is required")
	}

	rec, err := m.lookup(ctx, estimateID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := model.FeedbackEntry{
		ID:        uuid.New().String(),
		Amount:    finalAmount,
		Notes:     strings.TrimSpace(notes),
		Source:    strings.TrimSpace(source),
		CreatedAt: now,
	}
	if ai := rec.AIAmount(); ai != nil {
		diff := finalAmount - *ai
		entry.DiffFromAI = &diff
	}

	expected := rec.Version
	rec.FeedbackHistory = append(rec.FeedbackHistory, entry)
	rec.Estimate.UserAmount = &finalAmount
	rec.Estimate.UserNotes = entry.Notes
	rec.Estimate.UserUpdatedAt = &now
	rec.Status = model.StatusFinalized
	rec.Version = expected + 1
	rec.UpdatedAt = now

	if err := m.store.Upsert(ctx, *rec, expected); err != nil {
		return nil, eris.Wrap(err, "records: apply feedback")
	}

	zap.L().Info("records: feedback applied",
		zap.String("id", rec.ID),
		zap.Float64("final_amount", finalAmount),
		zap.Int("history_len", len(rec.FeedbackHistory)),
	)
	return rec, nil
}

// Get fetches a record by id, trying the region partitions indirectly via a
// cross-partition scan.
func (m *Manager) Get(ctx context.Context, estimateID string) (*model.ComparableRecord, error) {
	if strings.TrimSpace(estimateID) == "" {
		return nil, apperr.Validation("estimateId is required")
	}
	return m.lookup(ctx, estimateID)
}

// lookup tries a direct point read against the shared partition first (the
// caller usually does not know the region partition), then falls back to a
// cross-partition scan by id.
func (m *Manager) lookup(ctx context.Context, id string) (*model.ComparableRecord, error) {
	rec, err := m.store.PointRead(ctx, id, model.SharedPartition)
	if err == nil {
		return rec, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, eris.Wrap(err, "records: point read")
	}

	rec, err = m.store.QueryByID(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "records: cross-partition lookup")
	}
	if rec == nil {
		return nil, apperr.NotFound("estimate %s not found", id)
	}
	return rec, nil
}

// PartitionKey normalizes a region into a partition key, falling back to the
// shared partition when the region is unknown.
func PartitionKey(region string) string {
	r := strings.ToLower(strings.TrimSpace(region))
	if r == "" {
		return model.SharedPartition
	}
	return r
}
