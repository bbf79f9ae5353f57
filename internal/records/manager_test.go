package records

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumika/estimator/internal/apperr"
	"github.com/sumika/estimator/internal/model"
)

// memStore is an in-memory Store for manager tests.
type memStore struct {
	records map[string]model.ComparableRecord // keyed id|partition
	upserts int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]model.ComparableRecord)}
}

func key(id, partition string) string { return id + "|" + partition }

func (s *memStore) Insert(_ context.Context, rec model.ComparableRecord) error {
	s.records[key(rec.ID, rec.PartitionKey)] = rec
	return nil
}

func (s *memStore) PointRead(_ context.Context, id, partition string) (*model.ComparableRecord, error) {
	rec, ok := s.records[key(id, partition)]
	if !ok {
		return nil, apperr.NotFound("record %s not found in partition %s", id, partition)
	}
	cp := rec
	return &cp, nil
}

func (s *memStore) QueryByID(_ context.Context, id string) (*model.ComparableRecord, error) {
	for _, rec := range s.records {
		if rec.ID == id {
			cp := rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) Upsert(_ context.Context, rec model.ComparableRecord, expectedVersion int64) error {
	existing, ok := s.records[key(rec.ID, rec.PartitionKey)]
	if !ok || existing.Version != expectedVersion {
		return apperr.Conflict("record %s changed concurrently", rec.ID)
	}
	s.records[key(rec.ID, rec.PartitionKey)] = rec
	s.upserts++
	return nil
}

func (s *memStore) QueryRecent(_ context.Context, limit int) ([]model.ComparableRecord, error) {
	var out []model.ComparableRecord
	for _, rec := range s.records {
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Migrate(context.Context) error { return nil }
func (s *memStore) Close() error                  { return nil }

func aiEstimate(amount float64) model.EstimateResult {
	return model.EstimateResult{Amount: amount, Currency: model.DefaultCurrency, Method: model.MethodAI}
}

func TestCreate_AssignsIdentityAndPartition(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)

	rec, err := m.Create(context.Background(),
		model.PropertyProfile{Region: "Honolulu"},
		[]model.AttachmentMeta{{Name: "lease.pdf", Size: 1024}},
		aiEstimate(450000),
		nil,
	)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "honolulu", rec.PartitionKey)
	assert.Equal(t, model.StatusAIDraft, rec.Status)
	assert.Equal(t, int64(1), rec.Version)
	assert.False(t, rec.CreatedAt.IsZero())
	require.Len(t, rec.Attachments, 1)
	assert.Equal(t, "lease.pdf", rec.Attachments[0].Name)
}

func TestCreate_UnknownRegionUsesSharedPartition(t *testing.T) {
	m := NewManager(newMemStore())
	rec, err := m.Create(context.Background(), model.PropertyProfile{Layout: "1K"}, nil, aiEstimate(60000), nil)
	require.NoError(t, err)
	assert.Equal(t, model.SharedPartition, rec.PartitionKey)
}

func TestSubmitFeedback_RoundTrip(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)

	created, err := m.Create(context.Background(), model.PropertyProfile{Region: "Honolulu"}, nil, aiEstimate(450000), nil)
	require.NoError(t, err)

	got, err := m.SubmitFeedback(context.Background(), created.ID, 500000, "final quote", "ops")
	require.NoError(t, err)

	assert.Equal(t, model.StatusFinalized, got.Status)
	require.NotNil(t, got.Estimate.UserAmount)
	assert.InDelta(t, 500000, *got.Estimate.UserAmount, 0.001)
	assert.Equal(t, "final quote", got.Estimate.UserNotes)
	require.NotNil(t, got.Estimate.UserUpdatedAt)

	require.Len(t, got.FeedbackHistory, 1)
	entry := got.FeedbackHistory[0]
	require.NotNil(t, entry.DiffFromAI)
	assert.InDelta(t, 50000, *entry.DiffFromAI, 0.001)
	assert.Equal(t, "ops", entry.Source)

	// Identity and creation time never change.
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.PartitionKey, got.PartitionKey)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
	assert.Equal(t, int64(2), got.Version)
}

func TestSubmitFeedback_HistoryOnlyGrows(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)

	created, err := m.Create(context.Background(), model.PropertyProfile{Region: "Kyoto"}, nil, aiEstimate(100000), nil)
	require.NoError(t, err)

	first, err := m.SubmitFeedback(context.Background(), created.ID, 110000, "", "")
	require.NoError(t, err)
	second, err := m.SubmitFeedback(context.Background(), created.ID, 120000, "", "")
	require.NoError(t, err)

	require.Len(t, second.FeedbackHistory, 2)
	assert.Equal(t, first.FeedbackHistory[0].ID, second.FeedbackHistory[0].ID)
	assert.Equal(t, model.StatusFinalized, second.Status)
}

func TestSubmitFeedback_DiffNilWhenAIAmountUnknown(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)

	// Baseline-method estimate carries no AI amount.
	est := model.EstimateResult{Amount: 60000, Currency: model.DefaultCurrency, Method: model.MethodBaselineAreaRate}
	created, err := m.Create(context.Background(), model.PropertyProfile{Layout: "1K"}, nil, est, nil)
	require.NoError(t, err)

	got, err := m.SubmitFeedback(context.Background(), created.ID, 65000, "", "")
	require.NoError(t, err)
	require.Len(t, got.FeedbackHistory, 1)
	assert.Nil(t, got.FeedbackHistory[0].DiffFromAI)
}

func TestSubmitFeedback_NotFound(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)

	_, err := m.SubmitFeedback(context.Background(), "ghost", 1000, "", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Zero(t, st.upserts) // no mutation on miss
}

func TestSubmitFeedback_MissingID(t *testing.T) {
	m := NewManager(newMemStore())
	_, err := m.SubmitFeedback(context.Background(), "  ", 1000, "", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "honolulu", PartitionKey("  Honolulu "))
	assert.Equal(t, model.SharedPartition, PartitionKey(""))
	assert.Equal(t, model.SharedPartition, PartitionKey("   "))
}

func TestSubmitFeedback_FoundInSharedPartition(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)

	created, err := m.Create(context.Background(), model.PropertyProfile{Layout: "1K"}, nil, aiEstimate(60000), nil)
	require.NoError(t, err)
	require.Equal(t, model.SharedPartition, created.PartitionKey)

	got, err := m.SubmitFeedback(context.Background(), created.ID, 61000, "", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinalized, got.Status)
}
