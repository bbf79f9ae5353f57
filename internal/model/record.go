package model

import "time"

// RecordType identifies this engine's documents in the record store.
const RecordType = "fee_estimate"

// SharedPartition is the partition key used when the property region is
// unknown.
const SharedPartition = "shared"

// DefaultCurrency is the fixed display currency for all estimates.
const DefaultCurrency = "JPY"

// RecordStatus represents the lifecycle state of a comparable record.
type RecordStatus string

const (
	// StatusAIDraft is the state at creation: the amount is AI- or
	// baseline-derived and has not been human-reviewed.
	StatusAIDraft RecordStatus = "ai_draft"
	// StatusFinalized is entered on the first feedback submission and never
	// left.
	StatusFinalized RecordStatus = "finalized"
)

// EstimateMethod records how an estimate amount was produced.
type EstimateMethod string

const (
	MethodAI               EstimateMethod = "ai"
	MethodBaselineMedian   EstimateMethod = "baseline_median"
	MethodBaselineAreaRate EstimateMethod = "baseline_area_rate"
	// MethodManual marks imported seed records whose amount came straight
	// from a human, with no model run.
	MethodManual EstimateMethod = "manual"
)

// EstimateResult is the outcome of one estimation run. Amount is always
// present: either the model's coerced number or the deterministic baseline.
type EstimateResult struct {
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency"`
	Method         EstimateMethod `json:"method"`
	Rationale      []string       `json:"rationale,omitempty"`
	UsedExampleIDs []string       `json:"used_example_ids,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`

	// Human correction, set by feedback only.
	UserAmount    *float64   `json:"user_amount,omitempty"`
	UserNotes     string     `json:"user_notes,omitempty"`
	UserUpdatedAt *time.Time `json:"user_updated_at,omitempty"`
}

// FeedbackEntry is one human correction applied to a record. Entries are
// append-only: none is ever removed or rewritten.
type FeedbackEntry struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Notes     string    `json:"notes,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// DiffFromAI is amount minus the prior AI amount, nil when the AI amount
	// was unknown.
	DiffFromAI *float64 `json:"diff_from_ai,omitempty"`
}

// ComparableSummary is the compact view of a ranked comparable that is fed
// to the model and stored as estimation context.
type ComparableSummary struct {
	ID      string   `json:"id"`
	Layout  string   `json:"layout,omitempty"`
	AreaSqm *float64 `json:"area_sqm,omitempty"`
	Region  string   `json:"region,omitempty"`
	Amount  *float64 `json:"amount,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// ComparableRecord is the persisted unit: one estimate with its property
// snapshot, attachment metadata, estimation context, and feedback trail.
// Each record doubles as comparison data for subsequent estimates.
//
// Invariants: ID, PartitionKey, and CreatedAt never change after creation;
// FeedbackHistory only grows. Version increments on every write and guards
// concurrent feedback updates.
type ComparableRecord struct {
	ID              string              `json:"id"`
	PartitionKey    string              `json:"partition_key"`
	Status          RecordStatus        `json:"status"`
	Property        PropertyProfile     `json:"property"`
	Attachments     []AttachmentMeta    `json:"attachments,omitempty"`
	Estimate        EstimateResult      `json:"estimate"`
	Context         []ComparableSummary `json:"context,omitempty"`
	FeedbackHistory []FeedbackEntry     `json:"feedback_history,omitempty"`
	Version         int64               `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// BestAmount returns the record's best-known amount: the user-corrected
// value when present, else the AI amount when the estimate came from the
// model, else nil.
func (r ComparableRecord) BestAmount() *float64 {
	if r.Estimate.UserAmount != nil {
		return r.Estimate.UserAmount
	}
	if r.Estimate.Method == MethodAI {
		amt := r.Estimate.Amount
		return &amt
	}
	return nil
}

// AIAmount returns the model-produced amount, nil when the stored estimate
// fell back to a baseline.
func (r ComparableRecord) AIAmount() *float64 {
	if r.Estimate.Method != MethodAI {
		return nil
	}
	amt := r.Estimate.Amount
	return &amt
}

// Summary reduces the record to the compact form used for prompting and
// stored context.
func (r ComparableRecord) Summary() ComparableSummary {
	return ComparableSummary{
		ID:      r.ID,
		Layout:  r.Property.Layout,
		AreaSqm: r.Property.AreaSqm,
		Region:  r.Property.Region,
		Amount:  r.BestAmount(),
		Notes:   r.Property.Notes,
	}
}
