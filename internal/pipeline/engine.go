// Package pipeline orchestrates the estimation flow: intake, extraction,
// normalization, comparable ranking, estimation, and persistence.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sumika/estimator/internal/apperr"
	"github.com/sumika/estimator/internal/estimate"
	"github.com/sumika/estimator/internal/intake"
	"github.com/sumika/estimator/internal/model"
	"github.com/sumika/estimator/internal/normalize"
	"github.com/sumika/estimator/internal/records"
	"github.com/sumika/estimator/internal/scorer"
	"github.com/sumika/estimator/internal/store"
	"github.com/sumika/estimator/pkg/anthropic"
)

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	Model          string
	MaxTokens      int64
	RecentLimit    int
	TopComparables int
	AreaRate       float64
	DefaultAreaSqm float64
	MaxAttachments int
	MaxAttachSize  int64
}

// Engine runs the forward estimation pipeline. Each request builds its own
// profile, ranking, and record; the engine holds no per-request state.
type Engine struct {
	validator *intake.Validator
	store     store.Store
	manager   *records.Manager
	generator *estimate.Generator
	client    anthropic.Client

	modelID        string
	maxTokens      int64
	recentLimit    int
	topComparables int
	areaRate       float64
	defaultArea    float64
}

// NewEngine wires the pipeline. client may be nil when the generative
// service is not configured; estimate creation then fails with a
// misconfiguration error, while feedback submission still works.
func NewEngine(st store.Store, client anthropic.Client, opts Options) *Engine {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 50
	}
	if opts.TopComparables <= 0 {
		opts.TopComparables = 6
	}
	if opts.AreaRate <= 0 {
		opts.AreaRate = estimate.DefaultAreaRate
	}
	if opts.DefaultAreaSqm <= 0 {
		opts.DefaultAreaSqm = estimate.DefaultAreaSqm
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}

	return &Engine{
		validator:      intake.NewValidator(opts.MaxAttachments, opts.MaxAttachSize),
		store:          st,
		manager:        records.NewManager(st),
		generator:      estimate.NewGenerator(client, opts.Model, opts.MaxTokens),
		client:         client,
		modelID:        opts.Model,
		maxTokens:      opts.MaxTokens,
		recentLimit:    opts.RecentLimit,
		topComparables: opts.TopComparables,
		areaRate:       opts.AreaRate,
		defaultArea:    opts.DefaultAreaSqm,
	}
}

// CreateResult is the response of one estimate creation.
type CreateResult struct {
	EstimateID      string                    `json:"estimate_id"`
	Estimate        model.EstimateResult      `json:"estimate"`
	Property        model.PropertyProfile     `json:"property"`
	SimilarExamples []model.ComparableSummary `json:"similar_examples,omitempty"`
}

// FeedbackResult is the response of one feedback submission.
type FeedbackResult struct {
	EstimateID      string                `json:"estimate_id"`
	Estimate        model.EstimateResult  `json:"estimate"`
	FeedbackHistory []model.FeedbackEntry `json:"feedback_history"`
}

// CreateEstimate runs the forward pipeline once. Attachment validation
// happens before any network call; extraction and comparable retrieval
// overlap afterwards.
func (e *Engine) CreateEstimate(ctx context.Context, input model.PropertyInput, rawAttachments []model.RawAttachment) (*CreateResult, error) {
	attachments, err := e.validator.Validate(rawAttachments)
	if err != nil {
		return nil, err
	}
	if e.generator == nil {
		return nil, apperr.Misconfigured("generative service credentials are not configured")
	}

	var (
		extracted normalize.Extracted
		recent    []model.ComparableRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(attachments) > 0 {
			extracted = e.extract(gctx, attachments)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recent, err = e.store.QueryRecent(gctx, e.recentLimit)
		if err != nil {
			return eris.Wrap(err, "pipeline: load comparables")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile, err := normalize.Merge(input, extracted)
	if err != nil {
		return nil, err
	}

	ranked := scorer.Rank(profile, recent)
	top := scorer.Top(ranked, e.topComparables)
	baseline, baselineMethod := estimate.BaselineWith(ranked, profile, e.areaRate, e.defaultArea)
	result := e.generator.Generate(ctx, profile, top, baseline, baselineMethod)

	metas := make([]model.AttachmentMeta, 0, len(attachments))
	for _, a := range attachments {
		metas = append(metas, a.Meta())
	}
	summaries := scorer.Summaries(top)

	rec, err := e.manager.Create(ctx, profile, metas, result, summaries)
	if err != nil {
		return nil, err
	}

	zap.L().Info("pipeline: estimate complete",
		zap.String("id", rec.ID),
		zap.Float64("amount", result.Amount),
		zap.String("method", string(result.Method)),
		zap.Int("comparables", len(ranked)),
	)
	return &CreateResult{
		EstimateID:      rec.ID,
		Estimate:        rec.Estimate,
		Property:        rec.Property,
		SimilarExamples: summaries,
	}, nil
}

// SubmitFeedback applies a human correction. Zero external round trips.
func (e *Engine) SubmitFeedback(ctx context.Context, estimateID string, finalAmount float64, notes, source string) (*FeedbackResult, error) {
	rec, err := e.manager.SubmitFeedback(ctx, estimateID, finalAmount, notes, source)
	if err != nil {
		return nil, err
	}
	return &FeedbackResult{
		EstimateID:      rec.ID,
		Estimate:        rec.Estimate,
		FeedbackHistory: rec.FeedbackHistory,
	}, nil
}

// GetEstimate fetches a stored record by id.
func (e *Engine) GetEstimate(ctx context.Context, estimateID string) (*model.ComparableRecord, error) {
	return e.manager.Get(ctx, estimateID)
}
