package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sumika/estimator/internal/pipeline"
	"github.com/sumika/estimator/internal/store"
	"github.com/sumika/estimator/pkg/anthropic"
)

// initStore opens the configured record store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEngine wires the estimation pipeline over the configured store and
// Claude client. The client is left nil when no API key is configured;
// feedback and read paths still work, estimate creation reports the
// misconfiguration.
func initEngine(ctx context.Context) (*pipeline.Engine, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	var client anthropic.Client
	if cfg.Anthropic.Key != "" {
		client = anthropic.NewClient(cfg.Anthropic.Key, cfg.Anthropic.RPS)
	}

	engine := pipeline.NewEngine(st, client, pipeline.Options{
		Model:          cfg.Anthropic.Model,
		MaxTokens:      cfg.Anthropic.MaxTokens,
		RecentLimit:    cfg.Estimate.RecentLimit,
		TopComparables: cfg.Estimate.TopComparables,
		AreaRate:       cfg.Estimate.AreaRate,
		DefaultAreaSqm: cfg.Estimate.DefaultAreaSqm,
		MaxAttachments: cfg.Intake.MaxAttachments,
		MaxAttachSize:  cfg.Intake.MaxAttachmentSize,
	})
	return engine, st, nil
}
