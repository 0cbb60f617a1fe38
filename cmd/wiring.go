package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/okian/plotpath/internal/adapters/extraction"
	"github.com/okian/plotpath/internal/adapters/extraction/gemini"
	"github.com/okian/plotpath/internal/adapters/persistence/postgres"
	"github.com/okian/plotpath/internal/adapters/persistence/redis"
	"github.com/okian/plotpath/internal/app"
	"github.com/okian/plotpath/internal/config"
	"github.com/okian/plotpath/pkg/logger"
)

var errMissingAPIKey = errors.New("extraction api key is not set")

// buildService assembles the engine and its adapters from cfg. The returned
// cleanup closes every adapter that was opened.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	opts, err := app.ConfigOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, app.WithLogger(log.Named("service")))

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	researcher, extractor, err := buildExtraction(ctx, cfg.Extraction)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, app.WithResearcher(researcher), app.WithExtractor(extractor))

	if cfg.Postgres.DSN != "" {
		store, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = store.Close() })
		if err := store.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, app.WithLoader(store), app.WithWriter(store))
		log.Info(ctx, "postgres persistence enabled", logger.Int("max_conns", cfg.Postgres.MaxConns))
	}

	if cfg.Redis.Addr != "" {
		snapshots := redis.New(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.SnapshotTTL(),
		}, log.Named("redis"))
		closers = append(closers, func() { _ = snapshots.Close() })
		opts = append(opts, app.WithPublisher(snapshots))
		log.Info(ctx, "redis snapshot cache configured",
			logger.String("addr", cfg.Redis.Addr), logger.Bool("available", snapshots.Available()))
	}

	return app.New(opts...), cleanup, nil
}

// buildExtraction returns the research oracle and requirement extractor for
// the configured provider. The static provider answers nothing for research
// and parses "required:" / "preferred:" lines from postings.
func buildExtraction(ctx context.Context, cfg config.ExtractionConfig) (extraction.Researcher, extraction.RequirementExtractor, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, nil, fmt.Errorf("%w: $%s", errMissingAPIKey, cfg.APIKeyEnv)
		}
		gen, err := gemini.NewGenerator(ctx, key, cfg.Model,
			gemini.WithTemperature(cfg.Temperature),
			gemini.WithMaxTokens(cfg.MaxTokens),
		)
		if err != nil {
			return nil, nil, err
		}
		return extraction.NewLLMResearcher(gen, "gemini:"+gen.Model()),
			extraction.NewLLMExtractor(gen, cfg.MaxTextLength), nil
	default:
		return extraction.NewStaticResearcher(), extraction.LineExtractor{}, nil
	}
}
