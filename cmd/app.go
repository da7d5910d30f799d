package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/xhad/seek/internal/types"
	"github.com/xhad/seek/pkg/cache"
	cfgPkg "github.com/xhad/seek/pkg/config"
	"github.com/xhad/seek/pkg/llm"
	"github.com/xhad/seek/pkg/pipeline"
	"github.com/xhad/seek/pkg/scraper"
	"github.com/xhad/seek/pkg/tracing"
)

// app holds the long-lived collaborators shared by every pipeline run.
type app struct {
	pipeline *pipeline.Pipeline
	closers  []func(context.Context) error
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			zap.L().Warn("Shutdown step failed", zap.Error(err))
		}
	}
}

// newApp wires the pipeline from config. onProgress, if set, is called for
// every page fetch.
func newApp(ctx context.Context, config *cfgPkg.Config, traceOut io.Writer, onProgress func(string)) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close(ctx)
		}
	}()

	shutdownTracing, err := tracing.Setup(config.Tracing.Enabled, traceOut)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	generator, err := llm.NewGenerator(llm.GeneratorConfig{
		Provider:  config.LLM.Provider,
		Model:     config.LLM.Model,
		BaseURL:   config.LLM.BaseURL,
		APIKey:    config.LLM.APIKey,
		MaxTokens: config.LLM.MaxTokens,
		Timeout:   config.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	embedderConfig := llm.EmbedderConfig{
		Provider:  config.Embedding.Provider,
		Model:     config.Embedding.Model,
		BaseURL:   config.Embedding.BaseURL,
		APIKey:    config.Embedding.APIKey,
		Dimension: config.Embedding.Dimension,
	}
	var embedder types.Embedder
	embedder, err = llm.NewEmbedder(embedderConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	if config.Cache.Enabled {
		backend, err := cache.NewRedisBackend(ctx, config.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return backend.Close() })
		embedder = cache.NewEmbedder(embedder, backend, cache.Config{
			Model: embedderConfig.ModelID(),
			TTL:   config.Cache.TTL,
		})
	}

	crawler, err := scraper.NewWithConfig(scraper.ScraperConfig{
		SearchURL:      config.Search.BaseURL,
		ResolveBase:    config.Search.ResolveBase,
		ResultSelector: config.Search.ResultSelector,
		UserAgent:      config.Search.UserAgent,
		SearchTimeout:  config.Search.Timeout,
		PageTimeout:    config.Search.PageTimeout,
		MaxDocuments:   config.Search.MaxDocuments,
		Workers:        config.Search.Workers,
		RateLimit:      config.Search.RateLimit,
		OnProgress:     onProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error {
		crawler.Close()
		return nil
	})

	a.pipeline = pipeline.New(
		llm.NewQueryCorrector(generator, llm.CorrectorConfig{}),
		crawler,
		embedder,
		llm.NewChatEngine(generator, llm.ChatConfig{Temperature: config.LLM.Temperature}),
		pipeline.Config{
			TopK:         config.Retrieval.TopK,
			EmbedTimeout: config.Embedding.Timeout,
		},
	)

	ok = true
	return a, nil
}
