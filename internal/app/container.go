// Package app assembles the service graph. Construction order follows the
// dependency chain: HTTP client and scrapers first, then the model clients,
// then the pipeline on top.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/config"
	"github.com/kapu/tsundoku-go/internal/llm"
	"github.com/kapu/tsundoku-go/internal/pipeline"
	"github.com/kapu/tsundoku-go/internal/scout"
	"github.com/kapu/tsundoku-go/internal/scraper"
	"github.com/kapu/tsundoku-go/internal/storage"
	"github.com/kapu/tsundoku-go/internal/translate"
)

type Container struct {
	Config *config.Config
	Logger *zap.Logger

	pipeline *pipeline.Pipeline
}

// Build wires every service. Gemini is optional: without an API key the
// scout falls back to the OpenAI-compatible endpoint alone.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	httpClient, err := scraper.NewClient(cfg.Scraper.Delay, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scraper client: %w", err)
	}

	if cfg.Scraper.CookiesDir != "" {
		path, err := scraper.LoadCookies(httpClient, cfg.Scraper.CookiesDir, logger, "pixiv")
		if err != nil {
			logger.Warn("Could not load pixiv cookies, login-only content will be unavailable",
				zap.String("dir", cfg.Scraper.CookiesDir),
				zap.Error(err))
		} else {
			logger.Info("Loaded pixiv cookies", zap.String("file", path))
		}
	}

	registry := scraper.NewRegistry(
		scraper.NewSyosetu(httpClient, logger),
		scraper.NewKakuyomu(httpClient, logger),
		scraper.NewPixiv(httpClient, logger),
	)

	translateClient := llm.NewClient(cfg.API.Key, cfg.API.BaseURL, cfg.API.Model, logger)
	scoutFallback := llm.NewClient(cfg.Scout.Key, cfg.Scout.BaseURL, cfg.Scout.Model, logger)

	// The interface must stay nil when Gemini is absent; a typed nil would
	// make the manager think a primary exists.
	var scoutPrimary llm.Completer
	if cfg.Gemini.APIKey != "" {
		provider, err := llm.NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
		if err != nil {
			logger.Warn("Gemini unavailable, scouting with the fallback endpoint only", zap.Error(err))
		} else {
			scoutPrimary = provider
		}
	}
	scoutManager := llm.NewManager(scoutPrimary, scoutFallback, logger)

	nameScout := scout.New(scoutManager, scout.Config{
		ChunkSize:    cfg.Scout.ChunkSize,
		Retries:      cfg.Scout.JSONRetries,
		RequestDelay: cfg.Scout.RequestDelay,
	}, logger)

	translator := translate.New(translateClient, translate.Config{
		ChunkSize:    cfg.Translate.ChunkSize,
		Retries:      cfg.Translate.MaxRetries,
		HistoryPairs: cfg.Translate.HistoryLength,
		RequestDelay: cfg.Translate.RequestDelay,
	}, logger)

	workspace := storage.NewWorkspace(cfg.Workspace.OutputDir, logger)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		pipeline: pipeline.New(registry, nameScout, translator, workspace, cfg, logger),
	}, nil
}

func (c *Container) Pipeline() *pipeline.Pipeline {
	return c.pipeline
}
