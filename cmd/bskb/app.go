package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bskb/internal/assemble"
	"bskb/internal/config"
	"bskb/internal/graph"
	"bskb/internal/llm"
	"bskb/internal/logging"
	"bskb/internal/model"
	"bskb/internal/search"
	"bskb/internal/storage"
)

// app bundles everything a command needs. Built per invocation;
// collaborators are wired explicitly so tests can substitute any of
// them.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	db        *storage.DB
	embedder  *llm.OllamaClient
	analyzer  *graph.Analyzer
	searcher  *search.Orchestrator
	assembler *assemble.Assembler
}

// newLogger creates the command logger from the persistent flags.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logging.ParseLevel(logLevelFlag),
	})
}

// buildApp loads configuration from the working directory and wires the
// full pipeline.
func buildApp(logger *logging.Logger) (*app, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}

	storePath := cfg.Store.Path
	if !filepath.IsAbs(storePath) {
		storePath = filepath.Join(root, storePath)
	}
	db, err := storage.Open(storePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	analyzer := graph.NewAnalyzer(db, logger)

	embedder := llm.NewOllamaClient(llm.OllamaConfig{
		Endpoint:   cfg.Embedding.Endpoint,
		EmbedModel: cfg.Embedding.Model,
		Timeout:    time.Duration(cfg.Timeouts.VectorMs) * time.Millisecond,
	})

	var ranker search.IntentRanker
	if cfg.Inference.Enabled {
		generator := llm.NewOllamaClient(llm.OllamaConfig{
			Endpoint:    cfg.Inference.Endpoint,
			Model:       cfg.Inference.Model,
			Temperature: cfg.Inference.Temperature,
			MaxTokens:   cfg.Inference.MaxTokens,
			Timeout:     time.Duration(cfg.Timeouts.InferenceMs) * time.Millisecond,
		})
		ranker = llm.NewRanker(generator, logger)
	}

	var cache search.ResponseCache
	if cfg.Cache.Enabled {
		cache = storage.NewCache(db)
	}

	searcher := search.NewOrchestrator(embedder, db, db, analyzer, ranker, cache, search.Options{
		VectorTimeout: time.Duration(cfg.Timeouts.VectorMs) * time.Millisecond,
		GraphTimeout:  time.Duration(cfg.Timeouts.GraphMs) * time.Millisecond,
		CacheTTL:      time.Duration(cfg.Cache.TtlSeconds) * time.Second,
		Weights: search.Weights{
			model.SourceSemantic: cfg.Fusion.SemanticWeight,
			model.SourceGraph:    cfg.Fusion.GraphWeight,
			model.SourceHybrid:   1.0,
		},
	}, logger)

	assembler := assemble.NewAssembler(searcher, analyzer, ranker, nil, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		embedder:  embedder,
		analyzer:  analyzer,
		searcher:  searcher,
		assembler: assembler,
	}, nil
}

// mustBuildApp builds the app or exits on error.
func mustBuildApp(logger *logging.Logger) *app {
	a, err := buildApp(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}
	return a
}

// Close releases the store.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close store", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
