// Package setup assembles the engine from configuration and provides
// installer utilities for MCP host integration. All three binaries
// build their stack through BuildEngine so wiring stays in one place.
package setup

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/cache"
	"github.com/drug-repurposing-engine/internal/config"
	"github.com/drug-repurposing-engine/internal/corpus"
	"github.com/drug-repurposing-engine/internal/curated"
	"github.com/drug-repurposing-engine/internal/database"
	"github.com/drug-repurposing-engine/internal/explain"
	"github.com/drug-repurposing-engine/internal/history"
	"github.com/drug-repurposing-engine/internal/service"
	"github.com/drug-repurposing-engine/pkg/external"
)

// Engine bundles the assembled collaborators plus the resources that
// need closing at shutdown.
type Engine struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Client   *external.ResilientClient
	Library  *curated.Library
	Corpus   *corpus.Source
	History  history.Store
	Resolver *service.DiseaseResolver
	Analysis *service.AnalysisService

	db *database.DB
}

// engineGateway serves candidate generation from the corpus warehouse
// while every other upstream call goes through the resilient client.
type engineGateway struct {
	*external.ResilientClient
	corpus *corpus.Source
}

func (g *engineGateway) DrugCorpus(ctx context.Context, limit int) ([]external.DrugEntry, error) {
	return g.corpus.DrugCorpus(ctx, limit)
}

// BuildEngine wires the full pipeline from configuration. The notifier
// is optional; pass nil for binaries without a progress stream.
func BuildEngine(ctx context.Context, cfg *config.Config, logger *logrus.Logger, notifier service.ProgressNotifier) (*Engine, error) {
	library, err := curated.Load()
	if err != nil {
		return nil, fmt.Errorf("loading curated library: %w", err)
	}

	// Redis is an acceleration layer; a missing instance degrades to
	// uncached upstream calls rather than failing startup.
	var cacheClient *external.CacheClient
	if cfg.Cache.Backend == "redis" {
		cacheClient, err = external.NewCacheClient(cfg.Cache.RedisURL, cfg.Cache.DiseaseTTL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, continuing without response cache")
			cacheClient = nil
		}
	}

	client := external.NewResilientClient(cfg.Sources, cfg.Breaker, cfg.Cache, cacheClient, logger)

	engine := &Engine{
		Config:  cfg,
		Logger:  logger,
		Client:  client,
		Library: library,
	}

	var warehouse corpus.Warehouse
	if cfg.Corpus.Enabled {
		db, err := database.NewConnection(ctx, cfg.Corpus.URL, int32(cfg.Corpus.MaxConns), logger)
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("connecting corpus warehouse: %w", err)
		}
		engine.db = db

		if cfg.Corpus.MigrateOnStart {
			runner, err := database.NewMigrationRunner(cfg.Corpus.URL, logger)
			if err != nil {
				engine.Close()
				return nil, fmt.Errorf("preparing corpus migrations: %w", err)
			}
			err = runner.Up(ctx)
			runner.Close()
			if err != nil {
				engine.Close()
				return nil, fmt.Errorf("migrating corpus warehouse: %w", err)
			}
		}
		warehouse = corpus.NewPostgresWarehouse(db.Pool, logger)
	} else {
		warehouse = corpus.NewMemoryWarehouse()
	}
	engine.Corpus = corpus.NewSource(warehouse, client, cfg.Cache.CorpusTTL, logger)

	store, err := buildHistoryStore(cfg.History)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	engine.History = store

	gateway := &engineGateway{ResilientClient: client, corpus: engine.Corpus}
	// Hot diseases sit in a bounded LRU in front of the TTL store; the
	// coalescer collapses concurrent misses into one upstream fetch.
	diseaseCache := cache.NewLayeredCache(
		cache.NewLRUCache(cfg.Cache.LRUSize, cfg.Cache.DiseaseTTL),
		cache.NewMemoryCache(cfg.Cache.DiseaseTTL, 2*cfg.Cache.DiseaseTTL),
	)
	loader := cache.NewCoalescingLoader(diseaseCache)
	resolver := service.NewDiseaseResolver(gateway, library, loader, cfg.Cache.DiseaseTTL, logger)
	engine.Resolver = resolver

	engine.Analysis = service.NewAnalysisService(service.AnalysisDeps{
		Resolver:  resolver,
		Generator: service.NewCandidateGenerator(gateway, library, 0, logger),
		Filter:    service.NewContraindicationFilter(library, logger),
		Scorer:    service.NewScorer(cfg.Scoring, logger),
		Validator: service.NewClinicalValidator(gateway, resolver, library, logger),
		Explainer: buildExplainer(cfg.LLM, logger),
		History:   store,
		Notifier:  notifier,
	}, logger)

	return engine, nil
}

func buildHistoryStore(cfg config.HistoryConfig) (history.Store, error) {
	switch cfg.Backend {
	case "postgres":
		return history.NewPostgresStoreFromURL(historyDSN(cfg))
	default:
		return history.NewSQLiteStore(cfg.SQLitePath)
	}
}

func historyDSN(cfg config.HistoryConfig) string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, cfg.SSLMode)
}

func buildExplainer(cfg config.LLMConfig, logger *logrus.Logger) explain.Provider {
	if cfg.Enabled {
		provider, err := explain.NewOpenAIProvider(cfg, logger)
		if err != nil {
			logger.WithError(err).Warn("LLM explainer unavailable, using rule-based explanations")
		} else {
			return provider
		}
	}
	return explain.NewHeuristicProvider()
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// Close releases every resource the engine holds. Safe to call on a
// partially built engine.
func (e *Engine) Close() {
	if e.History != nil {
		if err := e.History.Close(); err != nil {
			e.Logger.WithError(err).Error("Failed to close history store")
		}
	}
	if e.db != nil {
		e.db.Close()
	}
	// The resilient client owns the Redis connection and closes it.
	if e.Client != nil {
		if err := e.Client.Close(); err != nil {
			e.Logger.WithError(err).Error("Failed to close upstream clients")
		}
	}
}
