package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matsen/citeas/internal/citation"
	"github.com/matsen/citeas/internal/classify"
	"github.com/matsen/citeas/internal/config"
	"github.com/matsen/citeas/internal/engine"
	"github.com/matsen/citeas/internal/extract"
	"github.com/matsen/citeas/internal/fetch"
	"github.com/matsen/citeas/internal/github"
	"github.com/matsen/citeas/internal/product"
	"github.com/matsen/citeas/internal/step"
	"github.com/matsen/citeas/internal/storage"
)

// app holds the wired service.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *step.Registry
	service  *product.Service
	db       *storage.DB
}

// loadConfig reads --config, or the global config file.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(config.ExpandPath(configFile))
	}
	return config.LoadGlobalConfig()
}

// newLogger builds a production logger, or a development one with --debug.
// quiet raises the production level to warn for one-shot commands.
func newLogger(quiet bool) (*zap.Logger, error) {
	if debugLog {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	if quiet {
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return zc.Build()
}

// newApp wires the fetch layer, extractors, engine and renderer from cfg.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var cacheOpts []fetch.CacheOption
	cacheOpts = append(cacheOpts, fetch.WithCacheLogger(logger.Named("cache")))
	if cfg.CacheDB != "" {
		db, err := storage.OpenDB(cfg.CacheDB)
		if err != nil {
			return nil, fmt.Errorf("opening response cache: %w", err)
		}
		a.db = db
		cacheOpts = append(cacheOpts, fetch.WithPersister(db))
	}

	fc := fetch.NewClient(
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithTimeout(cfg.FetchTimeout.Std()),
		fetch.WithRateLimit(cfg.RateLimitPerHost),
		fetch.WithCache(fetch.NewCache(cfg.CacheSize, cfg.CacheTTL.Std(), cacheOpts...)),
		fetch.WithLogger(logger.Named("fetch")),
	)

	creds, err := github.ParseTokens(strings.Join(cfg.GitHubTokens, ","))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("parsing github_tokens: %w", err)
	}
	gh := github.NewClient(fc,
		github.WithTokenPool(github.NewTokenPool(creds)),
		github.WithLogger(logger.Named("github")),
	)

	sources := extract.New(fc, gh, extract.WithLogger(logger.Named("extract")))
	reg, err := extract.NewRegistry(sources)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building step registry: %w", err)
	}
	a.registry = reg

	classifier := classify.New(fc,
		classify.WithSearcher(classify.NewDuckDuckGo(fc, cfg.SearchURL)),
		classify.WithProbeTimeout(cfg.ProbeTimeout.Std()),
		classify.WithLogger(logger.Named("classify")),
	)
	eng := engine.New(reg, engine.WithLogger(logger.Named("engine")))
	a.service = product.New(classifier, eng,
		product.WithTimeout(cfg.ResolveTimeout.Std()),
		product.WithRenderer(citation.NewRenderer(citation.WithLogger(logger.Named("citation")))),
		product.WithLogger(logger),
	)

	logger.Debug("service wired",
		zap.Int("github_tokens", len(creds)),
		zap.Bool("persisted_cache", a.db != nil),
		zap.Int("step_kinds", len(reg.Names())))
	return a, nil
}

// Close releases the persisted cache.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing response cache", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// setup loads config and wires the app, exiting on failure.
func setup(quiet bool) *app {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	logger, err := newLogger(quiet)
	if err != nil {
		exitWithError(ExitError, "building logger: %v", err)
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return a
}
