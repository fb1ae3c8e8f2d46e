package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/config"
	"github.com/kapu/game-character-etl/internal/constants"
	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/service/cache"
	"github.com/kapu/game-character-etl/internal/service/cleaner"
	"github.com/kapu/game-character-etl/internal/service/console"
	"github.com/kapu/game-character-etl/internal/service/database"
	"github.com/kapu/game-character-etl/internal/service/export"
	"github.com/kapu/game-character-etl/internal/service/fetcher"
	"github.com/kapu/game-character-etl/internal/service/loader"
	"github.com/kapu/game-character-etl/internal/service/schema"
)

// Container bundles the assembled services used by the etl and console
// binaries.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Catalog     *domain.Catalog
	Corrections *domain.CorrectionTable
	Fetcher     fetcher.Fetcher
	Store       *export.Store
	Cleaner     *cleaner.Cleaner
	Builder     *schema.Builder
	Databases   *database.Manager
	Loader      *loader.Loader
	Console     *console.Service

	closers []func()
}

// Build assembles every service. The page cache is optional: when Redis is
// enabled but unreachable the fetcher runs uncached.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	catalog, err := domain.LoadCatalog(cfg.Paths.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load game catalog: %w", err)
	}
	corrections, err := domain.LoadCorrections(cfg.Paths.CorrectionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections: %w", err)
	}
	logger.Info("Catalog loaded",
		zap.Int("games", len(catalog.Games)),
		zap.Int("corrections", len(corrections.Corrections)))

	// Fetch chain: cache -> breaker -> throttle -> HTTP
	var pages fetcher.Fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPConfig{
		Timeout:    cfg.Scrape.Timeout,
		UserAgents: constants.UserAgents,
	}, logger)
	if cfg.Scrape.Throttle {
		pages = fetcher.NewThrottledFetcher(pages, cfg.Scrape.DelayMin, cfg.Scrape.DelayMax, logger)
	}
	pages = fetcher.NewBreakerFetcher(pages, cfg.Scrape.BreakerThreshold, cfg.Scrape.BreakerReset, logger)
	if cfg.Redis.Enabled {
		pageCache, cacheErr := cache.NewPageCache(ctx, cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.PageTTL,
		}, logger)
		if cacheErr != nil {
			logger.Warn("Page cache unavailable, fetching uncached", zap.Error(cacheErr))
		} else {
			closers = append(closers, func() {
				_ = pageCache.Close()
			})
			pages = fetcher.NewCachingFetcher(pages, pageCache, logger)
		}
	}

	dbs, err := database.NewManager(database.Config{
		Driver: cfg.Database.Driver,
		Postgres: database.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
		},
		SQLiteDir: cfg.Database.SQLiteDir,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	closers = append(closers, func() {
		_ = dbs.Close()
	})

	consoleSvc := console.NewService(catalog, dbs, console.Config{
		QueryTimeout: cfg.Console.QueryTimeout,
		MaxRows:      cfg.Console.MaxRows,
	}, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Catalog:     catalog,
		Corrections: corrections,
		Fetcher:     pages,
		Store:       export.NewStore(cfg.Paths.WorkDir, logger),
		Cleaner:     cleaner.New(corrections, logger),
		Builder:     schema.NewBuilder(logger),
		Databases:   dbs,
		Loader:      loader.New(dbs, logger),
		Console:     consoleSvc,
		closers:     closers,
	}, nil
}

// NewPipeline wires a pipeline from the container services.
func (c *Container) NewPipeline() (*Pipeline, error) {
	if c == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	return NewPipeline(PipelineDeps{
		Catalog:    c.Catalog,
		Fetcher:    c.Fetcher,
		InputDir:   c.Config.Paths.InputDir,
		Store:      c.Store,
		Cleaner:    c.Cleaner,
		Builder:    c.Builder,
		Loader:     c.Loader,
		Retries:    c.Config.Pipeline.Retries,
		RetryDelay: c.Config.Pipeline.RetryDelay,
		Logger:     c.Logger,
	})
}

// Close releases pools and connections in reverse creation order.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
