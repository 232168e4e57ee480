// Package app wires configuration into a ready-to-run sync pipeline.
package app

import (
	"context"
	"strconv"

	"nhl_stats/ingestion/internal/cache"
	"nhl_stats/ingestion/internal/client"
	"nhl_stats/ingestion/internal/config"
	"nhl_stats/ingestion/internal/pipeline"
	"nhl_stats/ingestion/internal/repository"
	"nhl_stats/ingestion/internal/transform"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// App holds the long-lived dependencies of a sync process
type App struct {
	Config       *config.Config
	DB           *repository.Database
	Cache        *cache.RedisCache
	Client       *client.NHLClient
	Orchestrator *pipeline.Orchestrator
}

// Overrides adjusts sync settings from command-line flags
type Overrides struct {
	Workers  *int
	Extended *bool
}

// New connects to storage and builds the orchestrator. Redis is optional: a
// failed connection is logged and the sync runs uncached.
func New(ctx context.Context, cfg *config.Config, overrides Overrides) (*App, error) {
	a := &App{Config: cfg}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	a.DB = db
	log.Info().Msg("Database connection established")

	fetcherOpts := []client.FetcherOption{
		client.WithRetryPolicy(cfg.FetchMaxRetries, cfg.FetchBackoffFactor, cfg.FetchTimeout),
		client.WithRateLimit(cfg.APIRateLimit, cfg.APIBurstLimit),
	}

	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTLResponses,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			a.Cache = redisCache
			fetcherOpts = append(fetcherOpts, client.WithCache(redisCache))
			log.Info().Msg("Redis cache connected")
		}
	}

	fetcher := client.NewFetcher(fetcherOpts...)
	a.Client = client.NewNHLClient(cfg.NHLStatsAPIURL, cfg.NHLWebAPIURL, fetcher, nil)

	workers := cfg.SyncWorkers
	if overrides.Workers != nil {
		workers = *overrides.Workers
	}
	extended := cfg.SyncExtendedStages
	if overrides.Extended != nil {
		extended = *overrides.Extended
	}

	a.Orchestrator = pipeline.New(
		a.Client,
		pipeline.NewStore(db),
		transform.New(cfg.SeasonThreshold),
		pipeline.WithWorkers(workers),
		pipeline.WithExtendedStages(extended),
		pipeline.WithGamesSeasonLimit(cfg.SyncGamesSeasonLimit),
	)

	log.Info().
		Int("workers", workers).
		Bool("extended", extended).
		Int("season_threshold", cfg.SeasonThreshold).
		Msg("Sync pipeline ready")

	return a, nil
}

// Close releases the database pool and the cache connection
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis cache")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
