package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/okian/etaflow/internal/adapters/collector"
	"github.com/okian/etaflow/internal/adapters/sources"
	service "github.com/okian/etaflow/internal/app"
	"github.com/okian/etaflow/internal/config"
	"github.com/okian/etaflow/internal/domain/cache"
	"github.com/okian/etaflow/internal/domain/model"
	"github.com/okian/etaflow/internal/domain/source"
	"github.com/okian/etaflow/pkg/logger"
)

// pipeline is the composed orchestrator plus what must be released with it.
type pipeline struct {
	orch *service.Orchestrator
	db   *sql.DB
}

func (p *pipeline) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// buildPipeline wires concrete providers behind the registry. Every source
// starts simulated; a configured URL or historical DSN replaces the
// simulator for that source.
func buildPipeline(ctx context.Context, cfg *config.Config, log logger.Logger) (*pipeline, error) {
	p := &pipeline{}

	opts := sources.NewSimulator().Options()
	for t, url := range cfg.SourceURLs() {
		f, err := sources.NewHTTPFetcher(url)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", t, err)
		}
		opts = append(opts, source.WithFetcher(t, f))
		log.Info(ctx, "using HTTP provider", logger.String("source", string(t)), logger.String("url", url))
	}

	if cfg.HistoricalDSN != "" {
		db, err := sources.OpenPostgres(ctx, cfg.HistoricalDSN)
		if err != nil {
			return nil, err
		}
		p.db = db
		opts = append(opts, source.WithFetcher(model.SourceHistorical, sources.NewSQLHistorical(db)))
		log.Info(ctx, "using postgres historical provider")
	}

	overrides, err := cfg.SourceOptions()
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	reg, err := source.NewRegistry(append(opts, overrides...)...)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	store := cache.NewMemoryStore(
		cache.WithShardCount(cfg.CacheShardCount),
		cache.WithStaleRetention(cfg.StaleRetention()),
	)

	p.orch = service.New(reg, store,
		service.WithLogger(log.Named("pipeline")),
		service.WithSweepInterval(cfg.SweepInterval()),
		service.WithCollectorOptions(
			collector.WithMaxConcurrency(cfg.CollectorMaxConcurrency),
			collector.WithBackoff(cfg.RetryBackoff()),
		),
	)
	return p, nil
}
