package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/GyroZepelix/mithril-studio/internal/cache"
	"github.com/GyroZepelix/mithril-studio/internal/config"
	"github.com/GyroZepelix/mithril-studio/internal/contenttypes"
	"github.com/GyroZepelix/mithril-studio/internal/legacy"
)

// pipeline is the configured legacy source and the normalizing service on
// top of it.
type pipeline struct {
	service *contenttypes.Service

	// cached and rdb are nil when no Redis URL is configured.
	cached *cache.Source
	rdb    *redis.Client
}

func newPipeline(cfg *config.Config) (*pipeline, error) {
	if err := cfg.RequireLegacySource(); err != nil {
		return nil, err
	}

	var source legacy.Source
	if cfg.Legacy.FixturesDir != "" {
		source = legacy.NewDirSource(cfg.Legacy.FixturesDir)
		slog.Info("reading legacy documents from fixtures", "dir", cfg.Legacy.FixturesDir)
	} else {
		source = legacy.NewClient(cfg.Legacy.BaseURL,
			legacy.WithTimeout(cfg.Legacy.Timeout),
			legacy.WithHeaders(cfg.Legacy.Headers),
		)
		slog.Info("reading legacy documents from service", "base_url", cfg.Legacy.BaseURL)
	}

	p := &pipeline{}
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		p.rdb = redis.NewClient(opts)
		p.cached = cache.New(source, p.rdb, cfg.Redis.CacheTTL)
		source = p.cached
		slog.Info("legacy document cache enabled", "addr", opts.Addr, "ttl", cfg.Redis.CacheTTL.String())
	}

	p.service = contenttypes.NewService(source, cfg.FetchConcurrency)
	return p, nil
}

// invalidator returns the cache as a contenttypes.Invalidator, or a nil
// interface when caching is off.
func (p *pipeline) invalidator() contenttypes.Invalidator {
	if p.cached == nil {
		return nil
	}
	return p.cached
}

func (p *pipeline) redisHealth(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *pipeline) Close() error {
	if p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
