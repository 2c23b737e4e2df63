// Package cache fronts a legacy.Source with a Redis cache of the raw legacy
// documents. Normalization still runs on every call; only the network round
// trips to the legacy service are saved.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GyroZepelix/mithril-studio/internal/legacy"
	"github.com/GyroZepelix/mithril-studio/internal/metrics"
)

const (
	keyPrefix = "studio:legacy:"

	kindContentType    = "content-type"
	kindContentTypes   = "content-types"
	kindFormDefinition = "form-definition"

	scanBatch = 200
)

// Source is a caching legacy.Source. Cache failures never fail a fetch: they
// are logged and the inner source is used instead.
type Source struct {
	inner legacy.Source
	rdb   *redis.Client
	ttl   time.Duration
}

// New wraps inner with a Redis cache whose entries expire after ttl.
func New(inner legacy.Source, rdb *redis.Client, ttl time.Duration) *Source {
	return &Source{inner: inner, rdb: rdb, ttl: ttl}
}

// ContentType implements legacy.Source.
func (s *Source) ContentType(ctx context.Context, site, contentTypeID string) (*legacy.ContentType, error) {
	var ct *legacy.ContentType
	err := s.load(ctx, cacheKey(site, kindContentType, contentTypeID), kindContentType, &ct, func() (any, error) {
		return s.inner.ContentType(ctx, site, contentTypeID)
	})
	if err != nil {
		return nil, err
	}
	return ct, nil
}

// ContentTypes implements legacy.Source.
func (s *Source) ContentTypes(ctx context.Context, site, path string) ([]legacy.ContentType, error) {
	var list []legacy.ContentType
	err := s.load(ctx, cacheKey(site, kindContentTypes, path), kindContentTypes, &list, func() (any, error) {
		return s.inner.ContentTypes(ctx, site, path)
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []legacy.ContentType{}
	}
	return list, nil
}

// FormDefinition implements legacy.Source.
func (s *Source) FormDefinition(ctx context.Context, site, contentTypeID string) (*legacy.FormDefinition, error) {
	var def *legacy.FormDefinition
	err := s.load(ctx, cacheKey(site, kindFormDefinition, contentTypeID), kindFormDefinition, &def, func() (any, error) {
		return s.inner.FormDefinition(ctx, site, contentTypeID)
	})
	if err != nil {
		return nil, err
	}
	return def, nil
}

// Invalidate removes every cached document of site.
func (s *Source) Invalidate(ctx context.Context, site string) error {
	pattern := keyPrefix + globEscaper.Replace(site) + ":*"
	iter := s.rdb.Scan(ctx, 0, pattern, scanBatch).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache keys for site %q: %w", site, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting cache keys for site %q: %w", site, err)
	}

	slog.Info("legacy cache invalidated", "site", site, "keys", len(keys))
	return nil
}

// load decodes the cached document at key into dst, or calls fetch and
// caches its result. Fetch errors are returned unchanged and never cached.
func (s *Source) load(ctx context.Context, key, kind string, dst any, fetch func() (any, error)) error {
	cached, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		jsonErr := json.Unmarshal(cached, dst)
		if jsonErr == nil {
			metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
			return nil
		}
		slog.Warn("discarding undecodable cache entry", "key", key, "error", jsonErr)
	case !errors.Is(err, redis.Nil):
		slog.Warn("legacy cache read failed", "key", key, "error", err)
	}
	metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()

	value, err := fetch()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s for cache: %w", kind, err)
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		slog.Warn("legacy cache write failed", "key", key, "error", err)
	}
	return json.Unmarshal(data, dst)
}

// globEscaper quotes the SCAN MATCH metacharacters so a site name only
// matches itself.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func cacheKey(site, kind, id string) string {
	return keyPrefix + site + ":" + kind + ":" + id
}
