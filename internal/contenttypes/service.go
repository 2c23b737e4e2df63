package contenttypes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/GyroZepelix/mithril-studio/internal/legacy"
	"github.com/GyroZepelix/mithril-studio/internal/metrics"
	"github.com/GyroZepelix/mithril-studio/internal/schema"
)

// LevelDescriptorID is the catalog entry that is never exposed as a content
// type.
const LevelDescriptorID = "/component/level-descriptor"

// DefaultConcurrency bounds the per-catalog form definition fan-out when no
// limit is configured.
const DefaultConcurrency = 8

// Query filters a catalog fetch.
type Query struct {
	// Type keeps only descriptors of this type (exact match) when set.
	Type string

	// Path limits the legacy catalog to a repository path when set.
	Path string
}

// Service fetches legacy documents and normalizes them into content types.
// It holds no per-request state; every call builds fresh values.
type Service struct {
	source      legacy.Source
	concurrency int
}

// NewService creates a Service reading from source. A concurrency below 1
// uses DefaultConcurrency.
func NewService(source legacy.Source, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Service{source: source, concurrency: concurrency}
}

// FetchContentType fetches the descriptor and the form definition of one
// content type concurrently and merges them; definition values win.
func (s *Service) FetchContentType(ctx context.Context, site, contentTypeID string) (schema.ContentType, error) {
	var (
		descriptor *legacy.ContentType
		definition *schema.Definition
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.source.ContentType(gctx, site, contentTypeID)
		if err != nil {
			return fmt.Errorf("fetching content type %q: %w", contentTypeID, err)
		}
		if d == nil {
			return fmt.Errorf("fetching content type %q: %w", contentTypeID, legacy.ErrNotFound)
		}
		descriptor = d
		return nil
	})
	g.Go(func() error {
		def, err := s.fetchDefinition(gctx, site, contentTypeID)
		if err != nil {
			return err
		}
		definition = def
		return nil
	})
	if err := g.Wait(); err != nil {
		return schema.ContentType{}, err
	}

	metrics.ContentTypesServed.WithLabelValues("fetch_content_type").Inc()
	return schema.ParseLegacyContentType(*descriptor).Merge(definition), nil
}

// FetchContentTypes fetches a site's catalog, drops the level descriptor,
// applies the query, and merges every remaining type with its form
// definition. Definitions are fetched concurrently and joined back by id, so
// the result keeps catalog order regardless of completion order. The first
// failure cancels the outstanding fetches and no partial result is returned.
func (s *Service) FetchContentTypes(ctx context.Context, site string, q Query) ([]schema.ContentType, error) {
	catalog, err := s.source.ContentTypes(ctx, site, q.Path)
	if err != nil {
		return nil, fmt.Errorf("fetching content types for site %q: %w", site, err)
	}

	types := make([]schema.ContentType, 0, len(catalog))
	for _, lt := range catalog {
		if isLevelDescriptor(lt) {
			continue
		}
		if q.Type != "" && lt.Type != q.Type {
			continue
		}
		types = append(types, schema.ParseLegacyContentType(lt))
	}

	var mu sync.Mutex
	definitions := make(map[string]*schema.Definition, len(types))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	requested := make(map[string]bool, len(types))
	for _, ct := range types {
		if requested[ct.ID] {
			continue
		}
		requested[ct.ID] = true

		id := ct.ID
		g.Go(func() error {
			def, err := s.fetchDefinition(gctx, site, id)
			if err != nil {
				return err
			}
			mu.Lock()
			definitions[id] = def
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A catalog may list an id more than once; every later entry gets its own
	// copy of the shared definition.
	merged := make(map[string]bool, len(definitions))
	result := make([]schema.ContentType, 0, len(types))
	for _, ct := range types {
		def := definitions[ct.ID]
		if merged[ct.ID] {
			def = def.Clone()
		}
		merged[ct.ID] = true
		result = append(result, ct.Merge(def))
	}

	slog.Debug("content types normalized",
		"site", site,
		"type", q.Type,
		"catalog", len(catalog),
		"count", len(result),
	)
	metrics.ContentTypesServed.WithLabelValues("fetch_content_types").Add(float64(len(result)))
	return result, nil
}

// fetchDefinition fetches and parses one form definition.
func (s *Service) fetchDefinition(ctx context.Context, site, contentTypeID string) (*schema.Definition, error) {
	raw, err := s.source.FormDefinition(ctx, site, contentTypeID)
	if err != nil {
		return nil, fmt.Errorf("fetching form definition %q: %w", contentTypeID, err)
	}
	def, err := schema.ParseLegacyFormDef(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing form definition %q: %w", contentTypeID, err)
	}
	return def, nil
}

func isLevelDescriptor(ct legacy.ContentType) bool {
	return ct.Name == LevelDescriptorID || ct.Form == LevelDescriptorID
}
