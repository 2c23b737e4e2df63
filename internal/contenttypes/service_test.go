package contenttypes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/GyroZepelix/mithril-studio/internal/legacy"
	"github.com/GyroZepelix/mithril-studio/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves in-memory legacy documents. delays slow individual form
// definition fetches so completion order differs from catalog order.
type fakeSource struct {
	catalog     []legacy.ContentType
	catalogErr  error
	definitions map[string]*legacy.FormDefinition
	defErrs     map[string]error
	delays      map[string]time.Duration

	mu        sync.Mutex
	requested []string
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *fakeSource) ContentType(ctx context.Context, site, id string) (*legacy.ContentType, error) {
	for i := range f.catalog {
		if f.catalog[i].Form == id {
			ct := f.catalog[i]
			return &ct, nil
		}
	}
	return nil, &legacy.StatusError{Endpoint: "get-content-type", StatusCode: 404}
}

func (f *fakeSource) ContentTypes(ctx context.Context, site, path string) ([]legacy.ContentType, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

func (f *fakeSource) FormDefinition(ctx context.Context, site, id string) (*legacy.FormDefinition, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.requested = append(f.requested, id)
	f.mu.Unlock()

	if d := f.delays[id]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.defErrs[id]; err != nil {
		return nil, err
	}
	return f.definitions[id], nil
}

func descriptor(id, label, typ string) legacy.ContentType {
	return legacy.ContentType{Form: id, Name: id, Label: label, Type: typ}
}

func singleFieldDef(fieldID string) *legacy.FormDefinition {
	return &legacy.FormDefinition{
		Sections: &legacy.Sections{Section: legacy.List[legacy.Section]{{
			Title: "Main",
			Fields: &legacy.Fields{Field: legacy.List[legacy.Field]{{
				ID: fieldID, Type: "input", Title: "Title",
			}}},
		}}},
	}
}

func newFixtureSource() *fakeSource {
	return &fakeSource{
		catalog: []legacy.ContentType{
			descriptor(LevelDescriptorID, "Component - Level Descriptor", "component"),
			descriptor("/page/home", "Home", "page"),
			descriptor("/component/banner", "Component - Banner", "component"),
			descriptor("/page/article", "Article", "page"),
		},
		definitions: map[string]*legacy.FormDefinition{
			"/page/home":        singleFieldDef("home_t"),
			"/component/banner": singleFieldDef("banner_t"),
			"/page/article":     singleFieldDef("article_t"),
		},
		delays: map[string]time.Duration{
			"/page/home":        30 * time.Millisecond,
			"/component/banner": 10 * time.Millisecond,
		},
	}
}

func ids(types []schema.ContentType) []string {
	out := make([]string, 0, len(types))
	for _, ct := range types {
		out = append(out, ct.ID)
	}
	return out
}

func TestFetchContentTypes_KeepsCatalogOrder(t *testing.T) {
	src := newFixtureSource()
	svc := NewService(src, 4)

	types, err := svc.FetchContentTypes(context.Background(), "editorial", Query{})
	if err != nil {
		t.Fatalf("FetchContentTypes: unexpected error: %v", err)
	}

	want := []string{"/page/home", "/component/banner", "/page/article"}
	if diff := cmp.Diff(want, ids(types)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	for _, ct := range types {
		if len(ct.Fields) != 1 {
			t.Errorf("%s: len(Fields) = %d, want 1", ct.ID, len(ct.Fields))
		}
	}
	if _, ok := types[1].Fields["banner_t"]; !ok {
		t.Errorf("banner merged with the wrong definition: %v", types[1].Fields)
	}
	if types[1].Name != "Banner" {
		t.Errorf("banner Name = %q, want %q", types[1].Name, "Banner")
	}
}

func TestFetchContentTypes_ExcludesLevelDescriptor(t *testing.T) {
	for _, pos := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("position %d", pos), func(t *testing.T) {
			src := newFixtureSource()
			rest := src.catalog[1:]
			catalog := append([]legacy.ContentType{}, rest[:pos]...)
			catalog = append(catalog, descriptor(LevelDescriptorID, "Level", "component"))
			catalog = append(catalog, rest[pos:]...)
			src.catalog = catalog

			for _, q := range []Query{{}, {Type: "component"}} {
				types, err := NewService(src, 2).FetchContentTypes(context.Background(), "editorial", q)
				if err != nil {
					t.Fatalf("FetchContentTypes: unexpected error: %v", err)
				}
				for _, id := range ids(types) {
					if id == LevelDescriptorID {
						t.Fatalf("query %+v returned the level descriptor", q)
					}
				}
			}
			for _, id := range src.requested {
				if id == LevelDescriptorID {
					t.Error("form definition of the level descriptor was fetched")
				}
			}
		})
	}
}

func TestFetchContentTypes_TypeFilter(t *testing.T) {
	types, err := NewService(newFixtureSource(), 0).FetchContentTypes(context.Background(), "editorial", Query{Type: "page"})
	if err != nil {
		t.Fatalf("FetchContentTypes: unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"/page/home", "/page/article"}, ids(types)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchContentTypes_BoundedConcurrency(t *testing.T) {
	src := &fakeSource{definitions: map[string]*legacy.FormDefinition{}, delays: map[string]time.Duration{}}
	for i := range 12 {
		id := fmt.Sprintf("/component/c%02d", i)
		src.catalog = append(src.catalog, descriptor(id, id, "component"))
		src.delays[id] = 5 * time.Millisecond
	}

	if _, err := NewService(src, 3).FetchContentTypes(context.Background(), "editorial", Query{}); err != nil {
		t.Fatalf("FetchContentTypes: unexpected error: %v", err)
	}
	if got := src.maxFlight.Load(); got > 3 {
		t.Errorf("max concurrent fetches = %d, want <= 3", got)
	}
	if len(src.requested) != 12 {
		t.Errorf("fetched %d definitions, want 12", len(src.requested))
	}
}

func TestFetchContentTypes_DeduplicatesFetches(t *testing.T) {
	src := newFixtureSource()
	src.catalog = append(src.catalog, descriptor("/page/home", "Home Again", "page"))

	types, err := NewService(src, 4).FetchContentTypes(context.Background(), "editorial", Query{})
	if err != nil {
		t.Fatalf("FetchContentTypes: unexpected error: %v", err)
	}
	if len(types) != 4 {
		t.Fatalf("len(types) = %d, want 4", len(types))
	}
	if types[3].Name != "Home Again" || types[3].Fields["home_t"].ID != "home_t" {
		t.Errorf("duplicate entry not merged: %+v", types[3])
	}

	// Both /page/home entries are independent values.
	first := -1
	for i, ct := range types {
		if ct.ID == "/page/home" {
			first = i
			break
		}
	}
	if first < 0 || first == 3 {
		t.Fatalf("first /page/home entry not found in %+v", types)
	}
	types[3].Fields["extra"] = schema.Field{ID: "extra"}
	if len(types[3].Sections) > 0 {
		types[3].Sections[0].Fields = append(types[3].Sections[0].Fields[:0], "extra")
	}
	if _, shared := types[first].Fields["extra"]; shared {
		t.Error("duplicate entries share one Fields map")
	}
	if diff := cmp.Diff(types[first].Fields["home_t"], types[3].Fields["home_t"]); diff != "" {
		t.Errorf("duplicate entry fields differ (-first +dup):\n%s", diff)
	}
	if len(types[first].Sections) > 0 && slices.Contains(types[first].Sections[0].Fields, "extra") {
		t.Error("duplicate entries share section field lists")
	}

	count := 0
	for _, id := range src.requested {
		if id == "/page/home" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("/page/home definition fetched %d times, want 1", count)
	}
}

func TestFetchContentTypes_CatalogError(t *testing.T) {
	src := newFixtureSource()
	src.catalogErr = &legacy.APIError{Message: "Invalid parameter(s)"}

	_, err := NewService(src, 2).FetchContentTypes(context.Background(), "editorial", Query{})
	var apiErr *legacy.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *legacy.APIError", err)
	}
}

func TestFetchContentTypes_DefinitionErrorCancelsOthers(t *testing.T) {
	src := newFixtureSource()
	src.delays["/page/home"] = 5 * time.Second
	src.defErrs = map[string]error{
		"/component/banner": &legacy.StatusError{Endpoint: "get-configuration", StatusCode: 500},
	}

	start := time.Now()
	types, err := NewService(src, 4).FetchContentTypes(context.Background(), "editorial", Query{})
	if types != nil {
		t.Errorf("types = %v, want no partial result", types)
	}
	var statusErr *legacy.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *legacy.StatusError", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("fetch took %v; outstanding fetches were not cancelled", elapsed)
	}
}

func TestFetchContentTypes_StructureError(t *testing.T) {
	src := newFixtureSource()
	src.definitions["/page/article"] = &legacy.FormDefinition{
		Sections: &legacy.Sections{Section: legacy.List[legacy.Section]{{
			Fields: &legacy.Fields{Field: legacy.List[legacy.Field]{{ID: "slides_o", Type: "repeat"}}},
		}}},
	}

	_, err := NewService(src, 2).FetchContentTypes(context.Background(), "editorial", Query{})
	if !errors.Is(err, schema.ErrMalformedDefinition) {
		t.Fatalf("error = %v, want schema.ErrMalformedDefinition", err)
	}
}

func TestFetchContentType_MergesDefinition(t *testing.T) {
	src := newFixtureSource()
	src.definitions["/component/banner"].Properties = &legacy.Properties{Property: legacy.List[legacy.Property]{
		{Name: "display-template", Value: "/templates/web/banner.ftl"},
	}}

	ct, err := NewService(src, 2).FetchContentType(context.Background(), "editorial", "/component/banner")
	if err != nil {
		t.Fatalf("FetchContentType: unexpected error: %v", err)
	}
	if ct.ID != "/component/banner" || ct.Name != "Banner" || ct.Type != "component" {
		t.Errorf("descriptor values = %+v", ct)
	}
	if ct.DisplayTemplate == nil || *ct.DisplayTemplate != "/templates/web/banner.ftl" {
		t.Errorf("DisplayTemplate = %v", ct.DisplayTemplate)
	}
	if _, ok := ct.Fields["banner_t"]; !ok {
		t.Errorf("Fields = %v, want banner_t", ct.Fields)
	}
}

func TestFetchContentType_NilDefinition(t *testing.T) {
	src := newFixtureSource()
	delete(src.definitions, "/page/article")

	ct, err := NewService(src, 2).FetchContentType(context.Background(), "editorial", "/page/article")
	if err != nil {
		t.Fatalf("FetchContentType: unexpected error: %v", err)
	}
	if ct.Fields != nil || ct.Sections != nil {
		t.Errorf("descriptor-only content type has fields or sections: %+v", ct)
	}
}

func TestFetchContentType_NotFound(t *testing.T) {
	_, err := NewService(newFixtureSource(), 2).FetchContentType(context.Background(), "editorial", "/component/missing")
	if !errors.Is(err, legacy.ErrNotFound) {
		t.Fatalf("error = %v, want legacy.ErrNotFound", err)
	}
}
