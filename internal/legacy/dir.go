package legacy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// catalogFile is the per-site catalog file inside a fixtures directory.
const catalogFile = "content-types.yaml"

// DirSource serves legacy documents from a directory of YAML fixtures laid
// out as:
//
//	{dir}/{site}/content-types.yaml
//	{dir}/{site}/content-types/component/banner/form-definition.yaml
//
// It is used for offline development and for tests.
type DirSource struct {
	dir string
}

// NewDirSource creates a DirSource rooted at dir. A missing directory is
// reported on first use, not here.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// ContentType implements Source by looking the descriptor up in the catalog.
func (d *DirSource) ContentType(ctx context.Context, site, contentTypeID string) (*ContentType, error) {
	catalog, err := d.loadCatalog(site)
	if err != nil {
		return nil, err
	}
	for i := range catalog {
		if catalog[i].Form == contentTypeID || catalog[i].Name == contentTypeID {
			ct := catalog[i]
			return &ct, nil
		}
	}
	return nil, fmt.Errorf("content type %q in site %q: %w", contentTypeID, site, ErrNotFound)
}

// ContentTypes implements Source. Only descriptors whose path starts with the
// given path are returned when path is set.
func (d *DirSource) ContentTypes(ctx context.Context, site, path string) ([]ContentType, error) {
	catalog, err := d.loadCatalog(site)
	if err != nil {
		return nil, normalizeAPIError(err)
	}
	if path == "" {
		return catalog, nil
	}
	filtered := make([]ContentType, 0, len(catalog))
	for _, ct := range catalog {
		if strings.HasPrefix(ct.Path, path) {
			filtered = append(filtered, ct)
		}
	}
	return filtered, nil
}

// FormDefinition implements Source. An empty fixture file yields a nil
// definition.
func (d *DirSource) FormDefinition(ctx context.Context, site, contentTypeID string) (*FormDefinition, error) {
	rel := strings.TrimSuffix(FormDefinitionPath(contentTypeID), ".xml") + ".yaml"
	path, err := d.sitePath(site, rel)
	if err != nil {
		return nil, err
	}

	var def *FormDefinition
	if err := decodeYAMLFile(path, &def); err != nil {
		return nil, fmt.Errorf("loading form definition %q: %w", contentTypeID, err)
	}
	return def, nil
}

func (d *DirSource) loadCatalog(site string) ([]ContentType, error) {
	path, err := d.sitePath(site, catalogFile)
	if err != nil {
		return nil, err
	}

	var catalog List[ContentType]
	if err := decodeYAMLFile(path, &catalog); err != nil {
		return nil, fmt.Errorf("loading catalog for site %q: %w", site, err)
	}
	return catalog.Items(), nil
}

// sitePath joins rel below the site directory and refuses paths that would
// escape it.
func (d *DirSource) sitePath(site, rel string) (string, error) {
	if site == "" || strings.ContainsAny(site, `/\`) || site == "." || site == ".." {
		return "", fmt.Errorf("invalid site %q: %w", site, ErrNotFound)
	}
	siteDir := filepath.Join(d.dir, site)
	path := filepath.Join(siteDir, filepath.FromSlash(rel))
	if !strings.HasPrefix(path, siteDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes site directory: %w", rel, ErrNotFound)
	}
	return path, nil
}

// decodeYAMLFile reads path and decodes it into v. Unknown keys are rejected
// so that misspelled fixture keys surface immediately.
func decodeYAMLFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
		}
		return fmt.Errorf("reading file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}
