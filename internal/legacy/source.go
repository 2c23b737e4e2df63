package legacy

import "context"

// Source provides the raw legacy documents for a site. Implementations are
// the HTTP Client, the fixture DirSource and the Redis cache decorator.
type Source interface {
	// ContentType returns the descriptor of one content type.
	ContentType(ctx context.Context, site, contentTypeID string) (*ContentType, error)

	// ContentTypes returns the site's descriptor catalog, optionally limited to
	// a repository path. Failures are reported as *APIError.
	ContentTypes(ctx context.Context, site, path string) ([]ContentType, error)

	// FormDefinition returns the form definition of one content type. A nil
	// definition with a nil error means the service returned an empty document.
	FormDefinition(ctx context.Context, site, contentTypeID string) (*FormDefinition, error)
}

// FormDefinitionPath returns the configuration path of a content type's form
// definition, e.g. "/content-types/component/banner/form-definition.xml".
func FormDefinitionPath(contentTypeID string) string {
	return "/content-types" + contentTypeID + "/form-definition.xml"
}
