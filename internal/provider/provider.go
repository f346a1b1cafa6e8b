package provider

import (
	"context"

	"github.com/retag-io/retag/internal/ir"
)

// Page is one page of a paginated listing. NextCursor is opaque; an
// empty cursor means the listing is exhausted.
type Page struct {
	Resources  []ir.Resource
	NextCursor string
}

// TaggingProvider is the narrow surface the engine needs from a remote
// tagging API. Implementations return *Error values for classifiable
// remote failures.
type TaggingProvider interface {
	// Kind reports which resource kind this provider serves.
	Kind() ir.Kind

	// ListResources fetches one page of resources. Pass an empty cursor
	// to start from the beginning.
	ListResources(ctx context.Context, cursor string) (*Page, error)

	// GetTags returns the current tag set for a resource. A resource
	// with zero tags yields an empty map, not an error.
	GetTags(ctx context.Context, id string) (ir.TagMap, error)

	// SetTags writes the given tag set. In merge mode unrelated existing
	// tags survive; in replace mode they are removed.
	SetTags(ctx context.Context, id string, tags ir.TagMap, mode ir.Mode) error

	// DeleteAllTags removes every tag from the resource.
	DeleteAllTags(ctx context.Context, id string) error
}
