package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// ActionDispatcher executes the side-effect of an api_action node.
//
// It receives the action type, the node's static config and a snapshot of the
// variables, and returns a partial variable map the interpreter merges. It must not
// mutate the interpreter's state and must bound its own latency. Failures should be
// reported as error markers in the returned map rather than as errors.
type ActionDispatcher interface {
	Execute(ctx context.Context, actionType string, config map[string]any, vars map[string]any) (map[string]any, error)
}

// ItemSource fetches the items rendered by show_items nodes.
type ItemSource interface {
	FetchItems(ctx context.Context, query map[string]any, vars map[string]any) ([]domain.Item, error)
}

// RecordCreator performs the concrete business operation behind create_record
// actions (create an appointment, an order, ...).
type RecordCreator interface {
	CreateRecord(ctx context.Context, kind string, fields map[string]any) (string, error)
}

// CatalogQuery filters a catalog search.
type CatalogQuery struct {
	Category string
	Text     string
	Limit    int
}

// Catalog searches the tenant's item catalog.
type Catalog interface {
	SearchItems(ctx context.Context, query CatalogQuery) ([]domain.Item, error)
}
