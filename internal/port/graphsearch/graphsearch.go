// Package graphsearch defines the port to the external people-graph
// search service. The engine only sees this narrow invoke/fetch
// contract; transport (MCP) lives behind it.
package graphsearch

import (
	"context"

	"github.com/connecthq/connect-core/internal/domain/query"
)

// SearchResult is the raw outcome of one search tool invocation.
type SearchResult struct {
	EntityIDs []query.EntityID
	RawText   string // unparsed tool response, kept for diagnostics
}

// FetchResult is the raw outcome of one full-record fetch.
type FetchResult struct {
	EntityID query.EntityID
	RawText  string
}

// Searcher invokes search tools against the external graph service.
// Implementations return an error for transport or tool failures; the
// engine converts those into failed ToolOutcomes, never panics or
// aborts sibling invocations.
type Searcher interface {
	// Invoke calls the named search tool with the given parameters and
	// returns the matching entity ids.
	Invoke(ctx context.Context, tool string, params map[string]any) (*SearchResult, error)

	// Fetch retrieves the full raw record for one entity id.
	Fetch(ctx context.Context, id query.EntityID) (*FetchResult, error)
}
