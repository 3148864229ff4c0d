// Package builtin provides the four research tools named throughout
// the spec's scenarios: search, fetch, analyze, synthesize.
package builtin

import (
	"context"
	"fmt"
	"sort"

	"autoresearch/pkg/tool"
)

// SearchResult is one item returned by a Searcher.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
	Score   float64
}

// Searcher abstracts the web-search backend a SearchTool dispatches
// to, so the tool itself stays free of any one search API's wire
// format.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// SearchTool wraps a Searcher as a registry Tool.
type SearchTool struct {
	searcher Searcher
}

func NewSearchTool(searcher Searcher) *SearchTool {
	return &SearchTool{searcher: searcher}
}

func (t *SearchTool) Name() string        { return "search" }
func (t *SearchTool) Description() string { return "Searches the web for pages relevant to a query." }
func (t *SearchTool) Version() string     { return "1.0.0" }

// searchParams is SearchTool's schema source: the LLM-facing parameter
// shape for a search call.
type searchParams struct {
	Query string `json:"query" jsonschema:"required,description=The search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum number of results to return"`
}

func (t *SearchTool) Schema() map[string]interface{} {
	return generateSchema[searchParams]()
}

func (t *SearchTool) ValidateInput(input map[string]interface{}) bool {
	query, ok := input["query"].(string)
	return ok && query != ""
}

func (t *SearchTool) Execute(ctx context.Context, input map[string]interface{}) tool.Result {
	query := input["query"].(string)
	limit := 10
	if l, ok := input["limit"].(int); ok && l > 0 {
		limit = l
	} else if l, ok := input["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	results, err := t.searcher.Search(ctx, query, limit)
	if err != nil {
		return tool.Result{Success: false, Error: fmt.Sprintf("search failed: %v", err)}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	items := make([]map[string]interface{}, len(results))
	for i, r := range results {
		items[i] = map[string]interface{}{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Snippet,
			"score":   r.Score,
		}
	}

	return tool.Result{
		Success: true,
		Data: map[string]interface{}{
			"results": items,
			"query":   query,
			"total":   len(items),
		},
	}
}
