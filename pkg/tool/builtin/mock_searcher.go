package builtin

import (
	"context"
	"fmt"
)

// MockSearcher is a deterministic Searcher for tests and demo wiring:
// it fabricates plausible results from the query instead of calling a
// real search API.
type MockSearcher struct {
	ResultCount int
}

func NewMockSearcher(resultCount int) *MockSearcher {
	if resultCount <= 0 {
		resultCount = 6
	}
	return &MockSearcher{ResultCount: resultCount}
}

func (m *MockSearcher) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	n := m.ResultCount
	if limit > 0 && limit < n {
		n = limit
	}

	results := make([]SearchResult, n)
	for i := 0; i < n; i++ {
		results[i] = SearchResult{
			Title:   fmt.Sprintf("%s — result %d", query, i+1),
			URL:     fmt.Sprintf("https://example.com/%s/%d", sanitize(query), i+1),
			Snippet: fmt.Sprintf("A discussion of %s, angle %d.", query, i+1),
			Score:   1.0 - float64(i)*0.05,
		}
	}
	return results, nil
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' {
			out = append(out, '-')
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "query"
	}
	return string(out)
}
