package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"autoresearch/pkg/httpclient"
	"autoresearch/pkg/tool"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// FetchTool retrieves a URL and returns its text content, stripped of
// markup.
type FetchTool struct {
	client *httpclient.Client
	maxLen int
}

func NewFetchTool() *FetchTool {
	return &FetchTool{
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 20 * time.Second}),
			httpclient.WithMaxRetries(2),
		),
		maxLen: 20000,
	}
}

func (t *FetchTool) Name() string        { return "fetch" }
func (t *FetchTool) Description() string { return "Fetches a URL and returns its text content." }
func (t *FetchTool) Version() string     { return "1.0.0" }

// fetchParams is FetchTool's schema source: the LLM-facing parameter
// shape for a fetch call.
type fetchParams struct {
	URL string `json:"url" jsonschema:"required,description=The URL to fetch"`
}

func (t *FetchTool) Schema() map[string]interface{} {
	return generateSchema[fetchParams]()
}

func (t *FetchTool) ValidateInput(input map[string]interface{}) bool {
	url, ok := input["url"].(string)
	return ok && (strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://"))
}

func (t *FetchTool) Execute(ctx context.Context, input map[string]interface{}) tool.Result {
	url := input["url"].(string)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tool.Result{Success: false, Error: fmt.Sprintf("fetch: build request: %v", err)}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return tool.Result{Success: false, Error: fmt.Sprintf("fetch: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tool.Result{Success: false, Error: fmt.Sprintf("fetch: status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.maxLen*4)))
	if err != nil {
		return tool.Result{Success: false, Error: fmt.Sprintf("fetch: read body: %v", err)}
	}

	text := extractText(string(body))
	if len(text) > t.maxLen {
		text = text[:t.maxLen]
	}

	return tool.Result{
		Success: true,
		Data: map[string]interface{}{
			"url":     url,
			"content": text,
		},
	}
}

func extractText(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	return strings.Join(strings.Fields(text), " ")
}
