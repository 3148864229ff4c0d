package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoresearch/pkg/httpclient"
)

// AnthropicConfig configures an AnthropicClient.
type AnthropicConfig struct {
	APIKey      string
	Host        string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	// TLSConfig overrides the transport's TLS settings (custom CA,
	// insecure skip-verify for dev/test). Left nil, the client uses
	// Go's default TLS behavior.
	TLSConfig *httpclient.TLSConfig
}

func (c *AnthropicConfig) setDefaults() {
	if c.Host == "" {
		c.Host = "https://api.anthropic.com"
	}
	if c.Model == "" {
		c.Model = "claude-3-5-sonnet-20241022"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// AnthropicClient is the Client implementation backed by the Anthropic
// Messages API.
type AnthropicClient struct {
	cfg  AnthropicConfig
	http *httpclient.Client
}

func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llmclient: API key is required for Anthropic")
	}
	cfg.setDefaults()

	c := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseAnthropicRateLimitHeaders),
		httpclient.WithTLSConfig(cfg.TLSConfig),
	)

	return &AnthropicClient{cfg: cfg, http: c}, nil
}

func (c *AnthropicClient) Close() error { return nil }

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicContent struct {
	Type  string                  `json:"type"`
	Text  string                 `json:"text,omitempty"`
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input *map[string]interface{} `json:"input,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
	Error      *anthropicError    `json:"error,omitempty"`
}

func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*CompletionResponse, error) {
	req := c.buildRequest(messages, opts)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llmclient: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(httpReq)
	if err != nil && resp == nil {
		return nil, &LLMError{Code: ErrUnknown, Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llmclient: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		code, retryable := ClassifyStatusCode(resp.StatusCode)
		msg := string(respBody)
		var errResp anthropicResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
			msg = errResp.Error.Message
		}
		return nil, &LLMError{Code: code, StatusCode: resp.StatusCode, Message: msg, Retryable: retryable}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("llmclient: decode response: %w", err)
	}
	if parsed.Error != nil {
		code, retryable := ClassifyStatusCode(resp.StatusCode)
		return nil, &LLMError{Code: code, Message: parsed.Error.Message, Retryable: retryable}
	}

	return convertResponse(parsed), nil
}

func (c *AnthropicClient) buildRequest(messages []Message, opts CompleteOptions) anthropicRequest {
	req := anthropicRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		System:      opts.SystemPrompt,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}

	for _, m := range messages {
		if m.Role == RoleSystem {
			if req.System == "" {
				req.System = m.Content
			} else {
				req.System += "\n\n" + m.Content
			}
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	for _, t := range opts.Tools {
		req.Tools = append(req.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	return req
}

func convertResponse(parsed anthropicResponse) *CompletionResponse {
	out := &CompletionResponse{
		StopReason: StopReason(parsed.StopReason),
		Usage: Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		},
	}

	for _, c := range parsed.Content {
		switch c.Type {
		case "text":
			out.Content = append(out.Content, ContentBlock{Type: ContentText, Text: c.Text})
		case "tool_use":
			var input map[string]interface{}
			if c.Input != nil {
				input = *c.Input
			}
			out.Content = append(out.Content, ContentBlock{
				Type:      ContentToolUse,
				ToolUseID: c.ID,
				ToolName:  c.Name,
				ToolInput: input,
			})
		}
	}

	return out
}
