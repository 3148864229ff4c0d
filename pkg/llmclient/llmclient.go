// Package llmclient provides the completion-oriented LLM client
// contract consumed by the reasoning engine: a single `Complete` call
// per reasoning/planning/reflection step, with typed, retry-classified
// errors.
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to the LLM.
type Message struct {
	Role    Role
	Content string
}

// ToolDefinition describes a tool the model may call, expressed as a
// JSON Schema input shape (mirrors the tool registry's own schema
// export so the reasoning engine can pass tools straight through).
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// CompleteOptions configures a single completion call.
type CompleteOptions struct {
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Tools        []ToolDefinition
}

// ContentBlockType distinguishes the two block shapes a response may
// contain.
type ContentBlockType string

const (
	ContentText    ContentBlockType = "text"
	ContentToolUse ContentBlockType = "tool_use"
)

// ContentBlock is one block of a CompletionResponse.
type ContentBlock struct {
	Type ContentBlockType

	// Set when Type == ContentText.
	Text string

	// Set when Type == ContentToolUse.
	ToolUseID string
	ToolName  string
	ToolInput map[string]interface{}
}

// Usage reports token consumption for a single call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StopReason mirrors the provider's reason the model stopped
// generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
	StopToolUse   StopReason = "tool_use"
)

// CompletionResponse is the result of a single Complete call.
type CompletionResponse struct {
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
}

// ErrorCode classifies an LLMError for the retry policy in §5.
type ErrorCode string

const (
	ErrRateLimit  ErrorCode = "RATE_LIMIT"
	ErrAuth       ErrorCode = "AUTHENTICATION_ERROR"
	ErrBadRequest ErrorCode = "BAD_REQUEST"
	ErrTimeout    ErrorCode = "TIMEOUT"
	ErrUnknown    ErrorCode = "UNKNOWN"
)

// LLMError is the typed error every Client implementation must surface
// for a failed call; Retryable drives the control loop's retry-vs-fail
// decision independent of the httpclient-level retry that already ran.
type LLMError struct {
	Code       ErrorCode
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *LLMError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// ClassifyStatusCode maps an HTTP status to an LLMError code and its
// retryability, per the error kinds in §7 (transient external vs
// permanent external).
func ClassifyStatusCode(statusCode int) (ErrorCode, bool) {
	switch {
	case statusCode == 429:
		return ErrRateLimit, true
	case statusCode == 401 || statusCode == 403:
		return ErrAuth, false
	case statusCode == 400 || statusCode == 422:
		return ErrBadRequest, false
	case statusCode == 408:
		return ErrTimeout, true
	case statusCode >= 500:
		return ErrUnknown, true
	default:
		return ErrUnknown, false
	}
}

// Client is the LLM completion contract. Streaming is intentionally
// out of scope — §6 marks it optional for this core.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*CompletionResponse, error)
	Close() error
}

// ExtractText concatenates every text block of a response, in order.
func ExtractText(resp *CompletionResponse) string {
	if resp == nil {
		return ""
	}
	var out string
	for _, block := range resp.Content {
		if block.Type == ContentText {
			out += block.Text
		}
	}
	return out
}

// ExtractToolUses returns every tool_use block of a response, in
// order.
func ExtractToolUses(resp *CompletionResponse) []ContentBlock {
	if resp == nil {
		return nil
	}
	var out []ContentBlock
	for _, block := range resp.Content {
		if block.Type == ContentToolUse {
			out = append(out, block)
		}
	}
	return out
}

// ParseJSONLoose parses raw JSON, or failing that the first balanced
// `{...}` block found in text, into v. This backs every documented
// "forgiving JSON parsing" fallback path in the reasoning and control
// loop packages (§9). Candidates are first unmarshaled into a generic
// `interface{}` and then decoded into v with mapstructure's weakly-typed
// mode, so a model that writes `"confidence": "0.8"` or `"estimatedCost":
// 5` against a float64 field doesn't sink an otherwise-valid response.
func ParseJSONLoose(text string, v interface{}) error {
	if raw, err := unmarshalAny(text); err == nil {
		if derr := decodeLoose(raw, v); derr == nil {
			return nil
		}
	}

	start := -1
	depth := 0
	for i, r := range text {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidate := text[start : i+1]
					if raw, err := unmarshalAny(candidate); err == nil {
						if derr := decodeLoose(raw, v); derr == nil {
							return nil
						}
					}
				}
			}
		}
	}
	return fmt.Errorf("llmclient: no valid JSON object found in response text")
}

func unmarshalAny(text string) (interface{}, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// decodeLoose maps a generic JSON value (as produced by
// encoding/json.Unmarshal into interface{}) onto v, coercing
// string/number mismatches the way an LLM's JSON output is prone to.
func decodeLoose(raw interface{}, v interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
