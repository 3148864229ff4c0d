package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoresearch/pkg/httpclient"
)

func TestExtractText_ConcatenatesTextBlocksInOrder(t *testing.T) {
	resp := &CompletionResponse{
		Content: []ContentBlock{
			{Type: ContentText, Text: "hello "},
			{Type: ContentToolUse, ToolName: "search"},
			{Type: ContentText, Text: "world"},
		},
	}
	assert.Equal(t, "hello world", ExtractText(resp))
}

func TestExtractToolUses_ReturnsOnlyToolBlocks(t *testing.T) {
	resp := &CompletionResponse{
		Content: []ContentBlock{
			{Type: ContentText, Text: "thinking"},
			{Type: ContentToolUse, ToolName: "search", ToolUseID: "t1"},
			{Type: ContentToolUse, ToolName: "fetch", ToolUseID: "t2"},
		},
	}
	uses := ExtractToolUses(resp)
	require.Len(t, uses, 2)
	assert.Equal(t, "search", uses[0].ToolName)
	assert.Equal(t, "fetch", uses[1].ToolName)
}

func TestClassifyStatusCode(t *testing.T) {
	cases := []struct {
		status       int
		wantCode     ErrorCode
		wantRetryable bool
	}{
		{429, ErrRateLimit, true},
		{401, ErrAuth, false},
		{403, ErrAuth, false},
		{400, ErrBadRequest, false},
		{408, ErrTimeout, true},
		{500, ErrUnknown, true},
		{503, ErrUnknown, true},
		{404, ErrUnknown, false},
	}
	for _, tc := range cases {
		code, retryable := ClassifyStatusCode(tc.status)
		assert.Equal(t, tc.wantCode, code, "status %d", tc.status)
		assert.Equal(t, tc.wantRetryable, retryable, "status %d", tc.status)
	}
}

func TestParseJSONLoose_ParsesRawJSON(t *testing.T) {
	var out map[string]string
	err := ParseJSONLoose(`{"action":"search"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "search", out["action"])
}

func TestParseJSONLoose_ExtractsFencedBlock(t *testing.T) {
	var out map[string]string
	text := "Here is my plan:\n```json\n{\"action\":\"fetch\"}\n```\nDone."
	err := ParseJSONLoose(text, &out)
	require.NoError(t, err)
	assert.Equal(t, "fetch", out["action"])
}

func TestParseJSONLoose_NoJSONReturnsError(t *testing.T) {
	var out map[string]string
	err := ParseJSONLoose("no json here at all", &out)
	assert.Error(t, err)
}

func TestParseJSONLoose_CoercesMismatchedTypesViaMapstructure(t *testing.T) {
	var out struct {
		Confidence    float64 `json:"confidence"`
		EstimatedCost float64 `json:"estimatedCost"`
	}
	err := ParseJSONLoose(`{"confidence":"0.8","estimatedCost":5}`, &out)
	require.NoError(t, err)
	assert.Equal(t, 0.8, out.Confidence)
	assert.Equal(t, 5.0, out.EstimatedCost)
}

func TestNewAnthropicClient_AppliesTLSConfig(t *testing.T) {
	c, err := NewAnthropicClient(AnthropicConfig{
		APIKey:    "test-key",
		TLSConfig: &httpclient.TLSConfig{InsecureSkipVerify: true},
	})
	require.NoError(t, err)
	require.NotNil(t, c.http)
}

func TestMockClient_QueuedResponsesReturnInOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMockClient().QueueText("first").QueueText("second")

	r1, err := m.Complete(ctx, nil, CompleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "first", ExtractText(r1))

	r2, err := m.Complete(ctx, nil, CompleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "second", ExtractText(r2))

	assert.Len(t, m.Calls(), 2)
}

func TestMockClient_QueuedErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	llmErr := &LLMError{Code: ErrRateLimit, Retryable: true}
	m := NewMockClient().QueueError(llmErr)

	_, err := m.Complete(ctx, nil, CompleteOptions{})
	assert.Equal(t, llmErr, err)
}
