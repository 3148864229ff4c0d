package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoresearch/pkg/llmclient"
)

func TestSearchTool_ExecuteReturnsRankedResults(t *testing.T) {
	st := NewSearchTool(NewMockSearcher(6))
	require.True(t, st.ValidateInput(map[string]interface{}{"query": "quantum computing"}))

	result := st.Execute(context.Background(), map[string]interface{}{"query": "quantum computing"})
	require.True(t, result.Success)

	items := result.Data["results"].([]map[string]interface{})
	assert.Len(t, items, 6)
	assert.Equal(t, 6, result.Data["total"])
}

func TestSearchTool_ValidateInputRejectsEmptyQuery(t *testing.T) {
	st := NewSearchTool(NewMockSearcher(1))
	assert.False(t, st.ValidateInput(map[string]interface{}{}))
}

func TestAnalyzeTool_ExtractsFactsFromLLMResponse(t *testing.T) {
	mock := llmclient.NewMockClient().QueueText(`{"facts":[{"statement":"X causes Y","confidence":0.8,"category":"mechanism"}]}`)
	at := NewAnalyzeTool(mock)

	result := at.Execute(context.Background(), map[string]interface{}{
		"content": "some article text", "goal": "understand X",
	})
	require.True(t, result.Success)

	facts := result.Data["facts"].([]map[string]interface{})
	require.Len(t, facts, 1)
	assert.Equal(t, "X causes Y", facts[0]["statement"])
}

func TestAnalyzeTool_UnparseableResponseFails(t *testing.T) {
	mock := llmclient.NewMockClient().QueueText("not json at all")
	at := NewAnalyzeTool(mock)

	result := at.Execute(context.Background(), map[string]interface{}{"content": "text"})
	assert.False(t, result.Success)
}

func TestSynthesizeTool_ProducesSynthesis(t *testing.T) {
	mock := llmclient.NewMockClient().QueueText(`{"synthesis":"X and Y are related via mechanism Z."}`)
	syn := NewSynthesizeTool(mock)

	result := syn.Execute(context.Background(), map[string]interface{}{
		"goal":     "survey X and Y",
		"findings": []interface{}{"X causes Y", "Y reinforces X"},
	})
	require.True(t, result.Success)
	assert.Equal(t, "X and Y are related via mechanism Z.", result.Data["synthesis"])
}

func TestSynthesizeTool_ValidateInputRequiresFindings(t *testing.T) {
	syn := NewSynthesizeTool(llmclient.NewMockClient())
	assert.False(t, syn.ValidateInput(map[string]interface{}{"goal": "x"}))
}
