package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name    string
	succeed bool
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Version() string     { return "1.0.0" }
func (s *stubTool) Schema() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (s *stubTool) ValidateInput(input map[string]interface{}) bool { return true }
func (s *stubTool) Execute(ctx context.Context, input map[string]interface{}) Result {
	if !s.succeed {
		return Result{Success: false, Error: "boom"}
	}
	return Result{Success: true, Data: map[string]interface{}{"ok": true}}
}

func TestRegistry_RegisterReplacesOnDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "search", succeed: true}, RegisterOptions{Enabled: true}))
	require.NoError(t, r.Register(&stubTool{name: "search", succeed: false}, RegisterOptions{Enabled: true}))

	assert.Len(t, r.GetAllTools(), 1)
	got, ok := r.GetTool("search")
	require.True(t, ok)
	assert.False(t, got.(*stubTool).succeed)
}

func TestRegistry_ExecuteTool_NotFound(t *testing.T) {
	r := NewRegistry()
	result := r.ExecuteTool(context.Background(), "missing", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "Tool not found", result.Error)
}

func TestRegistry_ExecuteTool_Disabled(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "search", succeed: true}, RegisterOptions{Enabled: false}))
	result := r.ExecuteTool(context.Background(), "search", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "disabled", result.Error)
}

func TestRegistry_ExecuteTool_RecordsStatistics(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "search", succeed: true}, RegisterOptions{Enabled: true}))

	r.ExecuteTool(context.Background(), "search", nil)
	r.ExecuteTool(context.Background(), "search", nil)

	stats := r.GetToolStatistics("search")
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.UsageCount)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastUsed)
}

func TestRegistry_ExecuteTool_MixedSuccessRate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "flaky", succeed: true}, RegisterOptions{Enabled: true}))

	r.ExecuteTool(context.Background(), "flaky", nil)
	flaky, _ := r.GetTool("flaky")
	flaky.(*stubTool).succeed = false
	r.ExecuteTool(context.Background(), "flaky", nil)

	stats := r.GetToolStatistics("flaky")
	require.NotNil(t, stats)
	assert.Equal(t, 0.5, stats.SuccessRate)
}

func TestRegistry_ExecutionHistoryCapped(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "search", succeed: true}, RegisterOptions{Enabled: true}))

	for i := 0; i < maxExecutionHistory+10; i++ {
		r.ExecuteTool(context.Background(), "search", nil)
	}

	history := r.GetExecutionHistory(HistoryFilter{})
	assert.Len(t, history, maxExecutionHistory)
}

func TestRegistry_GetToolsByCategoryAndTag(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "search", succeed: true}, RegisterOptions{
		Enabled: true, Category: "research", Tags: []string{"web"},
	}))
	require.NoError(t, r.Register(&stubTool{name: "fetch", succeed: true}, RegisterOptions{
		Enabled: true, Category: "research", Tags: []string{"web", "io"},
	}))
	require.NoError(t, r.Register(&stubTool{name: "synthesize", succeed: true}, RegisterOptions{
		Enabled: true, Category: "generation",
	}))

	assert.Len(t, r.GetToolsByCategory("research"), 2)
	assert.Len(t, r.GetToolsByTag("io"), 1)
}

func TestRegistry_EnableDisableTool(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "search", succeed: true}, RegisterOptions{Enabled: true}))

	assert.True(t, r.DisableTool("search"))
	assert.Empty(t, r.GetEnabledTools())
	assert.True(t, r.EnableTool("search"))
	assert.Len(t, r.GetEnabledTools(), 1)
	assert.False(t, r.EnableTool("missing"))
}

func TestRegistry_GetToolSchemasExcludesDisabled(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "search", succeed: true}, RegisterOptions{Enabled: true}))
	require.NoError(t, r.Register(&stubTool{name: "fetch", succeed: true}, RegisterOptions{Enabled: false}))

	schemas := r.GetToolSchemas()
	require.Len(t, schemas, 1)
	assert.Equal(t, "search", schemas[0].Name)
}

func TestRegistry_ClearHistory(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "search", succeed: true}, RegisterOptions{Enabled: true}))
	r.ExecuteTool(context.Background(), "search", nil)
	r.ClearHistory()
	assert.Empty(t, r.GetExecutionHistory(HistoryFilter{}))
}
