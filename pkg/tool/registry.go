package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autoresearch/pkg/registry"
)

const maxExecutionHistory = 1000

// Statistics summarizes one tool's execution history.
type Statistics struct {
	UsageCount      int
	LastUsed        *time.Time
	SuccessRate     float64
	AverageDuration time.Duration
}

// ExecutionLogEntry records one tool invocation.
type ExecutionLogEntry struct {
	ToolName   string
	Timestamp  time.Time
	Duration   time.Duration
	Success    bool
	Error      string
	InputDigest string
}

// HistoryFilter narrows GetExecutionHistory results.
type HistoryFilter struct {
	ToolName    string
	SuccessOnly bool
	Limit       int
}

type registration struct {
	tool     Tool
	category string
	tags     []string
	enabled  bool
}

// Registry is the Tool Registry: the only path from the agent core to
// the outside world.
type Registry struct {
	base *registry.BaseRegistry[*registration]

	mu      sync.Mutex
	history []ExecutionLogEntry
}

// RegisterOptions carries the optional attributes recorded at
// registration time.
type RegisterOptions struct {
	Category string
	Tags     []string
	Enabled  bool
}

func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[*registration]()}
}

// Register is idempotent-with-warning: re-registering a name replaces
// the prior tool and resets its attributes, but preserves execution
// history (history is keyed by tool name, not identity).
func (r *Registry) Register(t Tool, opts RegisterOptions) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("tool: cannot register a tool with an empty name")
	}
	enabled := opts.Enabled
	if _, exists := r.base.Get(t.Name()); exists {
		slog.Warn("tool: replacing already-registered tool", "name", t.Name())
	}
	return r.base.Register(t.Name(), &registration{
		tool:     t,
		category: opts.Category,
		tags:     opts.Tags,
		enabled:  enabled,
	})
}

func (r *Registry) Unregister(name string) bool {
	return r.base.Remove(name)
}

func (r *Registry) GetTool(name string) (Tool, bool) {
	reg, ok := r.base.Get(name)
	if !ok {
		return nil, false
	}
	return reg.tool, true
}

func (r *Registry) GetAllTools() []Tool {
	regs := r.base.List()
	out := make([]Tool, len(regs))
	for i, reg := range regs {
		out[i] = reg.tool
	}
	return out
}

func (r *Registry) GetEnabledTools() []Tool {
	var out []Tool
	for _, reg := range r.base.List() {
		if reg.enabled {
			out = append(out, reg.tool)
		}
	}
	return out
}

func (r *Registry) GetToolsByCategory(category string) []Tool {
	var out []Tool
	for _, reg := range r.base.List() {
		if reg.category == category {
			out = append(out, reg.tool)
		}
	}
	return out
}

func (r *Registry) GetToolsByTag(tag string) []Tool {
	var out []Tool
	for _, reg := range r.base.List() {
		for _, t := range reg.tags {
			if t == tag {
				out = append(out, reg.tool)
				break
			}
		}
	}
	return out
}

func (r *Registry) EnableTool(name string) bool {
	reg, ok := r.base.Get(name)
	if !ok {
		return false
	}
	reg.enabled = true
	return true
}

func (r *Registry) DisableTool(name string) bool {
	reg, ok := r.base.Get(name)
	if !ok {
		return false
	}
	reg.enabled = false
	return true
}

// ExecuteTool dispatches to the named tool, recording statistics and a
// bounded execution history entry regardless of outcome. Failures from
// the tool itself never propagate as an error from this call.
func (r *Registry) ExecuteTool(ctx context.Context, name string, input map[string]interface{}) Result {
	reg, ok := r.base.Get(name)
	if !ok {
		return Result{Success: false, Error: "Tool not found"}
	}
	if !reg.enabled {
		return Result{Success: false, Error: "disabled"}
	}
	if !reg.tool.ValidateInput(input) {
		return Result{Success: false, Error: "Input validation failed"}
	}

	start := time.Now()
	result := r.safeExecute(ctx, reg.tool, input)
	duration := time.Since(start)

	r.recordExecution(ExecutionLogEntry{
		ToolName:    name,
		Timestamp:   start,
		Duration:    duration,
		Success:     result.Success,
		Error:       result.Error,
		InputDigest: digestInput(input),
	})

	return result
}

func (r *Registry) safeExecute(ctx context.Context, t Tool, input map[string]interface{}) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Result{Success: false, Error: fmt.Sprintf("tool panicked: %v", rec)}
		}
	}()
	return t.Execute(ctx, input)
}

func (r *Registry) recordExecution(entry ExecutionLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, entry)
	if len(r.history) > maxExecutionHistory {
		r.history = r.history[len(r.history)-maxExecutionHistory:]
	}
}

func (r *Registry) GetToolStatistics(name string) *Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int
	var successes int
	var totalDuration time.Duration
	var lastUsed *time.Time

	for _, entry := range r.history {
		if entry.ToolName != name {
			continue
		}
		count++
		if entry.Success {
			successes++
		}
		totalDuration += entry.Duration
		ts := entry.Timestamp
		if lastUsed == nil || ts.After(*lastUsed) {
			lastUsed = &ts
		}
	}

	if count == 0 {
		return nil
	}

	return &Statistics{
		UsageCount:      count,
		LastUsed:        lastUsed,
		SuccessRate:     float64(successes) / float64(count),
		AverageDuration: totalDuration / time.Duration(count),
	}
}

func (r *Registry) GetExecutionHistory(filter HistoryFilter) []ExecutionLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ExecutionLogEntry
	for _, entry := range r.history {
		if filter.ToolName != "" && entry.ToolName != filter.ToolName {
			continue
		}
		if filter.SuccessOnly && !entry.Success {
			continue
		}
		out = append(out, entry)
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out
}

func (r *Registry) ClearHistory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}

func (r *Registry) GetToolSchemas() []Definition {
	var out []Definition
	for _, reg := range r.base.List() {
		if !reg.enabled {
			continue
		}
		out = append(out, Definition{
			Name:        reg.tool.Name(),
			Description: reg.tool.Description(),
			InputSchema: reg.tool.Schema(),
		})
	}
	return out
}

func (r *Registry) GetToolSchemasByName(names []string) []Definition {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []Definition
	for _, reg := range r.base.List() {
		if !reg.enabled || !wanted[reg.tool.Name()] {
			continue
		}
		out = append(out, Definition{
			Name:        reg.tool.Name(),
			Description: reg.tool.Description(),
			InputSchema: reg.tool.Schema(),
		})
	}
	return out
}

func digestInput(input map[string]interface{}) string {
	if len(input) == 0 {
		return ""
	}
	return fmt.Sprintf("%d keys", len(input))
}
