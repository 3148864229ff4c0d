package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autoresearch/pkg/model"
)

// synthesizeResult prefers invoking the synthesize tool over the
// session's key findings; on failure or absence it assembles a
// fallback result directly from accumulated findings.
func (a *Agent) synthesizeResult(ctx context.Context, session *model.Session, state *model.AgentState, allActions []model.Action) *model.ResearchResult {
	synthesis := a.runSynthesizeTool(ctx, state)
	if synthesis == "" {
		synthesis = fallbackSynthesis(state)
	}

	sources := distinctSources(state.WorkingMemory.KeyFindings)
	completeness := float64(state.Progress.StepsCompleted) / float64(maxInt(1, state.Progress.StepsTotal))

	strategies := distinctStrategies(allActions)

	var successfulApproaches, challenges, suggestions []string
	for _, r := range state.Reflections {
		successfulApproaches = append(successfulApproaches, r.StrategyEvaluation.Strengths...)
		challenges = append(challenges, r.ProgressAssessment.Blockers...)
		suggestions = append(suggestions, r.StrategyEvaluation.AlternativeStrategies...)
	}

	return &model.ResearchResult{
		SessionID:            session.ID,
		Topic:                session.Topic,
		Goal:                 state.Goal,
		Synthesis:            synthesis,
		KeyFindings:          state.WorkingMemory.KeyFindings,
		Sources:              sources,
		Confidence:           state.Progress.Confidence,
		Completeness:         completeness,
		Duration:             time.Since(session.CreatedAt).Milliseconds(),
		TotalActions:         len(allActions),
		TotalReflections:     len(state.Reflections),
		StrategiesUsed:       strategies,
		SuccessfulApproaches: dedup(successfulApproaches),
		Challenges:           dedup(challenges),
		Suggestions:          dedup(suggestions),
	}
}

func (a *Agent) runSynthesizeTool(ctx context.Context, state *model.AgentState) string {
	if _, ok := a.tools.GetTool("synthesize"); !ok {
		return ""
	}
	findings := make([]interface{}, len(state.WorkingMemory.KeyFindings))
	for i, f := range state.WorkingMemory.KeyFindings {
		findings[i] = f.Content
	}
	result := a.tools.ExecuteTool(ctx, "synthesize", map[string]interface{}{
		"goal":     state.Goal.Description,
		"findings": findings,
	})
	if !result.Success {
		return ""
	}
	synthesis, _ := result.Data["synthesis"].(string)
	return synthesis
}

func fallbackSynthesis(state *model.AgentState) string {
	if len(state.WorkingMemory.KeyFindings) == 0 {
		return "No findings were gathered for this research goal."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summary of findings for %q:\n", state.Goal.Description)
	for _, f := range state.WorkingMemory.KeyFindings {
		fmt.Fprintf(&sb, "- %s\n", f.Content)
	}
	return sb.String()
}

func distinctSources(findings []model.Finding) []model.Source {
	seen := make(map[string]bool)
	var out []model.Source
	for _, f := range findings {
		key := f.Source.URL + "|" + f.Source.Title
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f.Source)
	}
	return out
}

func distinctStrategies(actions []model.Action) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range actions {
		if a.Strategy == "" || seen[a.Strategy] {
			continue
		}
		seen[a.Strategy] = true
		out = append(out, a.Strategy)
	}
	return out
}

func dedup(items []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
