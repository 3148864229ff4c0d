package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/model"
)

type plannedStepWire struct {
	Description     string   `json:"description"`
	Action          string   `json:"action"`
	Dependencies    []string `json:"dependencies,omitempty"`
	ExpectedOutcome string   `json:"expectedOutcome,omitempty"`
}

type planResponse struct {
	Steps             []plannedStepWire `json:"steps"`
	EstimatedDuration int               `json:"estimatedDuration"`
}

// createPlan pulls the top strategy recommendations from memory,
// prompts the LLM for a step-by-step plan, and falls back to a
// hard-coded 5-step plan on any parse failure.
func (a *Agent) createPlan(ctx context.Context, goal model.Goal, sessionID string) (*model.ResearchPlan, error) {
	rawRecs, recErr := a.memory.GetStrategyRecommendations(ctx, goal.Description, a.enabledToolNames(), 3)
	if recErr != nil {
		a.logger.Warn("agent: strategy recommendations failed", "error", recErr)
		rawRecs = nil
	}
	recs := make([]recommendationSummary, len(rawRecs))
	for i, r := range rawRecs {
		recs[i] = recommendationSummary{Name: r.Strategy.StrategyName, Reasoning: r.Reasoning}
	}

	prompt := buildPlanningPrompt(goal, recs, a.enabledToolNames())

	resp, err := a.reasonerComplete(ctx, prompt)
	if err != nil {
		return fallbackPlan(), fmt.Errorf("agent: createPlan: llm call failed: %w", err)
	}

	var parsed planResponse
	if perr := llmclient.ParseJSONLoose(resp, &parsed); perr != nil || len(parsed.Steps) == 0 {
		return fallbackPlan(), fmt.Errorf("agent: createPlan: unparseable plan response")
	}

	steps := make([]model.PlannedStep, len(parsed.Steps))
	for i, s := range parsed.Steps {
		steps[i] = model.PlannedStep{
			ID:              fmt.Sprintf("step-%d", i+1),
			Description:     s.Description,
			Action:          s.Action,
			Dependencies:    s.Dependencies,
			Status:          model.StepPending,
			ExpectedOutcome: s.ExpectedOutcome,
		}
	}

	strategy := "general-research"
	if len(recs) > 0 {
		strategy = recs[0].Name
	}

	return &model.ResearchPlan{
		ID:                fmt.Sprintf("plan-%s-%d", sessionID, time.Now().UnixNano()),
		Strategy:          strategy,
		Steps:             steps,
		EstimatedDuration: parsed.EstimatedDuration,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// reasonerComplete issues a single raw completion call through the
// Agent's own LLM client (a.llmClient) for plan-creation prompts, which
// don't fit the reason/observe option-scoring shape.
func (a *Agent) reasonerComplete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.llmClient.Complete(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}}, llmclient.CompleteOptions{MaxTokens: 1536})
	if err != nil {
		return "", err
	}
	return llmclient.ExtractText(resp), nil
}

func buildPlanningPrompt(goal model.Goal, recs []recommendationSummary, tools []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "GOAL:\n%s\n\n", goal.Description)
	fmt.Fprintf(&sb, "SUCCESS CRITERIA:\n%s\n\n", strings.Join(goal.SuccessCriteria, "; "))
	fmt.Fprintf(&sb, "CONSTRAINTS:\n%s\n\n", strings.Join(goal.Constraints, "; "))
	fmt.Fprintf(&sb, "ESTIMATED COMPLEXITY: %s\n\n", goal.EstimatedComplexity)

	if len(recs) > 0 {
		sb.WriteString("RECOMMENDED STRATEGIES:\n")
		for _, r := range recs {
			fmt.Fprintf(&sb, "- %s: %s\n", r.Name, r.Reasoning)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "AVAILABLE TOOLS: %s\n\n", strings.Join(tools, ", "))
	sb.WriteString("Aim for 5-8 steps that move gather -> analyze -> synthesize. ")
	sb.WriteString("Return a JSON object {\"steps\":[{\"description\":...,\"action\":...,\"dependencies\":[...]," +
		"\"expectedOutcome\":...}],\"estimatedDuration\":seconds}.")
	return sb.String()
}

// recommendationSummary is the subset of a strategy recommendation
// createPlan's prompt needs; kept local so plan.go doesn't need to
// import the memory package just for StrategyRecommendation's shape.
type recommendationSummary struct {
	Name      string
	Reasoning string
}

func fallbackPlan() *model.ResearchPlan {
	steps := []struct {
		action, description string
	}{
		{"search", "Search for sources relevant to the research goal"},
		{"fetch", "Fetch content from the most promising source"},
		{"analyze", "Extract discrete facts from fetched content"},
		{"search", "Search for additional corroborating sources"},
		{"synthesize", "Synthesize accumulated findings into an answer"},
	}
	plannedSteps := make([]model.PlannedStep, len(steps))
	for i, s := range steps {
		plannedSteps[i] = model.PlannedStep{
			ID:          fmt.Sprintf("step-%d", i+1),
			Description: s.description,
			Action:      s.action,
			Status:      model.StepPending,
		}
	}
	return &model.ResearchPlan{
		ID:        "plan-fallback",
		Strategy:  "general-research",
		Steps:     plannedSteps,
		CreatedAt: time.Now().UTC(),
	}
}
