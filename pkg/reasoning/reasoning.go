// Package reasoning implements the two stateless operations that
// drive one control-loop iteration: reason, which turns the current
// goal/progress/memory context into a concrete next Action, and
// observe, which turns an executed Action's Outcome into learnings and
// a continue/replan signal.
package reasoning

import (
	"context"
	"fmt"
	"strings"

	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/memory"
	"autoresearch/pkg/model"
	"autoresearch/pkg/tool"
)

// Reasoner is the LLM-backed implementation of reason/observe; it
// carries no state across calls.
type Reasoner struct {
	llm llmclient.Client
}

func NewReasoner(llm llmclient.Client) *Reasoner {
	return &Reasoner{llm: llm}
}

// ReasonResult is reason's return value.
type ReasonResult struct {
	Reasoning      string
	SelectedAction model.Action
	Confidence     float64
}

type reasoningOption struct {
	ID              string   `json:"id"`
	Action          string   `json:"action"`
	Rationale       string   `json:"rationale"`
	ExpectedBenefit string   `json:"expectedBenefit"`
	PotentialRisks  []string `json:"potentialRisks"`
	EstimatedCost   float64  `json:"estimatedCost"`
	Confidence      float64  `json:"confidence"`
}

type reasoningOptionsResponse struct {
	Options []reasoningOption `json:"options"`
}

// phaseDefaultAction is the fallback action chosen by current phase
// when the LLM's options response cannot be parsed.
func phaseDefaultAction(phase model.Phase, progress model.Progress) model.ActionType {
	switch phase {
	case model.PhasePlanning, model.PhaseGathering:
		return model.ActionSearch
	case model.PhaseAnalyzing:
		if progress.SourcesGathered > 0 {
			return model.ActionAnalyze
		}
		return model.ActionFetch
	case model.PhaseSynthesizing:
		if progress.FactsExtracted >= 1 {
			return model.ActionSynthesize
		}
		return model.ActionAnalyze
	case model.PhaseVerifying:
		return model.ActionVerify
	default:
		return model.ActionSearch
	}
}

// toolActionSubstrings maps a tool name to an action type by
// substring match, case-insensitively, in table order.
var toolActionSubstrings = []struct {
	substr string
	action model.ActionType
}{
	{"search", model.ActionSearch},
	{"fetch", model.ActionFetch},
	{"analyz", model.ActionAnalyze},
	{"verif", model.ActionVerify},
	{"synth", model.ActionSynthesize},
	{"reflect", model.ActionReflect},
	{"replan", model.ActionReplan},
}

func actionTypeForToolName(name string) model.ActionType {
	lower := strings.ToLower(name)
	for _, entry := range toolActionSubstrings {
		if strings.Contains(lower, entry.substr) {
			return entry.action
		}
	}
	return ""
}

// selectTool maps a requested action type to a concrete tool, preferring
// an exact name match against availableTools, then the nearest type
// match via the substring table.
func selectTool(actionType model.ActionType, availableTools []tool.Tool) (string, model.ActionType) {
	for _, t := range availableTools {
		if strings.EqualFold(t.Name(), string(actionType)) {
			return t.Name(), actionType
		}
	}
	for _, t := range availableTools {
		if actionTypeForToolName(t.Name()) == actionType {
			return t.Name(), actionType
		}
	}
	if len(availableTools) > 0 {
		name := availableTools[0].Name()
		return name, actionTypeForToolName(name)
	}
	return "", actionType
}

func buildToolsBlock(tools []tool.Tool) string {
	var sb strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name(), t.Description())
	}
	return sb.String()
}

func buildRecentBlock(actions []model.Action, outcomes []model.Outcome, n int) (string, string) {
	start := 0
	if len(actions) > n {
		start = len(actions) - n
	}
	var actionsSB, outcomesSB strings.Builder
	for _, a := range actions[start:] {
		fmt.Fprintf(&actionsSB, "- %s via %s: %s\n", a.Type, a.Tool, a.Reasoning)
	}
	start = 0
	if len(outcomes) > n {
		start = len(outcomes) - n
	}
	for _, o := range outcomes[start:] {
		status := "succeeded"
		if !o.Success {
			status = "failed"
		}
		fmt.Fprintf(&outcomesSB, "- %s: %s\n", status, strings.Join(o.Observations, "; "))
	}
	return actionsSB.String(), outcomesSB.String()
}

func buildMemoryBlock(memCtx *memory.RetrievedContext) string {
	if memCtx == nil || (len(memCtx.Episodes) == 0 && len(memCtx.Facts) == 0 && len(memCtx.Strategies) == 0) {
		return ""
	}
	return "RELEVANT PAST EXPERIENCES:\n" + memory.FormatContextForPrompt(memCtx)
}

func buildReasonPrompt(goal model.Goal, progress model.Progress, wm model.WorkingMemory, tools []tool.Tool, memCtx *memory.RetrievedContext) string {
	actionsBlock, outcomesBlock := buildRecentBlock(wm.RecentActions, wm.RecentOutcomes, 5)

	var sb strings.Builder
	fmt.Fprintf(&sb, "GOAL:\n%s\nSuccess criteria: %s\nConstraints: %s\n\n",
		goal.Description, strings.Join(goal.SuccessCriteria, "; "), strings.Join(goal.Constraints, "; "))
	fmt.Fprintf(&sb, "CURRENT PROGRESS:\nphase=%s confidence=%.2f stepsCompleted=%d/%d sourcesGathered=%d factsExtracted=%d\n\n",
		progress.CurrentPhase, progress.Confidence, progress.StepsCompleted, progress.StepsTotal, progress.SourcesGathered, progress.FactsExtracted)
	sb.WriteString("RECENT ACTIONS:\n")
	sb.WriteString(actionsBlock)
	sb.WriteString("\nRECENT OUTCOMES:\n")
	sb.WriteString(outcomesBlock)
	sb.WriteString("\nAVAILABLE TOOLS:\n")
	sb.WriteString(buildToolsBlock(tools))
	if block := buildMemoryBlock(memCtx); block != "" {
		sb.WriteString("\n")
		sb.WriteString(block)
	}
	sb.WriteString("\nReturn a JSON object {\"options\":[{\"id\":...,\"action\":...,\"rationale\":...," +
		"\"expectedBenefit\":...,\"potentialRisks\":[...],\"estimatedCost\":1-10,\"confidence\":0-1}]} " +
		"listing candidate next actions.")
	return sb.String()
}

func scoreOption(opt reasoningOption) float64 {
	return 0.7*opt.Confidence + 0.3*(1-opt.EstimatedCost/10)
}

// Reason builds a prompt from the current state, asks the LLM for
// candidate next actions, scores and selects one, and resolves it to
// a concrete tool invocation.
func (r *Reasoner) Reason(ctx context.Context, goal model.Goal, progress model.Progress, wm model.WorkingMemory, availableTools []tool.Tool, memCtx *memory.RetrievedContext, sessionID string, topStrategy string) (*ReasonResult, error) {
	prompt := buildReasonPrompt(goal, progress, wm, availableTools, memCtx)

	resp, err := r.llm.Complete(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}}, llmclient.CompleteOptions{MaxTokens: 1024})

	var parsed reasoningOptionsResponse
	if err != nil {
		parsed = fallbackOptions(progress)
	} else if perr := llmclient.ParseJSONLoose(llmclient.ExtractText(resp), &parsed); perr != nil || len(parsed.Options) == 0 {
		parsed = fallbackOptions(progress)
	}

	best := parsed.Options[0]
	bestScore := scoreOption(best)
	for _, opt := range parsed.Options[1:] {
		if s := scoreOption(opt); s > bestScore {
			best, bestScore = opt, s
		}
	}

	toolName, actionType := selectTool(model.ActionType(best.Action), availableTools)

	action := model.Action{
		ID:        fmt.Sprintf("action-%s-%d", sessionID, progress.StepsCompleted),
		SessionID: sessionID,
		Type:      actionType,
		Tool:      toolName,
		Parameters: map[string]interface{}{},
		Reasoning: best.Rationale,
		Strategy:  topStrategy,
	}

	return &ReasonResult{
		Reasoning:      best.Rationale,
		SelectedAction: action,
		Confidence:     best.Confidence,
	}, nil
}

func fallbackOptions(progress model.Progress) reasoningOptionsResponse {
	action := phaseDefaultAction(progress.CurrentPhase, progress)
	return reasoningOptionsResponse{Options: []reasoningOption{{
		ID:         "fallback-option",
		Action:     string(action),
		Rationale:  "fallback: LLM response unparseable, using phase default",
		Confidence: 0.3,
	}}}
}

// ObserveResult is observe's return value.
type ObserveResult struct {
	Observations  []string
	Success       bool
	ShouldContinue bool
	ShouldReplan  bool
	Learnings     []string
}

type learningsResponse struct {
	Learnings []string `json:"learnings"`
}

// Observe extracts learnings from an executed action's outcome and
// decides whether the control loop should continue and/or replan. The
// caller invokes this before appending outcome to wm.RecentOutcomes, so
// the replan check ORs the current outcome's own success in separately
// rather than relying on it being present in the recent-failure window.
func (r *Reasoner) Observe(ctx context.Context, action model.Action, outcome model.Outcome, goal model.Goal, progress model.Progress, wm model.WorkingMemory) (*ObserveResult, error) {
	prompt := fmt.Sprintf(
		"Goal: %s\nAction: %s via %s\nOutcome: success=%v observations=%s error=%s\n"+
			"Return JSON {\"learnings\":[\"...\"]} of concise learnings from this step.",
		goal.Description, action.Type, action.Tool, outcome.Success, strings.Join(outcome.Observations, "; "), outcome.Error)

	resp, err := r.llm.Complete(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}}, llmclient.CompleteOptions{MaxTokens: 512})

	var parsed learningsResponse
	if err != nil || llmclient.ParseJSONLoose(llmclient.ExtractText(resp), &parsed) != nil || len(parsed.Learnings) == 0 {
		parsed.Learnings = []string{fallbackLearning(action, outcome)}
	}

	shouldContinue := progress.CurrentPhase != model.PhaseCompleted
	if !outcome.Success && progress.Confidence < 0.3 {
		shouldContinue = false
	}

	shouldReplan := !outcome.Success || lastNFailed(wm.RecentOutcomes, 3) || (progress.Confidence < 0.4 && progress.StepsCompleted >= 5)

	return &ObserveResult{
		Observations:  outcome.Observations,
		Success:       outcome.Success,
		ShouldContinue: shouldContinue,
		ShouldReplan:  shouldReplan,
		Learnings:     parsed.Learnings,
	}, nil
}

func fallbackLearning(action model.Action, outcome model.Outcome) string {
	status := "succeeded"
	detail := ""
	if len(outcome.Observations) > 0 {
		detail = outcome.Observations[0]
	}
	if !outcome.Success {
		status = "failed"
		detail = outcome.Error
	}
	return fmt.Sprintf("%s %s: %s", action.Tool, status, detail)
}

func lastNFailed(outcomes []model.Outcome, n int) bool {
	if len(outcomes) < n {
		return false
	}
	for _, o := range outcomes[len(outcomes)-n:] {
		if o.Success {
			return false
		}
	}
	return true
}
