// Package reflection implements the meta-cognitive layer that sits
// between the control loop and the memory system: AgentReflection
// decides when and how the loop should pause to assess its own
// progress, while ReflectionEngine runs read-only, memory-side
// analyses used on longer sessions.
package reflection

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/memory"
	"autoresearch/pkg/model"
)

const defaultReflectionInterval = 5

// ShouldReflectResult is shouldReflect's verdict.
type ShouldReflectResult struct {
	ShouldReflect bool
	Reason        string
}

// AgentReflection is the loop-side gate: it decides, once per
// iteration, whether the control loop should pause for a reflection
// pass, performs that pass, and reports whether the loop should
// discard its current plan.
type AgentReflection struct {
	llm                llmclient.Client
	memory             *memory.Memory
	reflectionInterval int
	maxIterations      int

	mu                    sync.Mutex
	lastReflectionIteration map[string]int
}

func NewAgentReflection(llm llmclient.Client, mem *memory.Memory, reflectionInterval, maxIterations int) *AgentReflection {
	if reflectionInterval <= 0 {
		reflectionInterval = defaultReflectionInterval
	}
	return &AgentReflection{
		llm:                llm,
		memory:             mem,
		reflectionInterval: reflectionInterval,
		maxIterations:      maxIterations,
		lastReflectionIteration: make(map[string]int),
	}
}

func (r *AgentReflection) lastIteration(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReflectionIteration[sessionID]
}

func (r *AgentReflection) setLastIteration(sessionID string, iteration int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastReflectionIteration[sessionID] = iteration
}

// ShouldReflect fires when the reflection interval has elapsed, the
// last several outcomes show a failure streak, confidence has dropped
// with enough iterations behind it to judge, or the loop is
// approaching its iteration limit without having completed.
func (r *AgentReflection) ShouldReflect(sessionID string, state *model.AgentState, recentOutcomes []model.Outcome) ShouldReflectResult {
	last := r.lastIteration(sessionID)

	if state.IterationCount-last >= r.reflectionInterval {
		return ShouldReflectResult{true, "reflection interval elapsed"}
	}
	if consecutiveFailures(recentOutcomes, 5) >= 3 {
		return ShouldReflectResult{true, "consecutive failures"}
	}
	if state.Progress.Confidence < 0.4 && state.IterationCount >= 3 {
		return ShouldReflectResult{true, "low confidence"}
	}
	if r.maxIterations > 0 && float64(state.IterationCount) >= 0.8*float64(r.maxIterations) && state.Progress.CurrentPhase != model.PhaseCompleted {
		return ShouldReflectResult{true, "approaching iteration limit"}
	}
	return ShouldReflectResult{false, ""}
}

func consecutiveFailures(outcomes []model.Outcome, window int) int {
	start := 0
	if len(outcomes) > window {
		start = len(outcomes) - window
	}
	failures := 0
	for _, o := range outcomes[start:] {
		if !o.Success {
			failures++
		}
	}
	return failures
}

func successRate(outcomes []model.Outcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	successes := 0
	for _, o := range outcomes {
		if o.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(outcomes))
}

// Reflect computes a full Reflection over the session's accumulated
// actions/outcomes, appends it to state, and resets the memory
// system's reflection counter.
func (r *AgentReflection) Reflect(ctx context.Context, sessionID string, state *model.AgentState, actions []model.Action, outcomes []model.Outcome) (*model.Reflection, error) {
	progressAssessment := r.assessProgress(state, outcomes)
	strategyEval := r.evaluateStrategy(ctx, state, actions, outcomes)
	learnings := extractReflectionLearnings(actions, outcomes)

	shouldReplan := !progressAssessment.IsOnTrack ||
		strategyEval.Recommendation == model.RecommendationChange ||
		consecutiveFailures(outcomes, 5) >= 3

	adjustments := append([]string{}, learnings...)
	if strategyEval.Recommendation == model.RecommendationAdjust {
		adjustments = append(adjustments, "Refine current strategy based on observations")
	}

	reflection := &model.Reflection{
		ID:                 fmt.Sprintf("reflection-%s-%d", sessionID, state.IterationCount),
		SessionID:          sessionID,
		IterationNumber:    state.IterationCount,
		ActionsSummary:     summarizeActions(actions),
		OutcomesSummary:    summarizeOutcomes(outcomes),
		ProgressAssessment: progressAssessment,
		StrategyEvaluation: strategyEval,
		Learnings:          learnings,
		ShouldReplan:       shouldReplan,
		Adjustments:        adjustments,
		NextFocus:          nextFocusForPhase(state.Progress.CurrentPhase),
	}

	state.Reflections = append(state.Reflections, *reflection)
	r.setLastIteration(sessionID, state.IterationCount)
	if r.memory != nil {
		r.memory.ResetReflectionCounter()
	}

	return reflection, nil
}

func (r *AgentReflection) assessProgress(state *model.AgentState, outcomes []model.Outcome) model.ProgressAssessment {
	progress := state.Progress
	iterations := state.IterationCount
	if iterations < 1 {
		iterations = 1
	}
	progressRate := float64(progress.StepsCompleted) / float64(iterations)

	const epsilon = 1e-6
	rate := progressRate
	if rate < epsilon {
		rate = epsilon
	}
	estimatedCompletion := float64(progress.StepsTotal-progress.StepsCompleted) / rate

	rate2 := successRate(outcomes)
	isOnTrack := float64(progress.StepsCompleted) > 0.15*float64(state.IterationCount) &&
		rate2 >= 0.5 && progress.Confidence >= 0.5

	var blockers []string
	if rate2 < 0.5 {
		blockers = append(blockers, "Frequent action failures")
	}
	if progress.Confidence < 0.4 {
		blockers = append(blockers, "Low confidence in current approach")
	}
	if len(state.WorkingMemory.OpenQuestions) > 5 {
		blockers = append(blockers, "Too many unanswered questions")
	}
	if progress.SourcesGathered < 2 {
		blockers = append(blockers, "Insufficient sources gathered")
	}

	var achievements []string
	if progress.SourcesGathered >= 5 {
		achievements = append(achievements, fmt.Sprintf("%d sources gathered", progress.SourcesGathered))
	}
	if progress.FactsExtracted >= 10 {
		achievements = append(achievements, fmt.Sprintf("%d facts extracted", progress.FactsExtracted))
	}
	if progress.Confidence >= 0.7 {
		achievements = append(achievements, "High confidence maintained")
	}
	if len(state.WorkingMemory.KeyFindings) >= 3 {
		achievements = append(achievements, fmt.Sprintf("%d key findings", len(state.WorkingMemory.KeyFindings)))
	}

	return model.ProgressAssessment{
		ProgressRate:        progressRate,
		EstimatedCompletion: estimatedCompletion,
		IsOnTrack:           isOnTrack,
		Blockers:            blockers,
		Achievements:        achievements,
	}
}

func (r *AgentReflection) evaluateStrategy(ctx context.Context, state *model.AgentState, actions []model.Action, outcomes []model.Outcome) model.StrategyEvaluation {
	effectiveness := successRate(outcomes)

	recommendation := model.RecommendationChange
	switch {
	case effectiveness >= 0.7:
		recommendation = model.RecommendationContinue
	case effectiveness >= 0.4:
		recommendation = model.RecommendationAdjust
	}

	strengths := toolSuccessStrengths(actions, outcomes)

	var weaknesses []string
	if effectiveness < 0.5 {
		weaknesses = append(weaknesses, "High failure rate")
	}
	if state.Plan != nil && state.IterationCount >= 10 {
		for _, step := range state.Plan.Steps {
			if step.Status == model.StepInProgress {
				weaknesses = append(weaknesses, "Stalled step")
				break
			}
		}
	}

	alternatives := r.alternativeStrategies(ctx, state, effectiveness)

	return model.StrategyEvaluation{
		Effectiveness:         effectiveness,
		Recommendation:        recommendation,
		Strengths:             strengths,
		Weaknesses:            weaknesses,
		AlternativeStrategies: alternatives,
	}
}

func (r *AgentReflection) alternativeStrategies(ctx context.Context, state *model.AgentState, effectiveness float64) []string {
	if r.llm == nil || effectiveness >= 0.7 {
		return nil
	}
	prompt := fmt.Sprintf(
		"The current research strategy for goal %q has an effectiveness of %.2f. "+
			"List, as a bulleted list, up to 3 alternative strategies worth trying.",
		state.Goal.Description, effectiveness)
	resp, err := r.llm.Complete(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}}, llmclient.CompleteOptions{MaxTokens: 256})
	if err != nil {
		return nil
	}
	return parseBulletedList(llmclient.ExtractText(resp))
}

func parseBulletedList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func toolSuccessStrengths(actions []model.Action, outcomes []model.Outcome) []string {
	type stat struct{ successes, total int }
	stats := make(map[string]*stat)

	n := len(actions)
	if len(outcomes) < n {
		n = len(outcomes)
	}
	for i := 0; i < n; i++ {
		s, ok := stats[actions[i].Tool]
		if !ok {
			s = &stat{}
			stats[actions[i].Tool] = s
		}
		s.total++
		if outcomes[i].Success {
			s.successes++
		}
	}

	var out []string
	for tool, s := range stats {
		if s.total >= 2 && float64(s.successes)/float64(s.total) >= 0.7 {
			out = append(out, tool)
		}
	}
	return out
}

func extractReflectionLearnings(actions []model.Action, outcomes []model.Outcome) []string {
	type stat struct{ successes, failures int }
	stats := make(map[string]*stat)

	n := len(actions)
	if len(outcomes) < n {
		n = len(outcomes)
	}
	for i := 0; i < n; i++ {
		s, ok := stats[actions[i].Tool]
		if !ok {
			s = &stat{}
			stats[actions[i].Tool] = s
		}
		if outcomes[i].Success {
			s.successes++
		} else {
			s.failures++
		}
	}

	var learnings []string
	for tool, s := range stats {
		if s.successes >= 2 && s.failures == 0 {
			learnings = append(learnings, fmt.Sprintf("%s is effective (%d successes)", tool, s.successes))
		}
		if s.failures >= 2 {
			learnings = append(learnings, fmt.Sprintf("%s needs improvement (%d failures)", tool, s.failures))
		}
	}

	if n >= 6 {
		window := actions[n-6:]
		counts := make(map[model.ActionType]int)
		for _, a := range window {
			counts[a.Type]++
		}
		for _, c := range counts {
			if c >= 4 {
				learnings = append(learnings, "Consider action diversity")
				break
			}
		}
	}

	return learnings
}

func nextFocusForPhase(phase model.Phase) string {
	switch phase {
	case model.PhasePlanning:
		return "Focus on building an initial plan"
	case model.PhaseGathering:
		return "Focus on gathering more sources"
	case model.PhaseAnalyzing:
		return "Focus on analyzing gathered content"
	case model.PhaseSynthesizing:
		return "Focus on synthesis phase"
	case model.PhaseVerifying:
		return "Focus on verifying key findings"
	default:
		return "Focus on completing the session"
	}
}

func summarizeActions(actions []model.Action) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = fmt.Sprintf("%s via %s", a.Type, a.Tool)
	}
	return strings.Join(parts, "; ")
}

func summarizeOutcomes(outcomes []model.Outcome) string {
	parts := make([]string, len(outcomes))
	for i, o := range outcomes {
		if o.Success {
			parts[i] = "succeeded"
		} else {
			parts[i] = "failed: " + o.Error
		}
	}
	return strings.Join(parts, "; ")
}

// ApplyResult is applyReflection's return value: whether the loop
// should discard its plan and what it should focus on next.
type ApplyResult struct {
	AdjustmentsMade         []string
	ShouldReplan            bool
	NewFocus                string
	StrategyRecommendation  model.StrategyRecommendation
}

// ApplyReflection surfaces a computed Reflection's verdict to the
// control loop.
func ApplyReflection(reflection *model.Reflection) ApplyResult {
	return ApplyResult{
		AdjustmentsMade:        reflection.Adjustments,
		ShouldReplan:           reflection.ShouldReplan,
		NewFocus:               reflection.NextFocus,
		StrategyRecommendation: reflection.StrategyEvaluation.Recommendation,
	}
}
