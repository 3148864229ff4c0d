// Package agent implements the Control Loop: the single cooperative
// task that drives one research session from its initial plan through
// reason/act/observe/store iterations to a synthesized result. Every
// other package (memory, reasoning, reflection, tool) is a dependency
// wired in at construction; this package owns no persistence of its
// own beyond the in-flight AgentState.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"autoresearch/pkg/config"
	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/memory"
	"autoresearch/pkg/model"
	"autoresearch/pkg/reasoning"
	"autoresearch/pkg/reflection"
	"autoresearch/pkg/tool"
)

// Agent is the Control Loop, wired once over the memory system,
// reasoning engine, reflection gate, and tool registry, and reused
// across research runs (StartSession enforces one active session at a
// time).
type Agent struct {
	memory     *memory.Memory
	reasoner   *reasoning.Reasoner
	reflection *reflection.AgentReflection
	tools      *tool.Registry
	llmClient  llmclient.Client
	cfg        config.AgentConfig
	logger     *slog.Logger
}

// New wires an Agent over its dependencies. cfg is copied and defaults
// are applied. llm is used directly for plan-creation and synthesis
// prompts, which don't fit the reasoner's reason/observe shape.
func New(mem *memory.Memory, reasoner *reasoning.Reasoner, refl *reflection.AgentReflection, tools *tool.Registry, llm llmclient.Client, cfg config.AgentConfig, logger *slog.Logger) *Agent {
	cfg.SetDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{memory: mem, reasoner: reasoner, reflection: refl, tools: tools, llmClient: llm, cfg: cfg, logger: logger}
}

// Research executes one full research run for topic/goal: session and
// state initialization, plan creation, the iteration loop, goal
// completion, final synthesis, and session completion. No panic or
// error escapes this call — failures are mapped to a failed
// AgentExecutionResult.
func (a *Agent) Research(ctx context.Context, topic string, goal model.Goal) (result *model.AgentExecutionResult, err error) {
	var state *model.AgentState

	defer func() {
		if rec := recover(); rec != nil {
			iterations := 0
			if state != nil {
				iterations = state.IterationCount
			}
			result = &model.AgentExecutionResult{Success: false, Error: fmt.Sprintf("research: panic: %v", rec), Iterations: iterations}
			err = nil
		}
	}()

	session, startErr := a.memory.StartSession(ctx, topic, goal, "")
	if startErr != nil {
		return &model.AgentExecutionResult{Success: false, Error: startErr.Error()}, nil
	}

	state = model.NewAgentState(session.ID, goal)

	plan, planErr := a.createPlan(ctx, goal, session.ID)
	if planErr != nil {
		a.logger.Warn("agent: createPlan failed, using fallback plan", "error", planErr)
	}
	state.Plan = plan
	state.Progress.StepsTotal = len(plan.Steps)
	state.Progress.CurrentPhase = model.PhaseGathering

	var allActions []model.Action
	var fetchedURLs = make(map[string]bool)

	shouldContinue := true
	for shouldContinue && state.IterationCount < a.cfg.MaxIterations {
		state.IterationCount++
		state.LastActionTimestamp = time.Now().UTC()

		if a.cfg.EnableAutoReflection && a.reflection != nil {
			verdict := a.reflection.ShouldReflect(session.ID, state, state.WorkingMemory.RecentOutcomes)
			if verdict.ShouldReflect {
				refl, rerr := a.reflection.Reflect(ctx, session.ID, state, allActions, state.WorkingMemory.RecentOutcomes)
				if rerr != nil {
					a.logger.Warn("agent: reflect failed", "error", rerr)
				} else {
					applied := reflection.ApplyReflection(refl)
					if applied.ShouldReplan {
						if newPlan, rperr := a.createPlan(ctx, goal, session.ID); rperr == nil {
							state.Plan = newPlan
							state.Progress.StepsTotal = len(newPlan.Steps)
						}
					}
				}
			}
		}

		memCtx, mcErr := a.memory.BuildContext(ctx, topic+" "+goal.Description, a.enabledToolNames())
		if mcErr != nil {
			a.logger.Warn("agent: buildContext failed", "error", mcErr)
			memCtx = &memory.RetrievedContext{}
		}
		topStrategy := ""
		if len(memCtx.Strategies) > 0 {
			topStrategy = memCtx.Strategies[0].Strategy.StrategyName
		}

		reasoned, rErr := a.reasoner.Reason(ctx, goal, state.Progress, state.WorkingMemory, a.tools.GetEnabledTools(), memCtx, session.ID, topStrategy)
		if rErr != nil {
			a.logger.Warn("agent: reason failed", "error", rErr)
			break
		}
		action := reasoned.SelectedAction
		action.Timestamp = time.Now().UTC()

		var execResult tool.Result
		var duration time.Duration

		if !bindParameters(&action, state.WorkingMemory, goal, fetchedURLs) {
			execResult = tool.Result{Success: false, Error: "validation error: could not bind required parameters"}
		} else {
			start := time.Now()
			execResult = a.tools.ExecuteTool(ctx, action.Tool, action.Parameters)
			duration = time.Since(start)

			if action.Tool == "fetch" {
				if url, ok := action.Parameters["url"].(string); ok {
					fetchedURLs[url] = true
				}
			}
		}

		outcome := composeOutcome(action.ID, action.Tool, execResult, duration)

		observation, obsErr := a.reasoner.Observe(ctx, action, outcome, goal, state.Progress, state.WorkingMemory)
		if obsErr != nil {
			a.logger.Warn("agent: observe failed", "error", obsErr)
			observation = &reasoning.ObserveResult{ShouldContinue: true}
		}

		appendFindings(&state.WorkingMemory, action, execResult)

		summary := fmt.Sprintf("%s: %s. %s", action.Tool, successWord(outcome.Success), strings.Join(observation.Learnings, "; "))
		if _, seErr := a.memory.StoreExperience(ctx, session.ID, []model.Action{action}, []model.Outcome{outcome}, state.WorkingMemory.KeyFindings, summary); seErr != nil {
			a.logger.Warn("agent: storeExperience failed", "error", seErr)
		}

		updateProgress(&state.Progress, execResult, outcome.Success)
		bookkeepPlan(state.Plan, &state.Progress, action, outcome.Success)

		if observation.ShouldReplan {
			if newPlan, rperr := a.createPlan(ctx, goal, session.ID); rperr == nil {
				state.Plan = newPlan
				state.Progress.StepsTotal = len(newPlan.Steps)
			}
		}

		a.finishIteration(ctx, state, session.ID, action, outcome, &allActions)

		shouldContinue = observation.ShouldContinue && !isGoalComplete(state.Progress)
	}

	if a.cfg.EnableAutoReflection && a.reflection != nil {
		if refl, rerr := a.reflection.Reflect(ctx, session.ID, state, allActions, state.WorkingMemory.RecentOutcomes); rerr == nil {
			_ = refl
		}
	}

	researchResult := a.synthesizeResult(ctx, session, state, allActions)

	if err := a.memory.CompleteSession(ctx); err != nil {
		a.logger.Warn("agent: completeSession failed", "error", err)
	}

	return &model.AgentExecutionResult{
		Success:     true,
		Result:      researchResult,
		Iterations:  state.IterationCount,
		Reflections: len(state.Reflections),
	}, nil
}

// finishIteration records the action into working memory and trims
// every window to its limit, per iteration step 13.
func (a *Agent) finishIteration(ctx context.Context, state *model.AgentState, sessionID string, action model.Action, outcome model.Outcome, allActions *[]model.Action) {
	state.WorkingMemory.RecentActions = append(state.WorkingMemory.RecentActions, action)
	state.WorkingMemory.RecentOutcomes = append(state.WorkingMemory.RecentOutcomes, outcome)
	state.WorkingMemory.Trim()
	*allActions = append(*allActions, action)
}

func (a *Agent) enabledToolNames() []string {
	tools := a.tools.GetEnabledTools()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}

func successWord(success bool) string {
	if success {
		return "succeeded"
	}
	return "failed"
}

// isGoalComplete is the goal-completion check evaluated each
// iteration: synthesizing phase, high confidence, and enough facts and
// sources gathered.
func isGoalComplete(progress model.Progress) bool {
	return progress.CurrentPhase == model.PhaseSynthesizing &&
		progress.Confidence >= 0.7 &&
		progress.FactsExtracted >= 10 &&
		progress.SourcesGathered >= 5
}

// updateProgress transitions phase by counter thresholds, increments
// sources/facts counters from the tool result, and adjusts confidence.
func updateProgress(progress *model.Progress, result tool.Result, success bool) {
	if result.Success {
		if results, ok := result.Data["results"].([]map[string]interface{}); ok {
			progress.SourcesGathered += len(results)
		}
		if facts, ok := result.Data["facts"].([]map[string]interface{}); ok {
			progress.FactsExtracted += len(facts)
		}
	}

	switch {
	case progress.FactsExtracted >= 10:
		progress.CurrentPhase = model.PhaseSynthesizing
	case progress.SourcesGathered >= 5 && progress.FactsExtracted < 10:
		progress.CurrentPhase = model.PhaseAnalyzing
	default:
		if progress.CurrentPhase != model.PhaseSynthesizing && progress.CurrentPhase != model.PhaseAnalyzing {
			progress.CurrentPhase = model.PhaseGathering
		}
	}

	if success {
		progress.Confidence += 0.1
	} else {
		progress.Confidence -= 0.05
	}
	progress.ClampConfidence()
}

// bookkeepPlan advances the first pending step whose action matches
// the executed action's tool or type, and keeps Progress's step
// counters in sync with the plan.
func bookkeepPlan(plan *model.ResearchPlan, progress *model.Progress, action model.Action, success bool) {
	if plan == nil {
		return
	}
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if step.Status != model.StepPending {
			continue
		}
		if step.Action != action.Tool && step.Action != string(action.Type) {
			continue
		}
		if success {
			step.Status = model.StepCompleted
			progress.StepsCompleted++
		} else {
			step.Status = model.StepFailed
		}
		break
	}
	progress.StepsTotal = len(plan.Steps)
}

// appendFindings converts a successful analyze tool's extracted facts
// into Finding records and adds them to working memory's key findings
// window.
func appendFindings(wm *model.WorkingMemory, action model.Action, result tool.Result) {
	if !result.Success || action.Tool != "analyze" {
		return
	}
	facts, ok := result.Data["facts"].([]map[string]interface{})
	if !ok {
		return
	}
	now := time.Now().UTC()
	for i, f := range facts {
		statement, _ := f["statement"].(string)
		if statement == "" {
			continue
		}
		confidence, _ := f["confidence"].(float64)
		wm.KeyFindings = append(wm.KeyFindings, model.Finding{
			ID:                 fmt.Sprintf("finding-%s-%d", action.ID, i),
			Content:            statement,
			Source:             model.Source{Type: "webpage"},
			Confidence:         confidence,
			Relevance:          1.0,
			Timestamp:          now,
			VerificationStatus: model.VerificationUnverified,
		})
	}
}

func composeOutcome(actionID, toolName string, result tool.Result, duration time.Duration) model.Outcome {
	var observations []string
	if result.Success {
		observations = append(observations, fmt.Sprintf("Successfully executed %s", toolName))
		switch {
		case result.Data["results"] != nil:
			if items, ok := result.Data["results"].([]map[string]interface{}); ok {
				observations = append(observations, fmt.Sprintf("Found %d results", len(items)))
			}
		case result.Data["content"] != nil:
			if content, ok := result.Data["content"].(string); ok {
				observations = append(observations, fmt.Sprintf("Fetched content (%d chars)", len(content)))
			}
		case result.Data["facts"] != nil:
			if facts, ok := result.Data["facts"].([]map[string]interface{}); ok {
				observations = append(observations, fmt.Sprintf("Extracted %d facts", len(facts)))
			}
		case result.Data["synthesis"] != nil:
			observations = append(observations, "Generated synthesis")
		}
	} else {
		observations = append(observations, fmt.Sprintf("Failed to execute %s: %s", toolName, result.Error))
	}

	return model.Outcome{
		ActionID:     actionID,
		Success:      result.Success,
		Result:       result.Data,
		Error:        result.Error,
		Observations: observations,
		DurationMS:   duration.Milliseconds(),
		Timestamp:    time.Now().UTC(),
	}
}
