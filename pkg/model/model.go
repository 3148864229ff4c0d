// Package model defines the entity types shared across the research
// agent: goals, sessions, plans, working memory, actions/outcomes,
// findings, and the three memory-tier records. Every entity carries a
// stable string id and is safe to marshal to JSON for document-store
// persistence.
package model

import (
	"time"

	"github.com/google/uuid"
)

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// ComplexityLevel classifies how involved a Goal is expected to be.
type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityModerate ComplexityLevel = "moderate"
	ComplexityComplex  ComplexityLevel = "complex"
)

// Goal is immutable for the lifetime of a session.
type Goal struct {
	Description         string          `json:"description"`
	SuccessCriteria     []string        `json:"success_criteria"`
	Constraints         []string        `json:"constraints,omitempty"`
	EstimatedComplexity ComplexityLevel `json:"estimated_complexity"`
}

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionPaused    SessionStatus = "paused"
	SessionCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether status is one that sets CompletedAt.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionCancelled:
		return true
	default:
		return false
	}
}

// Session is the root record of one research run.
type Session struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id,omitempty"`
	Topic           string        `json:"topic"`
	Goal            Goal          `json:"goal"`
	Status          SessionStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	ParentSessionID string        `json:"parent_session_id,omitempty"`
}

// NewSession constructs an active session for topic/goal.
func NewSession(topic string, goal Goal, userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        newID("session"),
		UserID:    userID,
		Topic:     topic,
		Goal:      goal,
		Status:    SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Phase is the coarse research-lifecycle state driving default action
// selection.
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseGathering    Phase = "gathering"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseVerifying    Phase = "verifying"
	PhaseCompleted    Phase = "completed"
)

// Progress tracks quantitative and qualitative run state.
type Progress struct {
	StepsCompleted  int     `json:"steps_completed"`
	StepsTotal      int     `json:"steps_total"`
	SourcesGathered int     `json:"sources_gathered"`
	FactsExtracted  int     `json:"facts_extracted"`
	CurrentPhase    Phase   `json:"current_phase"`
	Confidence      float64 `json:"confidence"`
}

// ClampConfidence keeps Confidence within [0,1].
func (p *Progress) ClampConfidence() {
	if p.Confidence < 0 {
		p.Confidence = 0
	}
	if p.Confidence > 1 {
		p.Confidence = 1
	}
}

// StepStatus is the lifecycle state of a PlannedStep.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

// PlannedStep is one node of a ResearchPlan.
type PlannedStep struct {
	ID              string     `json:"id"`
	Description     string     `json:"description"`
	Action          string     `json:"action"`
	Dependencies    []string   `json:"dependencies,omitempty"`
	Status          StepStatus `json:"status"`
	ExpectedOutcome string     `json:"expected_outcome,omitempty"`
}

// ResearchPlan is the control loop's working plan, replaced wholesale on
// replan.
type ResearchPlan struct {
	ID                string        `json:"id"`
	Strategy          string        `json:"strategy"`
	Steps             []PlannedStep `json:"steps"`
	EstimatedDuration int           `json:"estimated_duration_seconds"`
	CreatedAt         time.Time     `json:"created_at"`
	RevisedAt         *time.Time    `json:"revised_at,omitempty"`
	RevisionReason    string        `json:"revision_reason,omitempty"`
}

// WorkingMemoryLimit is the cap on every WorkingMemory sliding window.
const WorkingMemoryLimit = 20

// WorkingMemory holds bounded sliding windows of recent state, trimmed to
// WorkingMemoryLimit entries after every iteration.
type WorkingMemory struct {
	RecentActions  []Action  `json:"recent_actions"`
	RecentOutcomes []Outcome `json:"recent_outcomes"`
	KeyFindings    []Finding `json:"key_findings"`
	OpenQuestions  []string  `json:"open_questions"`
	Hypotheses     []string  `json:"hypotheses"`
}

// Trim truncates every window to at most WorkingMemoryLimit entries,
// keeping the most recent.
func (w *WorkingMemory) Trim() {
	if n := len(w.RecentActions); n > WorkingMemoryLimit {
		w.RecentActions = w.RecentActions[n-WorkingMemoryLimit:]
	}
	if n := len(w.RecentOutcomes); n > WorkingMemoryLimit {
		w.RecentOutcomes = w.RecentOutcomes[n-WorkingMemoryLimit:]
	}
	if n := len(w.KeyFindings); n > WorkingMemoryLimit {
		w.KeyFindings = w.KeyFindings[n-WorkingMemoryLimit:]
	}
	if n := len(w.OpenQuestions); n > WorkingMemoryLimit {
		w.OpenQuestions = w.OpenQuestions[n-WorkingMemoryLimit:]
	}
	if n := len(w.Hypotheses); n > WorkingMemoryLimit {
		w.Hypotheses = w.Hypotheses[n-WorkingMemoryLimit:]
	}
}

// ActionType enumerates the tool-name-independent action categories.
type ActionType string

const (
	ActionSearch     ActionType = "search"
	ActionFetch      ActionType = "fetch"
	ActionAnalyze    ActionType = "analyze"
	ActionExtract    ActionType = "extract"
	ActionVerify     ActionType = "verify"
	ActionSynthesize ActionType = "synthesize"
	ActionReflect    ActionType = "reflect"
	ActionReplan     ActionType = "replan"
)

// Action is a single tool-invocation proposal produced by the reasoner.
type Action struct {
	ID         string                 `json:"id"`
	SessionID  string                 `json:"session_id"`
	Type       ActionType             `json:"type"`
	Tool       string                 `json:"tool"`
	Parameters map[string]interface{} `json:"parameters"`
	Reasoning  string                 `json:"reasoning"`
	Strategy   string                 `json:"strategy,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Outcome is the recorded result of executing an Action.
type Outcome struct {
	ActionID     string                 `json:"action_id"`
	Success      bool                   `json:"success"`
	Result       map[string]interface{} `json:"result,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Observations []string               `json:"observations"`
	DurationMS   int64                  `json:"duration_ms"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// VerificationStatus is the provenance-confidence state of a Finding.
type VerificationStatus string

const (
	VerificationVerified   VerificationStatus = "verified"
	VerificationUnverified VerificationStatus = "unverified"
	VerificationDisputed   VerificationStatus = "disputed"
)

// Source describes where a Finding came from.
type Source struct {
	URL         string   `json:"url,omitempty"`
	Title       string   `json:"title,omitempty"`
	Type        string   `json:"type"`
	Credibility *float64 `json:"credibility,omitempty"`
}

// Finding is a piece of evidence with provenance extracted during
// research.
type Finding struct {
	ID                 string             `json:"id"`
	Content             string             `json:"content"`
	Source              Source             `json:"source"`
	Confidence          float64            `json:"confidence"`
	Relevance           float64            `json:"relevance"`
	Timestamp           time.Time          `json:"timestamp"`
	VerificationStatus  VerificationStatus `json:"verification_status"`
	RelatedFindings     []string           `json:"related_findings,omitempty"`
}

// Feedback is user- or system-supplied commentary on a session,
// persisted alongside it (document-store record kind).
type Feedback struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Reflection is a meta-cognitive record of progress, strategy
// evaluation, and learnings produced by the Reflection Engine.
type Reflection struct {
	ID                 string             `json:"id"`
	SessionID          string             `json:"session_id"`
	IterationNumber    int                `json:"iteration_number"`
	Timestamp          time.Time          `json:"timestamp"`
	ActionsSummary     string             `json:"actions_summary"`
	OutcomesSummary    string             `json:"outcomes_summary"`
	ProgressAssessment ProgressAssessment `json:"progress_assessment"`
	StrategyEvaluation StrategyEvaluation `json:"strategy_evaluation"`
	Learnings          []string           `json:"learnings"`
	ShouldReplan       bool               `json:"should_replan"`
	Adjustments        []string           `json:"adjustments"`
	NextFocus          string             `json:"next_focus"`
}

// ProgressAssessment is the progress half of a Reflection.
type ProgressAssessment struct {
	ProgressRate        float64  `json:"progress_rate"`
	EstimatedCompletion float64  `json:"estimated_completion"`
	IsOnTrack           bool     `json:"is_on_track"`
	Blockers            []string `json:"blockers"`
	Achievements        []string `json:"achievements"`
}

// StrategyRecommendation is the action in Reflection's recommendation
// enum.
type StrategyRecommendation string

const (
	RecommendationContinue StrategyRecommendation = "continue"
	RecommendationAdjust   StrategyRecommendation = "adjust"
	RecommendationChange   StrategyRecommendation = "change"
)

// StrategyEvaluation is the strategy-effectiveness half of a Reflection.
type StrategyEvaluation struct {
	Effectiveness         float64                `json:"effectiveness"`
	Recommendation        StrategyRecommendation `json:"recommendation"`
	Strengths             []string               `json:"strengths"`
	Weaknesses            []string               `json:"weaknesses"`
	AlternativeStrategies []string               `json:"alternative_strategies,omitempty"`
}

// AgentState is the mutable per-iteration scratchpad co-owned with the
// session.
type AgentState struct {
	SessionID           string        `json:"session_id"`
	Goal                Goal          `json:"goal"`
	Plan                *ResearchPlan `json:"plan"`
	Progress            Progress      `json:"progress"`
	WorkingMemory       WorkingMemory `json:"working_memory"`
	Reflections         []Reflection  `json:"reflections"`
	IterationCount      int           `json:"iteration_count"`
	LastActionTimestamp time.Time     `json:"last_action_timestamp"`
}

// NewAgentState builds the initial state for a freshly started session.
func NewAgentState(sessionID string, goal Goal) *AgentState {
	return &AgentState{
		SessionID: sessionID,
		Goal:      goal,
		Progress: Progress{
			CurrentPhase: PhasePlanning,
			Confidence:   0.5,
		},
	}
}

// EpisodicMemory is one atomic unit of experience persisted by
// storeExperience; episodes are immutable once consolidated.
type EpisodicMemory struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Topic     string    `json:"topic"`
	Actions   []Action  `json:"actions"`
	Outcomes  []Outcome `json:"outcomes"`
	Findings  []Finding `json:"findings"`
	Duration  int64     `json:"duration_ms"`
	Success   bool      `json:"success"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	Embedding []float32 `json:"embedding,omitempty"`
	Feedback  *Feedback `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEpisodicMemory assigns an id and creation timestamp.
func NewEpisodicMemory(sessionID, topic string) *EpisodicMemory {
	return &EpisodicMemory{
		ID:        newID("episode"),
		SessionID: sessionID,
		Topic:     topic,
		CreatedAt: time.Now().UTC(),
	}
}

// Fact is a consolidated declarative statement in semantic memory.
type Fact struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	Subcategory  string    `json:"subcategory,omitempty"`
	Source       string    `json:"source"`
	Confidence   float64   `json:"confidence"`
	Relevance    float64   `json:"relevance"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int       `json:"access_count"`
	LastModified time.Time `json:"last_modified"`
	Tags         []string  `json:"tags,omitempty"`
	RelatedFacts []string  `json:"related_facts,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// NewFact assigns an id and initializes timestamps/counters.
func NewFact(content, category, source string) *Fact {
	now := time.Now().UTC()
	return &Fact{
		ID:           newID("fact"),
		Content:      content,
		Category:     category,
		Source:       source,
		CreatedAt:    now,
		LastAccessed: now,
		LastModified: now,
		Relevance:    1.0,
	}
}

// Refinement is one recorded adjustment to a Strategy over its
// lifetime.
type Refinement struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// Strategy (ProceduralMemory) is a named procedural pattern reusable
// across sessions.
type Strategy struct {
	ID                 string       `json:"id"`
	StrategyName       string       `json:"strategy_name"`
	Description        string       `json:"description"`
	ApplicableContexts []string     `json:"applicable_contexts"`
	RequiredTools      []string     `json:"required_tools"`
	SuccessRate        float64      `json:"success_rate"`
	AverageDuration    float64      `json:"average_duration_ms"`
	TimesUsed          int          `json:"times_used"`
	Refinements        []Refinement `json:"refinements"`
	CreatedAt          time.Time    `json:"created_at"`
	LastUsed           *time.Time   `json:"last_used,omitempty"`
	LastRefined        *time.Time   `json:"last_refined,omitempty"`
}

// NewStrategy assigns an id and creation timestamp.
func NewStrategy(name, description string, contexts, tools []string) *Strategy {
	return &Strategy{
		ID:                 newID("strategy"),
		StrategyName:       name,
		Description:        description,
		ApplicableContexts: contexts,
		RequiredTools:      tools,
		CreatedAt:          time.Now().UTC(),
	}
}

// ResearchResult is the final artifact returned by a successful run.
type ResearchResult struct {
	SessionID            string    `json:"session_id"`
	Topic                string    `json:"topic"`
	Goal                 Goal      `json:"goal"`
	Synthesis            string    `json:"synthesis"`
	KeyFindings          []Finding `json:"key_findings"`
	Sources              []Source  `json:"sources"`
	Confidence           float64   `json:"confidence"`
	Completeness         float64   `json:"completeness"`
	Duration             int64     `json:"duration_ms"`
	TotalActions         int       `json:"total_actions"`
	TotalReflections     int       `json:"total_reflections"`
	StrategiesUsed       []string  `json:"strategies_used"`
	SuccessfulApproaches []string  `json:"successful_approaches"`
	Challenges           []string  `json:"challenges"`
	Suggestions          []string  `json:"suggestions"`
}

// AgentExecutionResult is the outermost return value of a research run.
type AgentExecutionResult struct {
	Success     bool            `json:"success"`
	Result      *ResearchResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Iterations  int             `json:"iterations"`
	Reflections int             `json:"reflections"`
}
