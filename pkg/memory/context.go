package memory

import (
	"context"
	"fmt"
	"strings"

	"autoresearch/pkg/model"
	"autoresearch/pkg/utils"
)

const defaultContextTokenBudget = 4000

// BuildContextOptions configures BuildContext's retrieval and the
// token budget it is packed against.
type BuildContextOptions struct {
	MaxTokens       int
	EpisodeBudget   int
	FactBudget      int
	StrategyBudget  int
	AvailableTools  []string
}

// RetrievedContext is the packed memory context handed to the
// reasoning engine's prompt assembly.
type RetrievedContext struct {
	Episodes    []*model.EpisodicMemory
	Facts       []*model.Fact
	Strategies  []StrategyRecommendation
	TotalTokens int
	Truncated   struct {
		Episodes   bool
		Facts      bool
		Strategies bool
	}
}

// ContextBuilder packs episodes, facts, and strategies relevant to a
// query into a token-budgeted RetrievedContext.
type ContextBuilder struct {
	episodic   *EpisodicManager
	semantic   *SemanticManager
	procedural *ProceduralManager
	counter    *utils.TokenCounter
}

func NewContextBuilder(episodic *EpisodicManager, semantic *SemanticManager, procedural *ProceduralManager) *ContextBuilder {
	counter, err := utils.NewTokenCounter("gpt-4")
	if err != nil {
		counter = nil
	}
	return &ContextBuilder{episodic: episodic, semantic: semantic, procedural: procedural, counter: counter}
}

func (b *ContextBuilder) estimateTokens(text string) int {
	if b.counter != nil {
		return b.counter.Count(text)
	}
	return len(text) / 4
}

// BuildContext retrieves the most relevant episodes, facts, and
// strategies for query, packing each category against its slice of
// the token budget (default split 40% episodes / 40% facts / 20%
// strategies when per-type budgets are not given).
func (b *ContextBuilder) BuildContext(ctx context.Context, query string, opts BuildContextOptions) (*RetrievedContext, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultContextTokenBudget
	}

	episodeBudget, factBudget, strategyBudget := opts.EpisodeBudget, opts.FactBudget, opts.StrategyBudget
	if episodeBudget == 0 && factBudget == 0 && strategyBudget == 0 {
		episodeBudget = int(0.4 * float64(maxTokens))
		factBudget = int(0.4 * float64(maxTokens))
		strategyBudget = maxTokens - episodeBudget - factBudget
	}

	result := &RetrievedContext{}

	episodes, err := b.episodic.SearchEpisodes(ctx, query, EpisodicSearchOptions{Limit: 20})
	if err != nil {
		return nil, fmt.Errorf("memory: build context: %w", err)
	}
	spent := 0
	for _, e := range episodes {
		tokens := b.estimateTokens(e.Topic + e.Summary)
		if spent+tokens > episodeBudget {
			result.Truncated.Episodes = true
			break
		}
		result.Episodes = append(result.Episodes, e)
		spent += tokens
	}
	result.TotalTokens += spent

	facts, err := b.semantic.SearchFacts(ctx, query, 20)
	if err != nil {
		return nil, fmt.Errorf("memory: build context: %w", err)
	}
	spent = 0
	for _, f := range facts {
		tokens := b.estimateTokens(f.Content)
		if spent+tokens > factBudget {
			result.Truncated.Facts = true
			break
		}
		result.Facts = append(result.Facts, f)
		spent += tokens
	}
	result.TotalTokens += spent

	recs, err := b.procedural.GetRecommendations(ctx, query, opts.AvailableTools, 10)
	if err != nil {
		return nil, fmt.Errorf("memory: build context: %w", err)
	}
	spent = 0
	for _, r := range recs {
		tokens := b.estimateTokens(r.Strategy.Description)
		if spent+tokens > strategyBudget {
			result.Truncated.Strategies = true
			break
		}
		result.Strategies = append(result.Strategies, r)
		spent += tokens
	}
	result.TotalTokens += spent

	return result, nil
}

// FormatContextForPrompt renders a RetrievedContext as the three
// labeled sections the reasoning engine's prompt expects.
func FormatContextForPrompt(c *RetrievedContext) string {
	if c == nil {
		return ""
	}
	var sb strings.Builder

	if len(c.Episodes) > 0 {
		sb.WriteString("Past Experiences:\n")
		for _, e := range c.Episodes {
			fmt.Fprintf(&sb, "- [%s] %s\n", e.Topic, e.Summary)
		}
		if c.Truncated.Episodes {
			sb.WriteString("(additional past experiences omitted due to context budget)\n")
		}
		sb.WriteString("\n")
	}

	if len(c.Facts) > 0 {
		sb.WriteString("Known Facts:\n")
		for _, f := range c.Facts {
			fmt.Fprintf(&sb, "- (%s, confidence %.2f) %s\n", f.Category, f.Confidence, f.Content)
		}
		if c.Truncated.Facts {
			sb.WriteString("(additional facts omitted due to context budget)\n")
		}
		sb.WriteString("\n")
	}

	if len(c.Strategies) > 0 {
		sb.WriteString("Effective Strategies:\n")
		for _, r := range c.Strategies {
			fmt.Fprintf(&sb, "- %s (score %.2f): %s\n", r.Strategy.StrategyName, r.RelevanceScore, r.Reasoning)
		}
		if c.Truncated.Strategies {
			sb.WriteString("(additional strategies omitted due to context budget)\n")
		}
	}

	return sb.String()
}
