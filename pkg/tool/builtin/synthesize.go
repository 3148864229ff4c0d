package builtin

import (
	"context"
	"fmt"
	"strings"

	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/tool"
)

// SynthesizeTool asks the LLM to weave accumulated findings into a
// coherent answer to the research goal.
type SynthesizeTool struct {
	llm llmclient.Client
}

func NewSynthesizeTool(llm llmclient.Client) *SynthesizeTool {
	return &SynthesizeTool{llm: llm}
}

func (t *SynthesizeTool) Name() string { return "synthesize" }
func (t *SynthesizeTool) Description() string {
	return "Synthesizes accumulated findings into a coherent answer to the research goal."
}
func (t *SynthesizeTool) Version() string { return "1.0.0" }

// synthesizeParams is SynthesizeTool's schema source: the LLM-facing
// parameter shape for a synthesize call.
type synthesizeParams struct {
	Goal     string   `json:"goal" jsonschema:"required,description=The research goal to synthesize an answer for"`
	Findings []string `json:"findings" jsonschema:"required,description=Accumulated findings to weave into the synthesis"`
}

func (t *SynthesizeTool) Schema() map[string]interface{} {
	return generateSchema[synthesizeParams]()
}

func (t *SynthesizeTool) ValidateInput(input map[string]interface{}) bool {
	goal, ok := input["goal"].(string)
	if !ok || goal == "" {
		return false
	}
	_, ok = input["findings"].([]interface{})
	return ok
}

type synthesisResult struct {
	Synthesis string `json:"synthesis"`
}

func (t *SynthesizeTool) Execute(ctx context.Context, input map[string]interface{}) tool.Result {
	goal := input["goal"].(string)
	rawFindings, _ := input["findings"].([]interface{})

	var sb strings.Builder
	for _, f := range rawFindings {
		if s, ok := f.(string); ok {
			sb.WriteString("- ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}

	prompt := fmt.Sprintf(
		"Research goal: %s\n\nFindings:\n%s\nReturn a JSON object {\"synthesis\": \"...\"} with a coherent answer.",
		goal, sb.String())

	resp, err := t.llm.Complete(ctx, []llmclient.Message{
		{Role: llmclient.RoleUser, Content: prompt},
	}, llmclient.CompleteOptions{MaxTokens: 1024})
	if err != nil {
		return tool.Result{Success: false, Error: fmt.Sprintf("synthesize: %v", err)}
	}

	var parsed synthesisResult
	if err := llmclient.ParseJSONLoose(llmclient.ExtractText(resp), &parsed); err != nil {
		return tool.Result{Success: false, Error: fmt.Sprintf("synthesize: unparseable response: %v", err)}
	}

	return tool.Result{Success: true, Data: map[string]interface{}{"synthesis": parsed.Synthesis}}
}
