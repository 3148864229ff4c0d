package builtin

import (
	"context"
	"fmt"

	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/tool"
)

// AnalyzeTool asks the LLM to extract discrete, checkable facts from a
// block of fetched content.
type AnalyzeTool struct {
	llm llmclient.Client
}

func NewAnalyzeTool(llm llmclient.Client) *AnalyzeTool {
	return &AnalyzeTool{llm: llm}
}

func (t *AnalyzeTool) Name() string { return "analyze" }
func (t *AnalyzeTool) Description() string {
	return "Extracts discrete facts relevant to a research goal from a piece of content."
}
func (t *AnalyzeTool) Version() string { return "1.0.0" }

// analyzeParams is AnalyzeTool's schema source: the LLM-facing
// parameter shape for an analyze call.
type analyzeParams struct {
	Content string `json:"content" jsonschema:"required,description=The content to extract facts from"`
	Goal    string `json:"goal,omitempty" jsonschema:"description=The research goal facts should be relevant to"`
}

func (t *AnalyzeTool) Schema() map[string]interface{} {
	return generateSchema[analyzeParams]()
}

func (t *AnalyzeTool) ValidateInput(input map[string]interface{}) bool {
	content, ok := input["content"].(string)
	return ok && content != ""
}

type factExtraction struct {
	Facts []struct {
		Statement  string  `json:"statement"`
		Confidence float64 `json:"confidence"`
		Category   string  `json:"category"`
	} `json:"facts"`
}

func (t *AnalyzeTool) Execute(ctx context.Context, input map[string]interface{}) tool.Result {
	content := input["content"].(string)
	goal, _ := input["goal"].(string)

	prompt := fmt.Sprintf(
		"Research goal: %s\n\nExtract a JSON object {\"facts\":[{\"statement\":...,\"confidence\":0-1,\"category\":...}]} "+
			"of discrete, checkable facts from the following content:\n\n%s", goal, content)

	resp, err := t.llm.Complete(ctx, []llmclient.Message{
		{Role: llmclient.RoleUser, Content: prompt},
	}, llmclient.CompleteOptions{MaxTokens: 1024})
	if err != nil {
		return tool.Result{Success: false, Error: fmt.Sprintf("analyze: %v", err)}
	}

	var parsed factExtraction
	if err := llmclient.ParseJSONLoose(llmclient.ExtractText(resp), &parsed); err != nil {
		return tool.Result{Success: false, Error: fmt.Sprintf("analyze: unparseable response: %v", err)}
	}

	facts := make([]map[string]interface{}, len(parsed.Facts))
	for i, f := range parsed.Facts {
		facts[i] = map[string]interface{}{
			"statement":  f.Statement,
			"confidence": f.Confidence,
			"category":   f.Category,
		}
	}

	return tool.Result{Success: true, Data: map[string]interface{}{"facts": facts}}
}
