package agent

import (
	"fmt"
	"strings"

	"autoresearch/pkg/model"
)

// bindParameters fills action.Parameters from working memory and the
// goal, by tool type. It reports false when no valid parameters could
// be bound (the caller records a validation-error outcome instead of
// executing the tool).
func bindParameters(action *model.Action, wm model.WorkingMemory, goal model.Goal, fetchedURLs map[string]bool) bool {
	switch action.Tool {
	case "search":
		action.Parameters["query"] = buildSearchQuery(goal, wm)
		return true

	case "fetch":
		url := firstUnfetchedURL(wm.RecentOutcomes, fetchedURLs)
		if url == "" {
			return false
		}
		action.Parameters["url"] = url
		return true

	case "analyze":
		content := concatenateFetchedContent(wm.RecentOutcomes)
		if content == "" {
			return false
		}
		action.Parameters["content"] = content
		action.Parameters["goal"] = goal.Description
		return true

	case "synthesize":
		findings := make([]interface{}, len(wm.KeyFindings))
		for i, f := range wm.KeyFindings {
			findings[i] = f.Content
		}
		action.Parameters["goal"] = goal.Description
		action.Parameters["findings"] = findings
		return true

	default:
		return true
	}
}

func buildSearchQuery(goal model.Goal, wm model.WorkingMemory) string {
	if len(wm.OpenQuestions) == 0 {
		return goal.Description
	}
	return goal.Description + " " + strings.Join(wm.OpenQuestions, " ")
}

func firstUnfetchedURL(outcomes []model.Outcome, fetchedURLs map[string]bool) string {
	for i := len(outcomes) - 1; i >= 0; i-- {
		results, ok := outcomes[i].Result["results"].([]map[string]interface{})
		if !ok {
			continue
		}
		for _, r := range results {
			url, _ := r["url"].(string)
			if url != "" && !fetchedURLs[url] {
				return url
			}
		}
	}
	return ""
}

func concatenateFetchedContent(outcomes []model.Outcome) string {
	var sb strings.Builder
	for _, o := range outcomes {
		if content, ok := o.Result["content"].(string); ok && content != "" {
			sb.WriteString(content)
			sb.WriteString("\n")
		}
		if results, ok := o.Result["results"].([]map[string]interface{}); ok {
			for _, r := range results {
				if snippet, ok := r["snippet"].(string); ok && snippet != "" {
					fmt.Fprintf(&sb, "%s\n", snippet)
				}
			}
		}
	}
	return sb.String()
}
