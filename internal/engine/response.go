package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jhlee-dev/rudder/internal/llm"
	"github.com/jhlee-dev/rudder/internal/prompt"
)

// resultSummaryMaxLength caps each step's contribution to the final-analysis
// prompt.
const resultSummaryMaxLength = 300

// ResponseGenerator synthesizes the final natural-language answer from
// accumulated step results.
type ResponseGenerator struct {
	Client  llm.Client
	Prompts *prompt.Manager
}

// Generate asks the model to compose a final answer. When the model call
// fails the raw results summary is returned instead, so the user always
// sees what happened.
func (g *ResponseGenerator) Generate(ctx context.Context, originalPrompt string, stepResults map[int]string) (string, error) {
	if len(stepResults) == 0 {
		return "", nil
	}

	summary := g.summarize(stepResults)

	rendered, err := g.Prompts.Render(prompt.FinalAnalysis, map[string]string{
		"original_prompt": originalPrompt,
		"results_summary": summary,
	})
	if err != nil {
		rendered = fmt.Sprintf("Original request: %s\n\nExecution results:\n%s\n\nProvide a final answer based on these results.",
			originalPrompt, summary)
	}

	resp, err := g.Client.Generate(ctx, []llm.Message{llm.User(rendered)})
	if err != nil {
		return fmt.Sprintf("Task finished. Results:\n%s", summary), nil
	}
	return resp.Response, nil
}

func (g *ResponseGenerator) summarize(stepResults map[int]string) string {
	nums := make([]int, 0, len(stepResults))
	for num := range stepResults {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	var sb strings.Builder
	for _, num := range nums {
		result := stepResults[num]
		if IsEmptyResult(result) {
			result = FallbackMessage(num)
		} else if len(result) > resultSummaryMaxLength {
			result = result[:resultSummaryMaxLength] + "..."
		}
		fmt.Fprintf(&sb, "step %d: %s\n", num, result)
	}
	return sb.String()
}
