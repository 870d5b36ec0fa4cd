package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ArgumentFixer proposes corrected tool-call arguments after a failed
// attempt. A nil return means no usable suggestion.
type ArgumentFixer interface {
	Suggest(ctx context.Context, userPrompt, toolName string, originalArgs map[string]any, errMsg string) map[string]any
}

// Fixer asks the model to repair tool-call arguments using the error text
// from the failed attempt.
type Fixer struct {
	Client Client
}

func NewFixer(client Client) *Fixer {
	return &Fixer{Client: client}
}

const fixerSystemPrompt = "You repair parameters for external tool calls. " +
	"The user's attempted parameters caused an error. " +
	"Using the error message, correct the wrong values or add missing parameters. " +
	`Return a JSON object only, for example: {"issue_number":123}. ` +
	"If no fix is possible, return an empty object {}."

func (f *Fixer) Suggest(ctx context.Context, userPrompt, toolName string, originalArgs map[string]any, errMsg string) map[string]any {
	argsJSON, err := json.Marshal(originalArgs)
	if err != nil {
		argsJSON = []byte(fmt.Sprintf("%v", originalArgs))
	}

	query := fmt.Sprintf("Original user request:\n%s\n\nTool name: %s\nOriginal parameters: %s\n\nError message:\n%s",
		userPrompt, toolName, argsJSON, errMsg)

	resp, err := f.Client.Generate(ctx, []Message{System(fixerSystemPrompt), User(query)})
	if err != nil {
		return nil
	}

	fixed, ok := DecodeJSONObject(resp.Response)
	if !ok || len(fixed) == 0 {
		return nil
	}
	return fixed
}
