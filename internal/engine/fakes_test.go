package engine

import (
	"context"
	"errors"
	"io"

	"github.com/jhlee-dev/rudder/internal/llm"
	"github.com/jhlee-dev/rudder/internal/observability"
	"github.com/jhlee-dev/rudder/internal/plan"
	"github.com/jhlee-dev/rudder/internal/tools"
)

// fakeInvoker scripts tool results per call. Each entry of results is
// consumed in order; err entries mark calls that fail.
type fakeCall struct {
	result string
	err    string
}

type fakeInvoker struct {
	catalog []tools.Info
	script  []fakeCall
	calls   int

	// Records of what was invoked.
	calledTools []string
	calledArgs  []map[string]any
}

func (f *fakeInvoker) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	f.calledTools = append(f.calledTools, name)
	f.calledArgs = append(f.calledArgs, args)

	if f.calls >= len(f.script) {
		return `{"message": "ok"}`, nil
	}
	call := f.script[f.calls]
	f.calls++
	if call.err != "" {
		return "", errors.New(call.err)
	}
	return call.result, nil
}

func (f *fakeInvoker) Catalog(ctx context.Context) ([]tools.Info, error) {
	return f.catalog, nil
}

// fakeClient returns canned responses in order, then empty strings.
type fakeClient struct {
	responses []string
	calls     int
	prompts   []string
}

func (c *fakeClient) Generate(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	if len(messages) > 0 {
		c.prompts = append(c.prompts, messages[len(messages)-1].Content)
	}
	if c.calls >= len(c.responses) {
		return &llm.Response{Response: ""}, nil
	}
	resp := c.responses[c.calls]
	c.calls++
	return &llm.Response{Response: resp}, nil
}

// fakeValidator returns scripted validations in order, then OK.
type fakeValidator struct {
	verdicts []llm.Validation
	calls    int
}

func (v *fakeValidator) Validate(ctx context.Context, userPrompt, toolName string, args map[string]any, rawResult string) llm.Validation {
	if v.calls >= len(v.verdicts) {
		return llm.Validation{Verdict: llm.VerdictOK}
	}
	val := v.verdicts[v.calls]
	v.calls++
	return val
}

// fakeFixer counts calls and returns a fixed suggestion.
type fakeFixer struct {
	suggestion map[string]any
	calls      int
}

func (f *fakeFixer) Suggest(ctx context.Context, userPrompt, toolName string, args map[string]any, errMsg string) map[string]any {
	f.calls++
	return f.suggestion
}

// autoConfirmer always proceeds.
type autoConfirmer struct{}

func (autoConfirmer) Confirm(step plan.ExecutionStep) (Decision, string, error) {
	return DecisionProceed, "", nil
}

// scriptedConfirmer returns decisions in order, then proceeds.
type scriptedConfirmer struct {
	decisions  []Decision
	newRequest string
	calls      int
}

func (c *scriptedConfirmer) Confirm(step plan.ExecutionStep) (Decision, string, error) {
	if c.calls >= len(c.decisions) {
		return DecisionProceed, "", nil
	}
	d := c.decisions[c.calls]
	c.calls++
	return d, c.newRequest, nil
}

func testStepExecutor(invoker tools.Invoker, confirmer Confirmer) *StepExecutor {
	return &StepExecutor{
		Invoker:   invoker,
		Confirmer: confirmer,
		Logger:    observability.NewLogger(false),
		Out:       io.Discard,
	}
}
