package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhlee-dev/rudder/internal/llm"
	"github.com/jhlee-dev/rudder/internal/plan"
)

func step(num int, tool string, args map[string]any) plan.ExecutionStep {
	return plan.ExecutionStep{Step: num, ToolName: tool, Arguments: args, Description: "test step"}
}

func TestExecuteStepSuccess(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{{result: `{"message": "listed"}`}}}
	exec := testStepExecutor(invoker, autoConfirmer{})

	s := step(1, "filesystem", map[string]any{"command": "list", "path": "."})
	results := map[int]string{}
	outcome := exec.ExecuteStep(context.Background(), &s, results, "list files")

	assert.Equal(t, StepDone, outcome.Status)
	assert.Equal(t, `{"message": "listed"}`, results[1])
}

func TestExecuteStepThreeAttemptsOnDistinctErrors(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{
		{err: "timeout 1"},
		{err: "timeout 2"},
		{err: "timeout 3"},
	}}
	fixer := &fakeFixer{suggestion: map[string]any{"path": "/tmp/fixed"}}
	exec := testStepExecutor(invoker, autoConfirmer{})
	exec.Fixer = fixer

	s := step(1, "filesystem", map[string]any{"command": "read", "path": "/nope"})
	outcome := exec.ExecuteStep(context.Background(), &s, map[int]string{}, "read")

	assert.Equal(t, StepFailed, outcome.Status)
	// 1 initial attempt + 2 retries.
	assert.Len(t, invoker.calledTools, 3)
	// The fixer is consulted before each retry, never after the last attempt.
	assert.Equal(t, 2, fixer.calls)
	// Suggested fields were merged into the step's arguments.
	assert.Equal(t, "/tmp/fixed", s.Arguments["path"])
}

func TestExecuteStepIdenticalErrorAbortsEarly(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{
		{err: "connection refused"},
		{err: "connection refused"},
		{err: "connection refused"},
	}}
	exec := testStepExecutor(invoker, autoConfirmer{})

	s := step(1, "search", map[string]any{"query": "x"})
	outcome := exec.ExecuteStep(context.Background(), &s, map[int]string{}, "search")

	assert.Equal(t, StepFailed, outcome.Status)
	assert.Equal(t, "connection refused", outcome.ExecError)
	// Aborted after the second identical failure, before the budget ran out.
	assert.Len(t, invoker.calledTools, 2)
}

func TestExecuteStepExplicitSuccessFalseRetries(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{
		{result: `{"success": false, "error": "empty response"}`},
		{result: `{"message": "ok now"}`},
	}}
	exec := testStepExecutor(invoker, autoConfirmer{})

	s := step(1, "search", map[string]any{"query": "x"})
	results := map[int]string{}
	outcome := exec.ExecuteStep(context.Background(), &s, results, "search")

	assert.Equal(t, StepDone, outcome.Status)
	assert.Len(t, invoker.calledTools, 2)
	assert.Equal(t, `{"message": "ok now"}`, results[1])
}

func TestExecuteStepValidatorRetry(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{
		{result: `no real content here`},
		{result: `substantial answer`},
	}}
	exec := testStepExecutor(invoker, autoConfirmer{})
	exec.Validator = &fakeValidator{verdicts: []llm.Validation{
		{Verdict: llm.VerdictRetry, Note: "implausible"},
		{Verdict: llm.VerdictOK},
	}}

	// Plain-text result with no success tokens: the success heuristic keeps
	// it truthy, so suppress that path with a failure-looking text.
	invoker.script[0].result = "failed to find anything"

	s := step(1, "search", map[string]any{"query": "x"})
	outcome := exec.ExecuteStep(context.Background(), &s, map[int]string{}, "search")

	assert.Equal(t, StepDone, outcome.Status)
	assert.Len(t, invoker.calledTools, 2)
}

func TestExecuteStepParseErrorWithoutExecErrorDoesNotRetry(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{{result: `{"message": "fine"}`}}}
	exec := testStepExecutor(invoker, autoConfirmer{})
	exec.Validator = &fakeValidator{verdicts: []llm.Validation{
		{Verdict: llm.VerdictParseError, Note: "parse_error"},
	}}

	s := step(1, "filesystem", map[string]any{"command": "list", "path": "."})
	outcome := exec.ExecuteStep(context.Background(), &s, map[int]string{}, "list")

	assert.Equal(t, StepDone, outcome.Status)
	assert.Len(t, invoker.calledTools, 1)
}

func TestExecuteStepResolvesPlaceholdersBeforeInvocation(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{{result: `{"message": "saved"}`}}}
	exec := testStepExecutor(invoker, autoConfirmer{})

	s := step(2, "filesystem", map[string]any{"command": "write", "path": "$step_1"})
	results := map[int]string{1: `{"content": "report.txt"}`}
	outcome := exec.ExecuteStep(context.Background(), &s, results, "save the report")

	require.Equal(t, StepDone, outcome.Status)
	require.Len(t, invoker.calledArgs, 1)
	assert.Equal(t, "report.txt", invoker.calledArgs[0]["path"])
}

func TestExecuteStepSkip(t *testing.T) {
	invoker := &fakeInvoker{}
	exec := testStepExecutor(invoker, &scriptedConfirmer{decisions: []Decision{DecisionSkip}})

	s := step(1, "shell", map[string]any{"command": "ls"})
	outcome := exec.ExecuteStep(context.Background(), &s, map[int]string{}, "ls")

	assert.Equal(t, StepSkipped, outcome.Status)
	assert.Empty(t, invoker.calledTools)
}

func TestExecuteStepCancel(t *testing.T) {
	exec := testStepExecutor(&fakeInvoker{}, &scriptedConfirmer{decisions: []Decision{DecisionCancel}})

	s := step(1, "shell", map[string]any{"command": "ls"})
	outcome := exec.ExecuteStep(context.Background(), &s, map[int]string{}, "ls")
	assert.Equal(t, StepCancelled, outcome.Status)
}

func TestExecuteStepModify(t *testing.T) {
	exec := testStepExecutor(&fakeInvoker{}, &scriptedConfirmer{
		decisions:  []Decision{DecisionModify},
		newRequest: "do something else",
	})

	s := step(1, "shell", map[string]any{"command": "ls"})
	outcome := exec.ExecuteStep(context.Background(), &s, map[int]string{}, "ls")
	assert.Equal(t, StepModified, outcome.Status)
	assert.Equal(t, "do something else", outcome.NewRequest)
}
