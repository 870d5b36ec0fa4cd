package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhlee-dev/rudder/internal/observability"
	"github.com/jhlee-dev/rudder/internal/plan"
	"github.com/jhlee-dev/rudder/internal/prompt"
)

func testManager(invoker *fakeInvoker, client *fakeClient) *ExecutionManager {
	logger := observability.NewLogger(false)
	return &ExecutionManager{
		Steps: testStepExecutor(invoker, autoConfirmer{}),
		Responder: &ResponseGenerator{
			Client:  client,
			Prompts: prompt.NewManager(""),
		},
		Logger: logger,
	}
}

func twoStepPlan() *plan.ExecutionPlan {
	return &plan.ExecutionPlan{
		Description: "search then save",
		Steps: []plan.ExecutionStep{
			{Step: 1, ToolName: "search", Arguments: map[string]any{"query": "news"}},
			{Step: 2, ToolName: "filesystem", Arguments: map[string]any{"command": "write", "path": "news.txt", "content": "$step_1"}},
		},
	}
}

func TestExecutePlanRunsAllSteps(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{
		{result: `{"content": "headlines"}`},
		{result: `{"message": "saved"}`},
	}}
	client := &fakeClient{responses: []string{"here is your summary"}}
	m := testManager(invoker, client)

	result, err := m.ExecutePlan(context.Background(), twoStepPlan(), "save the news")
	require.NoError(t, err)

	assert.Len(t, result.StepResults, 2)
	assert.Empty(t, result.ExecErrors)
	assert.Equal(t, "here is your summary", result.Response)
	// Step 2 received step 1's extracted content.
	assert.Equal(t, "headlines", invoker.calledArgs[1]["content"])
}

func TestExecutePlanStopsAtFirstFailure(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{
		{err: "network down"},
		{err: "network is down"},
		{err: "network down"},
	}}
	client := &fakeClient{responses: []string{"partial summary"}}
	m := testManager(invoker, client)

	result, err := m.ExecutePlan(context.Background(), twoStepPlan(), "save the news")
	require.NoError(t, err)

	// Step 2 never ran: only step 1's attempts hit the invoker.
	for _, tool := range invoker.calledTools {
		assert.Equal(t, "search", tool)
	}
	assert.NotEmpty(t, result.ExecErrors[1])
	assert.NotEmpty(t, result.Errors)
	// The response generator still ran over the (empty) results.
	assert.Empty(t, result.StepResults)
}

func TestExecutePlanResponderSeesPartialResults(t *testing.T) {
	invoker := &fakeInvoker{script: []fakeCall{
		{result: `{"content": "partial data"}`},
		{err: "disk full"},
		{err: "disk is full"},
		{err: "disk full"},
	}}
	client := &fakeClient{responses: []string{"got partial data"}}
	m := testManager(invoker, client)

	result, err := m.ExecutePlan(context.Background(), twoStepPlan(), "save the news")
	require.NoError(t, err)

	assert.Equal(t, "got partial data", result.Response)
	assert.Len(t, result.StepResults, 1)
	assert.NotEmpty(t, result.ExecErrors[2])
	// The final-analysis prompt carried step 1's result.
	require.NotEmpty(t, client.prompts)
	assert.Contains(t, client.prompts[0], "partial data")
}
