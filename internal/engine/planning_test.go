package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhlee-dev/rudder/internal/observability"
	"github.com/jhlee-dev/rudder/internal/prompt"
	"github.com/jhlee-dev/rudder/internal/tools"
)

func testPlanner(client *fakeClient, invoker *fakeInvoker) *PlanningService {
	return &PlanningService{
		Client:  client,
		Invoker: invoker,
		Prompts: prompt.NewManager(""),
		Logger:  observability.NewLogger(false),
	}
}

func searchCatalog() []tools.Info {
	return []tools.Info{
		{Name: "filesystem", Description: "file ops", ParamNames: []string{"command", "content", "path"}},
		{Name: "search", Description: "web search", ParamNames: []string{"query"}},
	}
}

func TestStandardPlanFromJSON(t *testing.T) {
	client := &fakeClient{responses: []string{`Sure, here is the plan:
{"need_tools": true, "plan": {"description": "find and save", "steps": [
  {"step": 2, "description": "save", "tool_name": "filesystem", "arguments": {"command": "write", "path": "out.txt", "content": "$step_1"}},
  {"step": 1, "description": "find", "tool_name": "search", "arguments": {"query": "go releases"}}
]}}`}}
	invoker := &fakeInvoker{catalog: searchCatalog()}

	p, handled, err := testPlanner(client, invoker).AnalyzeRequestAndPlan(context.Background(), "save go release notes")
	require.NoError(t, err)
	assert.Empty(t, handled)
	require.NotNil(t, p)
	require.Len(t, p.Steps, 2)

	// Steps come back sorted by number.
	assert.Equal(t, "search", p.Steps[0].ToolName)
	assert.Equal(t, "filesystem", p.Steps[1].ToolName)

	// The analysis prompt carried the tool catalog.
	require.NotEmpty(t, client.prompts)
	assert.Contains(t, client.prompts[0], "search(query)")
}

func TestStandardPlanDropsUnknownTools(t *testing.T) {
	client := &fakeClient{responses: []string{`{"need_tools": true, "plan": {"description": "d", "steps": [
  {"step": 1, "description": "x", "tool_name": "no_such_tool", "arguments": {}},
  {"step": 2, "description": "y", "tool_name": "search", "arguments": {"query": "q"}}
]}}`}}
	invoker := &fakeInvoker{catalog: searchCatalog()}

	p, _, err := testPlanner(client, invoker).AnalyzeRequestAndPlan(context.Background(), "do things")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, "search", p.Steps[0].ToolName)
}

func TestStandardPlanAllUnknownToolsMeansNoPlan(t *testing.T) {
	client := &fakeClient{responses: []string{`{"need_tools": true, "plan": {"description": "d", "steps": [
  {"step": 1, "description": "x", "tool_name": "bogus", "arguments": {}}
]}}`}}
	invoker := &fakeInvoker{catalog: searchCatalog()}

	p, _, err := testPlanner(client, invoker).AnalyzeRequestAndPlan(context.Background(), "do things")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStandardPlanNoToolsNeeded(t *testing.T) {
	client := &fakeClient{responses: []string{`{"need_tools": false}`}}
	invoker := &fakeInvoker{catalog: searchCatalog()}

	p, _, err := testPlanner(client, invoker).AnalyzeRequestAndPlan(context.Background(), "what is two plus two")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStandardPlanUnparseableResponse(t *testing.T) {
	client := &fakeClient{responses: []string{"I would rather chat than plan"}}
	invoker := &fakeInvoker{catalog: searchCatalog()}

	p, _, err := testPlanner(client, invoker).AnalyzeRequestAndPlan(context.Background(), "hmm")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStandardPlanRepairsMalformedArguments(t *testing.T) {
	client := &fakeClient{responses: []string{`{"need_tools": true, "plan": {"description": "d", "steps": [
  {"step": 1, "description": "find", "tool_name": "search", "arguments": {"query": "news"}},
  {"step": 2, "description": "save", "tool_name": "filesystem", "arguments": {"command": "write", "path": "out.txt", "content": "이전 단계 결과를 바탕으로"}}
]}}`}}
	invoker := &fakeInvoker{catalog: searchCatalog()}

	p, _, err := testPlanner(client, invoker).AnalyzeRequestAndPlan(context.Background(), "save the news")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "$step_1", p.Steps[1].Arguments["content"])
}

func TestDetectCodeModificationWorkflow(t *testing.T) {
	s := testPlanner(&fakeClient{}, &fakeInvoker{})

	assert.Equal(t, "code_mod", s.detectWorkflow("please fix the bug in main.go"))
	assert.Equal(t, "code_mod", s.detectWorkflow("utils.py 파일을 수정해줘"))
	// Modification verb without any file reference is not a code-mod request.
	assert.Equal(t, "", s.detectWorkflow("update me on the weather"))
}

func TestDetectResearchWorkflow(t *testing.T) {
	s := testPlanner(&fakeClient{}, &fakeInvoker{})

	assert.Equal(t, "research", s.detectWorkflow("search for the latest go compiler news"))
	assert.Equal(t, "research", s.detectWorkflow("최신 AI 동향 검색해서 정리해서 알려줘"))
	// Search verb without recency or comprehensive-output words.
	assert.Equal(t, "", s.detectWorkflow("search my feelings"))
}
