package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jhlee-dev/rudder/internal/llm"
	"github.com/jhlee-dev/rudder/internal/observability"
	"github.com/jhlee-dev/rudder/internal/plan"
	"github.com/jhlee-dev/rudder/internal/prompt"
	"github.com/jhlee-dev/rudder/internal/tools"
	"github.com/jhlee-dev/rudder/internal/workflow"
)

// Keyword tables for specialized workflow detection. The Korean entries
// cover the primary user base alongside the English ones.
var (
	codeModKeywords = []string{
		"수정", "변경", "고치", "바꾸", "개선", "리팩토링",
		"refactor", "modify", "change", "update", "fix", "edit",
	}
	fileExtKeywords = []string{
		".py", ".js", ".ts", ".java", ".cpp", ".c", ".go", ".rs", ".rb", ".php",
	}
	filePathRe = regexp.MustCompile(`[\w\-\./\\]+\.\w{2,4}`)

	researchKeywords = []string{
		"검색", "찾아", "알아봐", "조사", "리서치", "research", "search",
		"뉴스", "정보", "동향", "트렌드", "현황", "분석", "요약",
	}
	comprehensiveKeywords = []string{
		"요약해서", "정리해서", "파일로 저장", "블로그", "보고서",
		"정리된 내용", "종합", "취합", "summarize", "report",
	}
	timeKeywords = []string{
		"최신", "어제", "오늘", "이번주", "최근", "latest", "recent",
	}
)

// PlanningService converts a user request into an ExecutionPlan, or
// delegates to a specialized workflow when the request matches one.
type PlanningService struct {
	Client  llm.Client
	Invoker tools.Invoker
	Prompts *prompt.Manager
	Logger  *observability.Logger
}

// AnalyzeRequestAndPlan returns either a plan to execute or, when a
// workflow pattern short-circuited planning, the workflow's response text.
// Both may be empty when the request needs no tools.
func (s *PlanningService) AnalyzeRequestAndPlan(ctx context.Context, userMessage string) (*plan.ExecutionPlan, string, error) {
	if name := s.detectWorkflow(userMessage); name != "" {
		w := workflow.Get(name)
		if w != nil {
			result, err := w.Run(ctx, workflow.Deps{Client: s.Client, Invoker: s.Invoker}, userMessage)
			if err == nil {
				return nil, result, nil
			}
			// A failed workflow falls through to standard planning.
			s.Logger.LogStep(0, "workflow_failed", fmt.Sprintf("%s: %v", name, err))
		}
	}

	p, err := s.standardPlan(ctx, userMessage)
	if err != nil {
		return nil, "", err
	}
	return p, "", nil
}

func (s *PlanningService) detectWorkflow(message string) string {
	if s.isCodeModificationRequest(message) {
		return "code_mod"
	}
	if s.isResearchRequest(message) {
		return "research"
	}
	return ""
}

func (s *PlanningService) isCodeModificationRequest(message string) bool {
	lower := strings.ToLower(message)
	if !containsAny(lower, codeModKeywords) {
		return false
	}
	return containsAny(lower, fileExtKeywords) || filePathRe.MatchString(message)
}

func (s *PlanningService) isResearchRequest(message string) bool {
	lower := strings.ToLower(message)
	if !containsAny(lower, researchKeywords) {
		return false
	}
	return containsAny(lower, comprehensiveKeywords) || containsAny(lower, timeKeywords)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (s *PlanningService) standardPlan(ctx context.Context, userMessage string) (*plan.ExecutionPlan, error) {
	catalog, err := s.Invoker.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("tool catalog unavailable: %w", err)
	}
	if len(catalog) == 0 {
		return nil, nil
	}

	rendered, err := s.Prompts.Render(prompt.Analysis, map[string]string{
		"user_message": userMessage,
		"tools_desc":   describeTools(catalog),
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.Client.Generate(ctx, []llm.Message{llm.User(rendered)})
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}
	s.Logger.LogLLM(prompt.Analysis, resp.Response)

	raw, ok := llm.ExtractJSONObject(resp.Response)
	if !ok {
		return nil, nil
	}

	var parsed struct {
		NeedTools bool `json:"need_tools"`
		Plan      *struct {
			Description string               `json:"description"`
			Steps       []plan.ExecutionStep `json:"steps"`
		} `json:"plan"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, nil
	}
	if !parsed.NeedTools || parsed.Plan == nil || len(parsed.Plan.Steps) == 0 {
		return nil, nil
	}

	known := make(map[string]bool, len(catalog))
	for _, info := range catalog {
		known[info.Name] = true
	}

	// Steps naming tools not in the catalog are dropped; an empty remainder
	// means no plan.
	steps := make([]plan.ExecutionStep, 0, len(parsed.Plan.Steps))
	for _, step := range parsed.Plan.Steps {
		if !known[step.ToolName] {
			continue
		}
		if step.Arguments == nil {
			step.Arguments = make(map[string]any)
		}
		step.Arguments = RepairPlanArguments(step.Arguments, step.Step)
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return nil, nil
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Step < steps[j].Step })

	result := &plan.ExecutionPlan{
		Description: parsed.Plan.Description,
		Steps:       steps,
	}

	refiner := PlanRefiner{}
	refined, _ := refiner.Refine(result)
	s.Logger.LogPlan(refined.Description, len(refined.Steps), plan.Hash(refined))
	return refined, nil
}

func describeTools(catalog []tools.Info) string {
	var sb strings.Builder
	for _, info := range catalog {
		fmt.Fprintf(&sb, "- %s(%s): %s\n", info.Name, strings.Join(info.ParamNames, ", "), info.Description)
	}
	return sb.String()
}
