package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhlee-dev/rudder/internal/observability"
	"github.com/jhlee-dev/rudder/internal/plan"
)

// TurnResult is the outcome of one plan execution pass. ExecErrors holds
// only execution-level failures keyed by step number; Errors additionally
// carries error content scraped from results.
type TurnResult struct {
	StepResults map[int]string
	ExecErrors  map[int]string
	Errors      []string
	Response    string
	Cancelled   bool
	NewRequest  string
}

// ExecutionManager orchestrates one PlanningService output through the step
// executor and the response generator.
type ExecutionManager struct {
	Steps     *StepExecutor
	Responder *ResponseGenerator
	Logger    *observability.Logger
}

// ExecutePlan runs the plan's steps in ascending order, stopping at the
// first terminal failure since later steps would reference unresolved
// results. The response generator always runs over whatever results exist.
func (m *ExecutionManager) ExecutePlan(ctx context.Context, p *plan.ExecutionPlan, originalPrompt string) (TurnResult, error) {
	result := TurnResult{
		StepResults: make(map[int]string),
		ExecErrors:  make(map[int]string),
	}

	steps := make([]plan.ExecutionStep, len(p.Steps))
	copy(steps, p.Steps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Step < steps[j].Step })

loop:
	for i := range steps {
		outcome := m.Steps.ExecuteStep(ctx, &steps[i], result.StepResults, originalPrompt)
		switch outcome.Status {
		case StepDone, StepSkipped:
			continue
		case StepCancelled:
			result.Cancelled = true
			break loop
		case StepModified:
			result.NewRequest = outcome.NewRequest
			break loop
		case StepFailed:
			if outcome.ExecError != "" {
				result.ExecErrors[steps[i].Step] = outcome.ExecError
			}
			result.Errors = append(result.Errors,
				fmt.Sprintf("step %d failed terminally: %s", steps[i].Step, failureDetail(outcome)))
			break loop
		}
	}

	response, err := m.Responder.Generate(ctx, originalPrompt, result.StepResults)
	if err != nil {
		return result, err
	}
	result.Response = response
	if response != "" {
		m.Logger.LogResponse(response)
	}

	result.Errors = append(result.Errors, collectResultErrors(result.StepResults)...)
	return result, nil
}

func failureDetail(outcome StepOutcome) string {
	if outcome.ExecError != "" {
		return outcome.ExecError
	}
	return "result validation failed"
}
