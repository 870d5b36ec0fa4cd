package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jhlee-dev/rudder/internal/history"
	"github.com/jhlee-dev/rudder/internal/plan"
)

// Evaluation summarizes a plan's standing before or after execution.
type Evaluation struct {
	HasPlan       bool
	PlanDuplicate bool
	HasErrors     bool
	Errors        []string
}

// PlanEvaluator combines duplicate-plan detection with error extraction
// from step results. Duplicates are checked against both the in-process set
// for this session and the durable history store.
type PlanEvaluator struct {
	seen  map[string]bool
	store *history.Store
}

func NewPlanEvaluator(store *history.Store) *PlanEvaluator {
	return &PlanEvaluator{
		seen:  make(map[string]bool),
		store: store,
	}
}

func (e *PlanEvaluator) IsDuplicate(p *plan.ExecutionPlan) bool {
	hash := plan.Hash(p)
	if e.seen[hash] {
		return true
	}
	if e.store != nil && e.store.Has(hash) {
		return true
	}
	return false
}

func (e *PlanEvaluator) RegisterPlan(p *plan.ExecutionPlan) error {
	hash := plan.Hash(p)
	e.seen[hash] = true
	if e.store != nil {
		return e.store.Add(hash)
	}
	return nil
}

// Evaluate checks the plan for duplication, registers it if new, and scans
// the step results for error content.
func (e *PlanEvaluator) Evaluate(p *plan.ExecutionPlan, stepResults map[int]string) (Evaluation, error) {
	eval := Evaluation{}
	if p == nil {
		return eval, nil
	}
	eval.HasPlan = true

	if e.IsDuplicate(p) {
		eval.PlanDuplicate = true
	} else if err := e.RegisterPlan(p); err != nil {
		return eval, err
	}

	eval.Errors = collectResultErrors(stepResults)
	eval.HasErrors = len(eval.Errors) > 0
	return eval, nil
}

// collectResultErrors pulls error content out of step results: the explicit
// "error" field for JSON results, a substring scan otherwise.
func collectResultErrors(stepResults map[int]string) []string {
	nums := make([]int, 0, len(stepResults))
	for num := range stepResults {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	var errors []string
	for _, num := range nums {
		result := stepResults[num]
		var data map[string]any
		if err := json.Unmarshal([]byte(result), &data); err == nil {
			if msg, ok := data["error"].(string); ok && msg != "" {
				errors = append(errors, fmt.Sprintf("step %d: %s", num, msg))
			}
			continue
		}
		if strings.Contains(strings.ToLower(result), "error") {
			errors = append(errors, fmt.Sprintf("step %d: %s", num, result))
		}
	}
	return errors
}
