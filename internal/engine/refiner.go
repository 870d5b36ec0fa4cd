package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/jhlee-dev/rudder/internal/plan"
)

// PlanRefiner merges duplicate steps inside a single plan before execution:
// steps with the same tool and arguments collapse into the first occurrence,
// remaining steps are renumbered 1..N, and placeholder references are
// remapped to the new numbering.
type PlanRefiner struct{}

// Refine returns the refined plan and whether anything changed. The input
// plan is not modified.
func (r *PlanRefiner) Refine(p *plan.ExecutionPlan) (*plan.ExecutionPlan, bool) {
	if p == nil {
		return nil, false
	}

	type dupKey struct {
		tool string
		args string
	}

	seen := make(map[dupKey]int) // key -> old step number of first occurrence
	kept := make([]plan.ExecutionStep, 0, len(p.Steps))
	remap := make(map[int]int) // old step number -> new step number

	for _, step := range p.Steps {
		key := dupKey{tool: step.ToolName, args: canonicalArgs(step.Arguments)}
		if first, ok := seen[key]; ok {
			remap[step.Step] = remap[first]
			continue
		}
		seen[key] = step.Step
		newNum := len(kept) + 1
		remap[step.Step] = newNum
		copied := step
		copied.Step = newNum
		copied.Arguments = cloneArgs(step.Arguments)
		kept = append(kept, copied)
	}

	if len(kept) == len(p.Steps) {
		return p, false
	}

	for i := range kept {
		kept[i].Arguments = remapReferences(kept[i].Arguments, remap)
	}

	return &plan.ExecutionPlan{Description: p.Description, Steps: kept}, true
}

// canonicalArgs serializes arguments with sorted keys so equal maps compare
// equal regardless of construction order.
func canonicalArgs(args map[string]any) string {
	blob, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(blob)
}

func cloneArgs(args map[string]any) map[string]any {
	cloned := make(map[string]any, len(args))
	for k, v := range args {
		cloned[k] = v
	}
	return cloned
}

var anyStepRefRe = regexp.MustCompile(`(\$step_|\{step_?|<step_?)(\d+)`)

func remapReferences(args map[string]any, remap map[int]int) map[string]any {
	out := make(map[string]any, len(args))
	for key, value := range args {
		str, ok := value.(string)
		if !ok {
			out[key] = value
			continue
		}
		out[key] = anyStepRefRe.ReplaceAllStringFunc(str, func(match string) string {
			groups := anyStepRefRe.FindStringSubmatch(match)
			old, _ := strconv.Atoi(groups[2])
			if renumbered, ok := remap[old]; ok {
				return groups[1] + strconv.Itoa(renumbered)
			}
			return match
		})
	}
	return out
}
