package plan

// ExecutionStep is a single tool invocation inside a plan. Arguments may be
// rewritten in place by argument repair between retries; all other fields are
// fixed once the plan is parsed.
type ExecutionStep struct {
	Step           int            `json:"step"`
	Description    string         `json:"description"`
	ToolName       string         `json:"tool_name"`
	Arguments      map[string]any `json:"arguments"`
	ConfirmMessage string         `json:"confirm_message,omitempty"`
}

// ExecutionPlan is the ordered sequence of tool calls produced for one user
// request. Identity for duplicate detection is the content hash (Hash), not
// object identity.
type ExecutionPlan struct {
	Description string          `json:"description"`
	Steps       []ExecutionStep `json:"steps"`
}

// Clone returns a deep copy so callers can mutate arguments without
// affecting the original.
func (p *ExecutionPlan) Clone() *ExecutionPlan {
	if p == nil {
		return nil
	}
	out := &ExecutionPlan{Description: p.Description}
	for _, s := range p.Steps {
		args := make(map[string]any, len(s.Arguments))
		for k, v := range s.Arguments {
			args[k] = v
		}
		s.Arguments = args
		out.Steps = append(out.Steps, s)
	}
	return out
}
