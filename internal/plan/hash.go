package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

type hashStep struct {
	Step        int            `json:"step"`
	Description string         `json:"description"`
	ToolName    string         `json:"tool_name"`
	Arguments   map[string]any `json:"arguments"`
}

type hashPlan struct {
	Description string     `json:"description"`
	Steps       []hashStep `json:"steps"`
}

// Hash computes the deterministic content fingerprint of a plan: a lowercase
// hex sha256 over the plan description and every step's number, description,
// tool name and arguments. encoding/json emits map keys in sorted order, so
// equal plans always hash equal regardless of argument insertion order.
// ConfirmMessage is presentation-only and excluded.
func Hash(p *ExecutionPlan) string {
	hp := hashPlan{Description: p.Description, Steps: []hashStep{}}
	for _, s := range p.Steps {
		hp.Steps = append(hp.Steps, hashStep{
			Step:        s.Step,
			Description: s.Description,
			ToolName:    s.ToolName,
			Arguments:   s.Arguments,
		})
	}
	data, err := json.Marshal(hp)
	if err != nil {
		// Arguments came from json.Unmarshal in the first place; a marshal
		// failure here means a programming error upstream.
		data = []byte(p.Description)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
