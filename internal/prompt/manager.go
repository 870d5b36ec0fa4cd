package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Template names understood by the execution pipeline.
const (
	Analysis      = "analysis"
	Enhanced      = "enhanced"
	FinalAnalysis = "final_analysis"
)

var defaults = map[string]string{
	Analysis: `Analyze the following user request and produce an execution plan.

User request: {{user_message}}

Available tools:
{{tools_desc}}

If tool use is needed, produce an execution plan. Otherwise set "need_tools" to false.

Response format (JSON):
{
    "need_tools": true/false,
    "plan": {
        "description": "what the plan does",
        "steps": [
            {
                "step": 1,
                "description": "what this step does",
                "tool_name": "tool name",
                "arguments": {"arg": "value"},
                "confirm_message": "confirmation message shown to the user"
            }
        ]
    }
}

Respond with JSON only.`,

	Enhanced: `Previous conversation context:
{{context}}

Current user request: {{user_input}}

Respond with the conversation context in mind. In particular:
1. If the user is asking to confirm or apply previously proposed work, execute it directly.
2. For compound requests, plan step by step and execute sequentially.
3. When collection, processing, and storage are all needed, finish each stage before the next.`,

	FinalAnalysis: `The following are tool execution results for a user request.

Original request: {{original_prompt}}

Execution results:
{{results_summary}}

Based on these results, provide a complete and useful final answer to the user's request.`,
}

// Manager resolves named prompt templates. A file named <name>.md in the
// configured directory overrides the built-in default of the same name.
type Manager struct {
	Directory string
}

func NewManager(dir string) *Manager {
	return &Manager{Directory: dir}
}

// Get returns the raw template text for name.
func (m *Manager) Get(name string) (string, error) {
	if m.Directory != "" {
		path := filepath.Join(m.Directory, name+".md")
		if data, err := os.ReadFile(path); err == nil {
			return string(data), nil
		}
	}
	if tmpl, ok := defaults[name]; ok {
		return tmpl, nil
	}
	return "", fmt.Errorf("unknown prompt template: %s", name)
}

// Render substitutes {{key}} placeholders in the named template.
func (m *Manager) Render(name string, vars map[string]string) (string, error) {
	tmpl, err := m.Get(name)
	if err != nil {
		return "", err
	}
	for key, val := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{{"+key+"}}", val)
	}
	return tmpl, nil
}
