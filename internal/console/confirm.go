// Package console holds the interactive terminal surface: step
// confirmation prompts and the ANSI palette shared with the banner.
package console

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jhlee-dev/rudder/internal/engine"
	"github.com/jhlee-dev/rudder/internal/plan"
)

// InteractiveConfirmer asks the user before every step. It reads single
// letter answers from In and re-prompts on anything it does not recognize.
type InteractiveConfirmer struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func NewInteractiveConfirmer(in io.Reader, out io.Writer) *InteractiveConfirmer {
	return &InteractiveConfirmer{In: in, Out: out, reader: bufio.NewReader(in)}
}

func (c *InteractiveConfirmer) Confirm(step plan.ExecutionStep) (engine.Decision, string, error) {
	fmt.Fprintf(c.Out, "\nstep %d: %s\n", step.Step, step.Description)
	fmt.Fprintf(c.Out, "  tool: %s\n", step.ToolName)
	if len(step.Arguments) > 0 {
		fmt.Fprintf(c.Out, "  arguments: %s\n", compactArgs(step.Arguments))
	}
	if step.ConfirmMessage != "" {
		fmt.Fprintf(c.Out, "  %s\n", step.ConfirmMessage)
	}

	for {
		fmt.Fprint(c.Out, "[p]roceed / [s]kip / [m]odify / [c]ancel > ")
		line, err := c.reader.ReadString('\n')
		if err != nil && line == "" {
			return engine.DecisionCancel, "", err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "p", "proceed", "y", "yes":
			return engine.DecisionProceed, "", nil
		case "s", "skip":
			return engine.DecisionSkip, "", nil
		case "c", "cancel", "q", "quit":
			return engine.DecisionCancel, "", nil
		case "m", "modify":
			fmt.Fprint(c.Out, "describe what to do instead > ")
			request, err := c.reader.ReadString('\n')
			if err != nil && request == "" {
				return engine.DecisionCancel, "", err
			}
			request = strings.TrimSpace(request)
			if request == "" {
				continue
			}
			return engine.DecisionModify, request, nil
		}
	}
}

// AutoConfirmer approves every step without asking. Used in full-auto mode.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(plan.ExecutionStep) (engine.Decision, string, error) {
	return engine.DecisionProceed, "", nil
}

func compactArgs(args map[string]any) string {
	blob, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	if len(blob) > 200 {
		return string(blob[:197]) + "..."
	}
	return string(blob)
}
