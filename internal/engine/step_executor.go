package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jhlee-dev/rudder/internal/governance"
	"github.com/jhlee-dev/rudder/internal/llm"
	"github.com/jhlee-dev/rudder/internal/observability"
	"github.com/jhlee-dev/rudder/internal/plan"
	"github.com/jhlee-dev/rudder/internal/tools"
)

// Decision is the user's answer to a step confirmation.
type Decision int

const (
	DecisionProceed Decision = iota
	DecisionSkip
	DecisionModify
	DecisionCancel
)

// Confirmer gates step execution. Modify returns the replacement request as
// the second value.
type Confirmer interface {
	Confirm(step plan.ExecutionStep) (Decision, string, error)
}

// StepStatus is the terminal state of one step execution.
type StepStatus int

const (
	StepDone StepStatus = iota
	StepSkipped
	StepCancelled
	StepModified
	StepFailed
)

// StepOutcome reports how a step ended. ExecError holds the last execution
// error when the step failed on tool-call exceptions; NewRequest carries the
// replacement request after a Modify decision.
type StepOutcome struct {
	Status     StepStatus
	Result     string
	ExecError  string
	NewRequest string
}

// DefaultMaxStepRetries bounds retries per step: one initial attempt plus
// this many retries.
const DefaultMaxStepRetries = 2

// StepExecutor runs one plan step against the tool invoker with
// confirmation gating, retry, result validation, and argument repair.
// Validator, Fixer, and Policy are optional; nil disables the capability.
type StepExecutor struct {
	Invoker    tools.Invoker
	Confirmer  Confirmer
	Validator  llm.ResultValidator
	Fixer      llm.ArgumentFixer
	Policy     governance.PolicyEngine
	Logger     *observability.Logger
	Out        io.Writer
	MaxRetries int

	args    ArgumentProcessor
	success SuccessEvaluator
}

// ExecuteStep drives the step through confirm, execute, and validate. On
// success the raw result is committed to stepResults under the step number.
func (e *StepExecutor) ExecuteStep(ctx context.Context, step *plan.ExecutionStep, stepResults map[int]string, originalPrompt string) StepOutcome {
	decision, newRequest, err := e.Confirmer.Confirm(*step)
	if err != nil {
		return StepOutcome{Status: StepFailed, ExecError: err.Error()}
	}
	switch decision {
	case DecisionSkip:
		e.Logger.LogStep(step.Step, "skipped", step.Description)
		return StepOutcome{Status: StepSkipped}
	case DecisionCancel:
		e.Logger.LogStep(step.Step, "cancelled", step.Description)
		return StepOutcome{Status: StepCancelled}
	case DecisionModify:
		e.Logger.LogStep(step.Step, "modified", newRequest)
		return StepOutcome{Status: StepModified, NewRequest: newRequest}
	}

	maxRetries := e.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxStepRetries
	}

	lastExecError := ""
	for attempt := 0; attempt <= maxRetries; attempt++ {
		processedArgs, unresolvedRefs := e.args.Process(step.Arguments, stepResults)
		for _, ref := range unresolvedRefs {
			fmt.Fprintf(e.Out, "warning: unresolved reference in step %d arguments: %s\n", step.Step, ref)
		}

		if e.Policy != nil {
			verdict, err := e.Policy.Evaluate(ctx, governance.Request{
				Tool:      step.ToolName,
				Arguments: processedArgs,
				Query:     originalPrompt,
			})
			if err != nil {
				return StepOutcome{Status: StepFailed, ExecError: err.Error()}
			}
			if verdict.Effect == governance.EffectDeny {
				fmt.Fprintf(e.Out, "step %d denied by policy: %s\n", step.Step, verdict.Reason)
				return StepOutcome{Status: StepFailed, ExecError: verdict.Reason}
			}
		}

		e.Logger.LogToolCall(step.ToolName, processedArgs)
		execError := ""
		result, err := e.Invoker.CallTool(ctx, step.ToolName, processedArgs)
		if err != nil {
			execError = err.Error()
			// Errors surface to the user exactly once, at capture.
			fmt.Fprintf(e.Out, "step %d execution error: %s\n", step.Step, execError)
			result = syntheticError(execError)
		}

		needsRetry := false
		if e.Validator != nil {
			validation := e.Validator.Validate(ctx, originalPrompt, step.ToolName, processedArgs, result)
			needsRetry = validation.Verdict == llm.VerdictRetry

			// An unparseable validator response is not evidence of a bad
			// result; without an execution error it means "do not retry".
			if validation.Verdict == llm.VerdictParseError && execError == "" {
				needsRetry = false
			}
			if execError == "" && e.success.IsSuccessful(result, step.ToolName) {
				needsRetry = false
			}
		}
		if execError == "" && explicitFailure(result) {
			needsRetry = true
		}
		if execError != "" {
			needsRetry = true
		}

		if !needsRetry {
			stepResults[step.Step] = result
			e.Logger.LogStep(step.Step, "done", step.Description)
			return StepOutcome{Status: StepDone, Result: result}
		}

		if execError != "" && execError == lastExecError {
			fmt.Fprintf(e.Out, "step %d aborted: identical error on consecutive attempts\n", step.Step)
			return StepOutcome{Status: StepFailed, ExecError: execError}
		}
		if execError != "" {
			lastExecError = execError
		}

		if attempt == maxRetries {
			break
		}
		e.Logger.LogRetry(step.Step, attempt+1, maxRetries, strings.TrimSpace(execError))

		if e.Fixer != nil {
			reason := execError
			if reason == "" {
				reason = "low_confidence_result"
			}
			if fixed := e.Fixer.Suggest(ctx, originalPrompt, step.ToolName, processedArgs, reason); fixed != nil {
				for k, v := range fixed {
					step.Arguments[k] = v
				}
				fmt.Fprintf(e.Out, "step %d arguments repaired: %v\n", step.Step, fixed)
			}
		}
	}

	e.Logger.LogStep(step.Step, "failed", "retries exhausted")
	return StepOutcome{Status: StepFailed, ExecError: lastExecError}
}

// explicitFailure reports a JSON result carrying success: false.
func explicitFailure(result string) bool {
	var data map[string]any
	if err := json.Unmarshal([]byte(result), &data); err != nil {
		return false
	}
	b, ok := data["success"].(bool)
	return ok && !b
}

func syntheticError(msg string) string {
	blob, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, msg)
	}
	return string(blob)
}
