package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jhlee-dev/rudder/internal/llm"
	"github.com/jhlee-dev/rudder/internal/observability"
	"github.com/jhlee-dev/rudder/internal/prompt"
	"github.com/jhlee-dev/rudder/internal/store"
)

// DefaultMaxIterations bounds the replan loop for one user query.
const DefaultMaxIterations = 30

// Options is the execution engine's configuration, passed explicitly at
// construction.
type Options struct {
	MaxIterations  int
	MaxStepRetries int
	ValidationMode string
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxStepRetries <= 0 {
		o.MaxStepRetries = DefaultMaxStepRetries
	}
	if o.ValidationMode == "" {
		o.ValidationMode = llm.ModeAuto
	}
	return o
}

// QueryProcessor is the bounded iteration governor: it keeps replanning and
// re-executing until a pass finishes without execution errors, a duplicate
// plan would repeat known-failing work, or the iteration budget runs out.
type QueryProcessor struct {
	Planner   *PlanningService
	Exec      *ExecutionManager
	Evaluator *PlanEvaluator
	Client    llm.Client
	Prompts   *prompt.Manager
	Store     *store.ConversationStore
	Logger    *observability.Logger
	Out       io.Writer
	Opts      Options
}

// ProcessQuery runs the full pipeline for one user query and returns the
// final response text.
func (q *QueryProcessor) ProcessQuery(ctx context.Context, query string) (string, error) {
	opts := q.Opts.withDefaults()
	q.Logger.NewTurn()
	q.record("user", query)

	input := query
	lastResponse := ""

	for iteration := 1; iteration <= opts.MaxIterations; iteration++ {
		q.Logger.LogIteration(iteration, opts.MaxIterations, input)

		p, handled, err := q.Planner.AnalyzeRequestAndPlan(ctx, input)
		if err != nil {
			return "", err
		}
		if handled != "" {
			q.record("assistant", handled)
			return handled, nil
		}
		if p == nil {
			response, err := q.basicResponse(ctx, input)
			if err != nil {
				return "", err
			}
			q.record("assistant", response)
			return response, nil
		}

		if q.Evaluator.IsDuplicate(p) {
			q.Logger.LogDuplicatePlan(p.Description)
			fmt.Fprintln(q.Out, "warning: this plan was already tried, stopping to avoid repeating it")
			return lastResponse, nil
		}
		if err := q.Evaluator.RegisterPlan(p); err != nil {
			return "", err
		}

		result, err := q.Exec.ExecutePlan(ctx, p, input)
		if err != nil {
			return "", err
		}
		if result.Cancelled {
			q.record("assistant", "task cancelled")
			return "task cancelled by user", nil
		}
		if result.NewRequest != "" {
			input = result.NewRequest
			continue
		}
		if result.Response != "" {
			lastResponse = result.Response
		}

		// Strict error accounting: only execution-level errors trigger a
		// replan. Subjective "insufficient result" claims do not count.
		if len(result.ExecErrors) == 0 {
			q.record("assistant", lastResponse)
			return lastResponse, nil
		}

		next, stop, err := q.planFollowUp(ctx, query, result)
		if err != nil {
			return "", err
		}
		if stop {
			return lastResponse, nil
		}
		input = next
	}

	fmt.Fprintf(q.Out, "warning: iteration budget (%d) exhausted, stopping\n", opts.MaxIterations)
	q.record("assistant", lastResponse)
	return lastResponse, nil
}

// planFollowUp replans after a failed pass. A duplicate follow-up plan
// stops the loop; no follow-up plan yields a generic retry input.
func (q *QueryProcessor) planFollowUp(ctx context.Context, query string, result TurnResult) (next string, stop bool, err error) {
	enhanced, err := q.enhancedPrompt(query, result.Errors)
	if err != nil {
		enhanced = query
	}

	followUp, handled, err := q.Planner.AnalyzeRequestAndPlan(ctx, enhanced)
	if err != nil {
		return "", false, err
	}
	if handled != "" {
		// A workflow took over; its output is this turn's result.
		q.record("assistant", handled)
		return "", true, nil
	}
	if followUp == nil {
		return fmt.Sprintf("The previous attempt failed. Try another approach to accomplish: %s", query), false, nil
	}
	if q.Evaluator.IsDuplicate(followUp) {
		q.Logger.LogDuplicatePlan(followUp.Description)
		fmt.Fprintln(q.Out, "warning: follow-up plan duplicates an already-tried plan, stopping")
		return "", true, nil
	}
	return fmt.Sprintf("execute this follow-up plan: %s", followUp.Description), false, nil
}

// basicResponse answers without tools when planning produced no plan.
func (q *QueryProcessor) basicResponse(ctx context.Context, input string) (string, error) {
	resp, err := q.Client.Generate(ctx, []llm.Message{llm.User(input)})
	if err != nil {
		return "", fmt.Errorf("response generation failed: %w", err)
	}
	q.Logger.LogLLM(input, resp.Response)
	return resp.Response, nil
}

func (q *QueryProcessor) enhancedPrompt(query string, errors []string) (string, error) {
	var context strings.Builder
	if q.Store != nil {
		entries, err := q.Store.Recent(10)
		if err == nil {
			for _, entry := range entries {
				fmt.Fprintf(&context, "%s: %s\n", entry.Role, entry.Content)
			}
		}
	}
	if len(errors) > 0 {
		context.WriteString("Errors from the previous attempt:\n")
		for _, e := range errors {
			fmt.Fprintf(&context, "- %s\n", e)
		}
	}

	return q.Prompts.Render(prompt.Enhanced, map[string]string{
		"context":    context.String(),
		"user_input": query,
	})
}

func (q *QueryProcessor) record(role, content string) {
	if q.Store == nil || content == "" {
		return
	}
	_ = q.Store.Append(role, content, map[string]string{"turn": q.Logger.TurnID})
}
