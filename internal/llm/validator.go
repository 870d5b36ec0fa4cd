package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Validation modes. "auto" applies the probability cutoffs, "strict" demands
// high plausibility and completeness, "off" accepts everything.
const (
	ModeAuto   = "auto"
	ModeStrict = "strict"
	ModeOff    = "off"
)

type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictRetry
	VerdictParseError
)

func (v Verdict) String() string {
	switch v {
	case VerdictRetry:
		return "retry"
	case VerdictParseError:
		return "parse_error"
	default:
		return "ok"
	}
}

// Validation is the validator's judgement of one tool result.
type Validation struct {
	Verdict   Verdict
	Plausible float64
	Complete  float64
	ErrorLike float64
	Note      string
}

// ResultValidator judges whether a raw tool result plausibly satisfies the
// user's request. Implementations must not panic on arbitrary result text.
type ResultValidator interface {
	Validate(ctx context.Context, userPrompt, toolName string, args map[string]any, rawResult string) Validation
}

// Validator asks the model to score a tool result on three probabilities and
// converts the scores into a verdict.
type Validator struct {
	Client          Client
	Mode            string
	PlausibleCutoff float64
	ErrorCutoff     float64
}

func NewValidator(client Client, mode string) *Validator {
	return &Validator{
		Client:          client,
		Mode:            mode,
		PlausibleCutoff: 0.4,
		ErrorCutoff:     0.6,
	}
}

const validatorSystemPrompt = "You rapidly diagnose whether an external tool result is accurate and complete. " +
	"You are given the user's request, the tool used, and the raw result. " +
	"Answer with probabilities between 0 and 1 as JSON only, for example: " +
	`{"plausible":0.8,"complete":0.6,"error_like":0.1,"note":"comment"}. ` +
	"Do not include any other text."

func (v *Validator) Validate(ctx context.Context, userPrompt, toolName string, args map[string]any, rawResult string) Validation {
	if v.Mode == ModeOff {
		return Validation{Verdict: VerdictOK, Plausible: 1, Complete: 1, Note: "validation disabled"}
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte(fmt.Sprintf("%v", args))
	}

	query := fmt.Sprintf("User request:\n%s\n\nTool used: %s\nInput parameters: %s\n\nRaw tool result:\n%s",
		userPrompt, toolName, argsJSON, rawResult)

	resp, err := v.Client.Generate(ctx, []Message{System(validatorSystemPrompt), User(query)})
	if err != nil {
		return v.scoreFailure()
	}

	raw, ok := ExtractJSONObject(resp.Response)
	if !ok {
		return v.scoreFailure()
	}
	var scores struct {
		Plausible float64 `json:"plausible"`
		Complete  float64 `json:"complete"`
		ErrorLike float64 `json:"error_like"`
		Note      string  `json:"note"`
	}
	if err := json.Unmarshal([]byte(raw), &scores); err != nil {
		return v.scoreFailure()
	}

	out := Validation{
		Plausible: scores.Plausible,
		Complete:  scores.Complete,
		ErrorLike: scores.ErrorLike,
		Note:      scores.Note,
	}
	if v.needsRetry(out) {
		out.Verdict = VerdictRetry
	}
	return out
}

// scoreFailure is the verdict when the validator's own response cannot be
// parsed. Callers treat it as "do not retry" unless an execution error is
// also present.
func (v *Validator) scoreFailure() Validation {
	return Validation{Verdict: VerdictParseError, ErrorLike: 1, Note: "parse_error"}
}

func (v *Validator) needsRetry(val Validation) bool {
	switch v.Mode {
	case ModeOff:
		return false
	case ModeStrict:
		return !(val.Plausible >= 0.6 && val.Complete >= 0.6)
	default:
		return val.Plausible < v.PlausibleCutoff || val.ErrorLike > v.ErrorCutoff
	}
}
