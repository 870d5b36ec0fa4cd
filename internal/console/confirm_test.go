package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhlee-dev/rudder/internal/engine"
	"github.com/jhlee-dev/rudder/internal/plan"
)

func sampleStep() plan.ExecutionStep {
	return plan.ExecutionStep{
		Step:           1,
		Description:    "write the report",
		ToolName:       "filesystem",
		Arguments:      map[string]any{"command": "write", "path": "report.txt"},
		ConfirmMessage: "This writes report.txt in the workspace.",
	}
}

func TestInteractiveConfirmerProceed(t *testing.T) {
	var out bytes.Buffer
	c := NewInteractiveConfirmer(strings.NewReader("p\n"), &out)

	decision, request, err := c.Confirm(sampleStep())
	require.NoError(t, err)
	assert.Equal(t, engine.DecisionProceed, decision)
	assert.Empty(t, request)
	assert.Contains(t, out.String(), "write the report")
	assert.Contains(t, out.String(), "filesystem")
}

func TestInteractiveConfirmerEmptyLineProceeds(t *testing.T) {
	var out bytes.Buffer
	c := NewInteractiveConfirmer(strings.NewReader("\n"), &out)

	decision, _, err := c.Confirm(sampleStep())
	require.NoError(t, err)
	assert.Equal(t, engine.DecisionProceed, decision)
}

func TestInteractiveConfirmerRepromptsOnGarbage(t *testing.T) {
	var out bytes.Buffer
	c := NewInteractiveConfirmer(strings.NewReader("whatever\ns\n"), &out)

	decision, _, err := c.Confirm(sampleStep())
	require.NoError(t, err)
	assert.Equal(t, engine.DecisionSkip, decision)
	assert.Equal(t, 2, strings.Count(out.String(), "[p]roceed"))
}

func TestInteractiveConfirmerModifyReadsRequest(t *testing.T) {
	var out bytes.Buffer
	c := NewInteractiveConfirmer(strings.NewReader("m\nsave it as summary.txt instead\n"), &out)

	decision, request, err := c.Confirm(sampleStep())
	require.NoError(t, err)
	assert.Equal(t, engine.DecisionModify, decision)
	assert.Equal(t, "save it as summary.txt instead", request)
}

func TestInteractiveConfirmerCancelOnEOF(t *testing.T) {
	var out bytes.Buffer
	c := NewInteractiveConfirmer(strings.NewReader(""), &out)

	decision, _, err := c.Confirm(sampleStep())
	require.Error(t, err)
	assert.Equal(t, engine.DecisionCancel, decision)
}

func TestAutoConfirmer(t *testing.T) {
	decision, request, err := AutoConfirmer{}.Confirm(sampleStep())
	require.NoError(t, err)
	assert.Equal(t, engine.DecisionProceed, decision)
	assert.Empty(t, request)
}
