package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	raw, ok := ExtractJSONObject("Here is the plan:\n```json\n{\"a\": 1}\n```\nDone.")
	require.True(t, ok)
	assert.Equal(t, `{"a": 1}`, raw)
}

func TestExtractJSONObjectNoBraces(t *testing.T) {
	_, ok := ExtractJSONObject("no json here")
	assert.False(t, ok)
}

func TestExtractJSONObjectReversedBraces(t *testing.T) {
	_, ok := ExtractJSONObject("} broken {")
	assert.False(t, ok)
}

func TestDecodeJSONObject(t *testing.T) {
	m, ok := DecodeJSONObject(`result: {"query": "go", "count": 3}`)
	require.True(t, ok)
	assert.Equal(t, "go", m["query"])
	assert.EqualValues(t, 3, m["count"])
}

func TestDecodeJSONObjectInvalid(t *testing.T) {
	_, ok := DecodeJSONObject("{not valid json}")
	assert.False(t, ok)
}
