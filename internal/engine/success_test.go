package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSuccessfulExplicitFlag(t *testing.T) {
	e := &SuccessEvaluator{}

	assert.False(t, e.IsSuccessful(`{"success": false, "error": "boom"}`, "shell"))
	assert.True(t, e.IsSuccessful(`{"success": true}`, "shell"))
	// Explicit success wins over an error field.
	assert.True(t, e.IsSuccessful(`{"success": true, "error": "stale"}`, "shell"))
}

func TestIsSuccessfulErrorField(t *testing.T) {
	e := &SuccessEvaluator{}

	assert.False(t, e.IsSuccessful(`{"error": "not found"}`, "filesystem"))
	assert.True(t, e.IsSuccessful(`{"error": "", "result": "ok"}`, "filesystem"))
}

func TestIsSuccessfulKnownFieldCombos(t *testing.T) {
	e := &SuccessEvaluator{}

	assert.True(t, e.IsSuccessful(`{"query": "go", "count": 0}`, "search"))
	assert.True(t, e.IsSuccessful(`{"path": "/tmp/x.txt"}`, "filesystem"))
	assert.True(t, e.IsSuccessful(`{"message": "done"}`, "browser"))
	assert.True(t, e.IsSuccessful(`{"result": "ok"}`, "shell"))
	assert.True(t, e.IsSuccessful(`{"date": "2025-01-01"}`, ""))
}

func TestIsSuccessfulNonEmptyObject(t *testing.T) {
	e := &SuccessEvaluator{}

	assert.True(t, e.IsSuccessful(`{"anything": "at all"}`, ""))
}

func TestIsSuccessfulPlainText(t *testing.T) {
	e := &SuccessEvaluator{}

	assert.False(t, e.IsSuccessful("operation failed with code 1", "shell"))
	assert.False(t, e.IsSuccessful("작업 실패", "shell"))
	assert.True(t, e.IsSuccessful("저장 완료", "filesystem"))
	assert.True(t, e.IsSuccessful("some ordinary output", "shell"))
	assert.False(t, e.IsSuccessful("", "shell"))
	// Failure tokens take precedence over success tokens.
	assert.False(t, e.IsSuccessful("success reported but error occurred", "shell"))
}
