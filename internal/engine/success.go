package engine

import (
	"encoding/json"
	"strings"
)

// SuccessEvaluator heuristically judges whether a raw tool result represents
// success. False positives and negatives are expected and compensated by the
// retry loop in StepExecutor.
type SuccessEvaluator struct{}

var (
	failureTokens = []string{"error", "failed", "실패", "오류"}
	successTokens = []string{"success", "완료", "저장", "생성", "조회"}
)

// IsSuccessful applies, in order: explicit success flag, non-empty error
// field, known-good field combinations, non-empty object; for plain text, a
// failure-token scan before a success-token scan, then non-empty text.
func (e *SuccessEvaluator) IsSuccessful(result string, toolName string) bool {
	trimmed := strings.TrimSpace(result)
	if trimmed == "" {
		return false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(trimmed), &data); err == nil {
		return e.evalObject(data)
	}

	lower := strings.ToLower(trimmed)
	for _, token := range failureTokens {
		if strings.Contains(lower, token) {
			return false
		}
	}
	for _, token := range successTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return true
}

func (e *SuccessEvaluator) evalObject(data map[string]any) bool {
	if v, ok := data["success"]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}

	if v, ok := data["error"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return false
		}
		if v != nil {
			return false
		}
	}

	// Field combinations that known tool results use on success.
	if hasKey(data, "query") && hasKey(data, "count") {
		return true
	}
	if hasKey(data, "path") {
		return true
	}
	if hasKey(data, "message") {
		return true
	}
	if hasKey(data, "date") || hasKey(data, "result") {
		return true
	}

	return len(data) > 0
}

func hasKey(data map[string]any, key string) bool {
	_, ok := data[key]
	return ok
}
