package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject pulls the substring between the first '{' and the last
// '}' out of text. Models routinely wrap JSON in prose or markdown fences,
// so strict whole-message parsing is deliberately not attempted.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// DecodeJSONObject extracts and unmarshals a JSON object from text.
func DecodeJSONObject(text string) (map[string]any, bool) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	return out, true
}
