package engine

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Placeholder families recognized in step arguments, in precedence order:
// $step_N dotted paths, brace forms, angle-bracket forms, then a table of
// malformed natural-language references the model sometimes emits instead
// of a proper placeholder.
var (
	dollarStepRe = regexp.MustCompile(`\$step_(\d+)(?:\.([\w.]+))?`)
	braceStepRe  = regexp.MustCompile(`\{step_?(\d+)(?:_result)?\}`)
	angleStepRe  = regexp.MustCompile(`<step_?(\d+)(?:_result)?>`)

	malformedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`이전 단계`),
		regexp.MustCompile(`앞서`),
		regexp.MustCompile(`결과를 바탕으로`),
		regexp.MustCompile(`기준으로`),
		regexp.MustCompile(`step_\d+의`),
		regexp.MustCompile(`(?i)previous step`),
		regexp.MustCompile(`(?i)based on the result`),
		regexp.MustCompile(`(?i)from the earlier step`),
	}

	pathLikeKeys = map[string]bool{
		"path":      true,
		"file_path": true,
		"filepath":  true,
		"filename":  true,
	}

	// Fields skipped when scanning a result object for usable content.
	noiseKeys = map[string]bool{
		"count":               true,
		"total_content_chars": true,
		"region":              true,
		"query":               true,
		"success":             true,
	}
)

// ArgumentProcessor substitutes references to earlier step results into a
// step's arguments before the tool call.
type ArgumentProcessor struct{}

// Process returns a new argument map with placeholders substituted, plus the
// list of references that could not be resolved. Unresolved references are
// left in place so the caller can decide whether to surface them.
func (p *ArgumentProcessor) Process(arguments map[string]any, stepResults map[int]string) (map[string]any, []string) {
	processed := make(map[string]any, len(arguments))
	var unresolved []string

	for key, value := range arguments {
		str, ok := value.(string)
		if !ok {
			processed[key] = value
			continue
		}
		resolved, missing := p.processString(str, key, stepResults)
		processed[key] = resolved
		unresolved = append(unresolved, missing...)
	}
	return processed, unresolved
}

func (p *ArgumentProcessor) processString(value, key string, stepResults map[int]string) (string, []string) {
	var unresolved []string

	if dollarStepRe.MatchString(value) {
		value = dollarStepRe.ReplaceAllStringFunc(value, func(match string) string {
			groups := dollarStepRe.FindStringSubmatch(match)
			stepNum, _ := strconv.Atoi(groups[1])
			result, ok := stepResults[stepNum]
			if !ok {
				unresolved = append(unresolved, match)
				return match
			}
			if groups[2] != "" {
				if extracted, ok := extractByPath(result, groups[2]); ok {
					return extracted
				}
			}
			return extractMeaningful(result)
		})
		return value, unresolved
	}

	if braceStepRe.MatchString(value) {
		value = braceStepRe.ReplaceAllStringFunc(value, func(match string) string {
			groups := braceStepRe.FindStringSubmatch(match)
			stepNum, _ := strconv.Atoi(groups[1])
			result, ok := stepResults[stepNum]
			if !ok {
				unresolved = append(unresolved, match)
				return match
			}
			return extractMeaningful(result)
		})
		return value, unresolved
	}

	if angleStepRe.MatchString(value) {
		value = angleStepRe.ReplaceAllStringFunc(value, func(match string) string {
			groups := angleStepRe.FindStringSubmatch(match)
			stepNum, _ := strconv.Atoi(groups[1])
			result, ok := stepResults[stepNum]
			if !ok {
				unresolved = append(unresolved, match)
				return match
			}
			return extractMeaningful(result)
		})
		return value, unresolved
	}

	if isMalformedReference(value) {
		if recovered, ok := recoverMalformed(value, key, stepResults); ok {
			return recovered, nil
		}
		unresolved = append(unresolved, value)
	}

	return value, unresolved
}

func isMalformedReference(value string) bool {
	for _, re := range malformedPatterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// recoverMalformed maps a natural-language reference to a concrete step
// result: path-like keys take step 1 (with a default extension appended when
// missing), everything else takes the highest-numbered completed step.
func recoverMalformed(value, key string, stepResults map[int]string) (string, bool) {
	if len(stepResults) == 0 {
		return "", false
	}

	if pathLikeKeys[key] {
		if result, ok := stepResults[1]; ok {
			recovered := extractMeaningful(result)
			if filepath.Ext(recovered) == "" {
				recovered += ".txt"
			}
			return recovered, true
		}
	}

	latest := 0
	for num := range stepResults {
		if num > latest {
			latest = num
		}
	}
	return extractMeaningful(stepResults[latest]), true
}

// extractByPath resolves a dotted path against a result string, re-parsing
// JSON at each segment. Numeric segments index into arrays.
func extractByPath(result, path string) (string, bool) {
	var current any
	if err := json.Unmarshal([]byte(result), &current); err != nil {
		return "", false
	}

	for _, segment := range strings.Split(path, ".") {
		// Intermediate values may themselves be JSON strings.
		if str, ok := current.(string); ok {
			var reparsed any
			if err := json.Unmarshal([]byte(str), &reparsed); err == nil {
				current = reparsed
			}
		}

		switch v := current.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return "", false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return "", false
			}
			current = v[idx]
		default:
			return "", false
		}
	}

	return stringify(current), true
}

// extractMeaningful pulls the most useful content out of a raw step result.
// JSON objects are probed for the usual content fields, nested result/data
// wrappers are unwrapped, and anything else falls through to the raw string.
func extractMeaningful(result string) string {
	var data map[string]any
	if err := json.Unmarshal([]byte(result), &data); err != nil {
		return result
	}
	return meaningfulFromMap(data)
}

func meaningfulFromMap(data map[string]any) string {
	for _, field := range []string{"content", "message", "text", "description"} {
		if v, ok := data[field]; ok && stringify(v) != "" {
			return stringify(v)
		}
	}

	for _, field := range []string{"result", "data"} {
		v, ok := data[field]
		if !ok {
			continue
		}
		switch nested := v.(type) {
		case map[string]any:
			if content := meaningfulFromMap(nested); content != "" {
				return content
			}
		case []any:
			if len(nested) > 0 {
				if m, ok := nested[0].(map[string]any); ok {
					return meaningfulFromMap(m)
				}
				return stringify(nested[0])
			}
		default:
			if s := stringify(v); s != "" {
				return s
			}
		}
	}

	// Remaining scalar fields, skipping metadata noise. Sorted for
	// deterministic output.
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if noiseKeys[k] {
			continue
		}
		switch data[k].(type) {
		case string, float64, bool:
			if s := stringify(data[k]); s != "" {
				return s
			}
		}
	}

	dump, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(dump)
}

// IsEmptyResult reports whether a raw result carries no usable content, so
// a step can signal "nothing here" without tool-specific wording.
func IsEmptyResult(result string) bool {
	trimmed := strings.TrimSpace(result)
	if trimmed == "" {
		return true
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return false
	}
	if len(data) == 0 {
		return true
	}
	for _, v := range data {
		if v != nil && stringify(v) != "" {
			return false
		}
	}
	return true
}

// FallbackMessage is the domain-neutral stand-in for a step that produced no
// usable result.
func FallbackMessage(stepNum int) string {
	return fmt.Sprintf("step %d produced no usable result", stepNum)
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		blob, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(blob)
	}
}

// RepairPlanArguments rewrites malformed natural-language references in a
// freshly planned step's arguments into proper $step_N placeholders. At
// planning time no results exist yet, so the reference stays symbolic.
func RepairPlanArguments(arguments map[string]any, stepNum int) map[string]any {
	repaired := make(map[string]any, len(arguments))
	for key, value := range arguments {
		str, ok := value.(string)
		if !ok || !isMalformedReference(str) {
			repaired[key] = value
			continue
		}
		repaired[key] = repairedPlaceholder(str, stepNum)
	}
	return repaired
}

var stepMentionRe = regexp.MustCompile(`(?i)step[_\s]*(\d+)`)

func repairedPlaceholder(value string, stepNum int) string {
	mentions := stepMentionRe.FindAllStringSubmatch(value, -1)
	if len(mentions) > 0 {
		return "$step_" + mentions[len(mentions)-1][1]
	}
	prev := stepNum - 1
	if prev < 1 {
		prev = 1
	}
	return fmt.Sprintf("$step_%d", prev)
}
