package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"bskb/internal/errors"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls a JSON document out of free model text. Three tiers,
// tried in order:
//
//  1. the whole response parses as JSON
//  2. the first fenced ``` block parses
//  3. the outermost {...} or [...] span parses
//
// The tiered strategy is an inherent boundary condition of free-text
// inference, not a workaround: the collaborator gives no structured
// output guarantee.
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.New(errors.MalformedInferenceOutput, "empty inference response", nil)
	}

	if raw, ok := tryParse(trimmed); ok {
		return raw, nil
	}

	for _, m := range fencedJSONPattern.FindAllStringSubmatch(trimmed, -1) {
		if raw, ok := tryParse(strings.TrimSpace(m[1])); ok {
			return raw, nil
		}
	}

	if raw, ok := tryParse(outerSpan(trimmed, '{', '}')); ok {
		return raw, nil
	}
	if raw, ok := tryParse(outerSpan(trimmed, '[', ']')); ok {
		return raw, nil
	}

	return nil, errors.New(errors.MalformedInferenceOutput, "no parseable JSON in inference response", nil)
}

func tryParse(s string) (json.RawMessage, bool) {
	if s == "" {
		return nil, false
	}
	// Only objects and arrays count; a bare string or number is never a
	// useful ranking payload.
	if s[0] != '{' && s[0] != '[' {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return json.RawMessage(s), true
}

// outerSpan returns the substring from the first open delimiter to the
// last matching close delimiter, or "" when absent.
func outerSpan(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
