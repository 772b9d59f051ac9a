package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"debate-lab-service/internal/domain"
)

// StripFences removes a surrounding Markdown code fence (``` or ```json).
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeObject extracts the JSON object from a completion. Text around the
// outermost braces is ignored; anything that is not an object wraps
// domain.ErrMalformedAI.
func DecodeObject(raw string) (map[string]any, error) {
	s := StripFences(raw)
	if !strings.HasPrefix(s, "{") {
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: no JSON object in %q", domain.ErrMalformedAI, truncate(s, 120))
		}
		s = s[start : end+1]
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedAI, err)
	}
	return obj, nil
}

// Number returns a numeric field of obj.
func Number(obj map[string]any, key string) (float64, error) {
	v, ok := obj[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", domain.ErrMalformedAI, key)
	}
	return v, nil
}

// String returns a string field of obj.
func String(obj map[string]any, key string) (string, error) {
	v, ok := obj[key].(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", domain.ErrMalformedAI, key)
	}
	return v, nil
}

// Strings returns an array-of-strings field of obj.
func Strings(obj map[string]any, key string) ([]string, error) {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an array", domain.ErrMalformedAI, key)
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %q contains a non-string", domain.ErrMalformedAI, key)
		}
		out = append(out, s)
	}
	return out, nil
}

// Objects returns an array-of-objects field of obj.
func Objects(obj map[string]any, key string) ([]map[string]any, error) {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an array", domain.ErrMalformedAI, key)
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q contains a non-object", domain.ErrMalformedAI, key)
		}
		out = append(out, m)
	}
	return out, nil
}
