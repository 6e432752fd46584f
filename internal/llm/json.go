package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned by DecodeJSON when no recovery strategy produced
// valid JSON.
var ErrMalformed = errors.New("malformed model output")

// StripFences removes a surrounding markdown code fence (``` or ```lang).
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string ("json", "go", ...) on the opening line.
		if !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractOutermost returns the span from the first '{' or '[' to the last
// matching closer, or "" when there is none.
func extractOutermost(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

// DecodeJSON unmarshals model output into v. It tries the raw text, then the
// text with code fences stripped, then the outermost JSON object or array
// found inside it. The returned error always wraps ErrMalformed.
func DecodeJSON(raw string, v any) error {
	attempts := []string{strings.TrimSpace(raw)}
	stripped := StripFences(raw)
	if stripped != attempts[0] {
		attempts = append(attempts, stripped)
	}
	if inner := extractOutermost(stripped); inner != "" && inner != stripped {
		attempts = append(attempts, inner)
	}

	var lastErr error
	for _, candidate := range attempts {
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), v); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		return fmt.Errorf("%w: empty output", ErrMalformed)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, lastErr)
}
