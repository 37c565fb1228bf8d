package application

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls the first JSON object out of a completion. Completions
// are untrusted: models wrap objects in prose or code fences, so the
// parser scans for a balanced top-level object instead of trusting the
// whole text.
func extractJSON(text string, out any) error {
	text = strings.TrimSpace(text)

	// Strip a ```json fence when the whole completion is one.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return fmt.Errorf("completion contains no JSON object")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				if err := json.Unmarshal([]byte(text[start:i+1]), out); err != nil {
					return fmt.Errorf("malformed JSON object: %w", err)
				}
				return nil
			}
		}
	}
	return fmt.Errorf("completion contains an unterminated JSON object")
}
