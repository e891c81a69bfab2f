// Package completion turns free-text language-model responses into structured values.
// Every decode returns an Outcome that keeps the raw text, so callers can apply a
// named fallback instead of failing when the model ignores the requested format.
package completion

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// CleanJSON strips markdown fences, leading prose and trailing chatter around the
// JSON object or array in raw, plus invalid UTF-8 and control characters.
// Text with no JSON structure is returned trimmed.
func CleanJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		// drop a language tag such as ```json
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			first := strings.TrimSpace(cleaned[:idx])
			if len(first) < 20 && !strings.ContainsAny(first, " {[") {
				cleaned = cleaned[idx+1:]
			}
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	if !utf8.ValidString(cleaned) {
		cleaned = strings.ToValidUTF8(cleaned, "")
	}

	var sb strings.Builder
	sb.Grow(len(cleaned))
	for _, r := range cleaned {
		if (r >= 0 && r < 9) || (r > 10 && r < 13) || (r > 13 && r < 32) || r == 127 {
			continue
		}
		sb.WriteRune(r)
	}
	cleaned = strings.TrimSpace(strings.TrimPrefix(sb.String(), "\uFEFF"))
	return strings.TrimSpace(extractJSON(cleaned))
}

// extractJSON returns the largest balanced top-level object or array that is valid JSON,
// so bracketed prose such as "Here are [3] posts:" does not shadow the payload. Without a
// valid candidate it falls back to the span between the outermost brackets.
func extractJSON(s string) string {
	if json.Valid([]byte(s)) {
		return s
	}
	best := ""
	for start := 0; start < len(s); start++ {
		if s[start] != '{' && s[start] != '[' {
			continue
		}
		end := closingIndex(s, start)
		if end < 0 {
			continue
		}
		if candidate := s[start : end+1]; json.Valid([]byte(candidate)) {
			if len(candidate) > len(best) {
				best = candidate
			}
			start = end
		}
	}
	if best != "" {
		return best
	}

	firstBrace := strings.Index(s, "{")
	lastBrace := strings.LastIndex(s, "}")
	firstBracket := strings.Index(s, "[")
	lastBracket := strings.LastIndex(s, "]")
	isObject := firstBrace != -1 && lastBrace > firstBrace
	isArray := firstBracket != -1 && lastBracket > firstBracket

	switch {
	case isObject && (!isArray || firstBrace < firstBracket):
		return s[firstBrace : lastBrace+1]
	case isArray:
		return s[firstBracket : lastBracket+1]
	}
	return s
}

// closingIndex finds the bracket that balances s[start], ignoring brackets inside strings.
// It returns -1 when the structure never closes.
func closingIndex(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
