package pipeline

import "strings"

// extractJSONArray recovers a JSON array from free-form LLM output. Fenced
// code blocks are stripped, then the string is scanned from the first '[',
// tracking string and escape state, until the matching ']'. Returns "" when
// no balanced array is found.
func extractJSONArray(s string) string {
	s = stripCodeFences(s)

	start := strings.IndexByte(s, '[')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

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
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 && c == ']' {
				return s[start : i+1]
			}
		}
	}

	return ""
}

// extractJSONObject recovers a JSON object the same way, scanning from the
// first '{' to its matching '}'.
func extractJSONObject(s string) string {
	s = stripCodeFences(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

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
			if depth == 0 && c == '}' {
				return s[start : i+1]
			}
		}
	}

	return ""
}

// stripCodeFences removes markdown code fence lines, keeping their content.
func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// clamp01 confines a score to [0, 1]. Malformed LLM numbers never propagate
// raw.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
