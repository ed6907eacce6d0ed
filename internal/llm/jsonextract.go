package llm

import "strings"

// ExtractJSONObject implements the recursive-descent balanced-brace
// extractor required by and design note 9 ("not regex"). It
// strips a leading ```json fenced code block when present, then returns
// the first balanced {...} substring found.
func ExtractJSONObject(text string) (string, bool) {
	text = stripCodeFence(text)

	start := -1
	depth := 0
	inString := false
	escape := false

	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if escape {
			escape = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escape = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	lines := strings.SplitN(trimmed, "\n", 2)
	if len(lines) < 2 {
		return text
	}
	rest := lines[1]
	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}
