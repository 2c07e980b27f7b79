package classify

import "strings"

// ExtractObject pulls the single JSON object out of a model reply, tolerating
// incidental code-fence wrapping. Returns "" when no object can be found;
// callers fall back to the safe default.
func ExtractObject(s string) string {
	if block := extractFencedBlock(s); block != "" {
		if obj := extractBraced(block); obj != "" {
			return obj
		}
	}
	return extractBraced(s)
}

// extractFencedBlock extracts the body of a ```json ... ``` (or bare ```)
// fence.
func extractFencedBlock(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return ""
	}
	nl := strings.Index(s[start:], "\n")
	if nl == -1 {
		return ""
	}
	body := s[start+nl+1:]
	end := strings.Index(body, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(body[:end])
}

// extractBraced returns the first balanced {...} run, tracking strings so
// braces inside values do not confuse the depth count.
func extractBraced(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
