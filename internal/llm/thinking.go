package llm

import "strings"

// thinkingTags are the tag pairs models use for private reasoning, checked
// in order.
var thinkingTags = [][2]string{
	{"<thinking>", "</thinking>"},
	{"<think>", "</think>"},
}

// ExtractThinking splits a raw model output into (thinking, cleaned).
// Every balanced thinking block is collected; the cleaned text has the
// blocks removed. An unterminated opening tag is left alone — the whole
// input is treated as plain text rather than guessing where it ends.
func ExtractThinking(raw string) (thinking, cleaned string) {
	if raw == "" {
		return "", ""
	}

	cleaned = raw
	var parts []string
	for _, tags := range thinkingTags {
		openTag, closeTag := tags[0], tags[1]
		for {
			start := strings.Index(cleaned, openTag)
			if start < 0 {
				break
			}
			end := strings.Index(cleaned[start+len(openTag):], closeTag)
			if end < 0 {
				// unterminated tag: do not guess
				break
			}
			body := cleaned[start+len(openTag) : start+len(openTag)+end]
			if trimmed := strings.TrimSpace(body); trimmed != "" {
				parts = append(parts, trimmed)
			}
			cleaned = cleaned[:start] + cleaned[start+len(openTag)+end+len(closeTag):]
		}
	}

	if len(parts) == 0 {
		return "", raw
	}
	return strings.Join(parts, "\n"), strings.TrimSpace(cleaned)
}
