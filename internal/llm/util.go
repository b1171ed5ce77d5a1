// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"regexp"
	"strings"
)

// chatPreambles are openers models prepend despite being told to return bare HTML
var chatPreambles = []string{
	"Of course. Here is a summary of the feedback in HTML format.",
	"Of course! Here is a summary of the feedback in HTML format.",
	"Here is a summary of the feedback in HTML format.",
}

// htmlRun matches from the first opening tag to the last closing tag
var htmlRun = regexp.MustCompile(`(?s)<[a-zA-Z][^>]*>.*</[a-zA-Z][^>]*>`)

// CleanCodeBlock removes markdown code block wrappers from a response.
// LLMs often wrap output in ```html ... ``` blocks even when instructed not to.
func CleanCodeBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Skip potential language identifier on first line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "<") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// ExtractHTMLFragment returns the HTML portion of a model response: the run
// from the first opening tag to the last closing tag when present, otherwise
// the text with any known chat preamble and code fence removed.
func ExtractHTMLFragment(text string) string {
	if m := htmlRun.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	text = CleanCodeBlock(text)
	for _, preamble := range chatPreambles {
		if strings.HasPrefix(text, preamble) {
			return strings.TrimSpace(text[len(preamble):])
		}
	}
	return text
}
