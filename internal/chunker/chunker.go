// Package chunker splits novel text into model-sized pieces.
//
// Splitting is two-phase: whole lines are packed first, and any single line
// run that still exceeds the budget is re-packed word by word. A line or word
// longer than the budget is emitted intact as its own chunk; text is never
// cut mid-token and never dropped. Budgets count runes, not bytes, so
// multibyte Japanese text is measured the same way a reader would count it.
package chunker

import (
	"strings"
	"unicode/utf8"
)

func Split(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		return []string{text}
	}

	chunks := make([]string, 0)
	for _, chunk := range splitLines(text, maxChars) {
		if utf8.RuneCountInString(chunk) <= maxChars {
			chunks = append(chunks, chunk)
			continue
		}
		chunks = append(chunks, splitWords(chunk, maxChars)...)
	}

	return chunks
}

func splitLines(text string, maxChars int) []string {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	chunks := make([]string, 0)
	var current strings.Builder
	currentLen := 0

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		lineLen := utf8.RuneCountInString(line)

		cost := lineLen
		if currentLen > 0 {
			cost++ // joining newline
		}

		if currentLen+cost > maxChars && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}

		if current.Len() == 0 {
			current.WriteString(line)
			currentLen = lineLen
		} else {
			current.WriteByte('\n')
			current.WriteString(line)
			currentLen += lineLen + 1
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func splitWords(text string, maxChars int) []string {
	chunks := make([]string, 0)
	var current strings.Builder
	currentLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)

		cost := wordLen
		if currentLen > 0 {
			cost++ // joining space
		}

		if currentLen+cost > maxChars && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}

		if current.Len() == 0 {
			current.WriteString(word)
			currentLen = wordLen
		} else {
			current.WriteByte(' ')
			current.WriteString(word)
			currentLen += wordLen + 1
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
