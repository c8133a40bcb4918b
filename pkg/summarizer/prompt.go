package summarizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Placeholder is returned for rows whose text is too short to summarize.
const Placeholder = "No text available to summarize."

// ErrorPrefix starts every summary that reports a failed generation.
const ErrorPrefix = "Error generating summary: "

// minTextLength is the shortest trimmed text, in characters, worth sending.
const minTextLength = 10

const promptTemplate = `Below is the inscription text from a historical marker. Please write a concise summary (2-3 sentences) that captures the key historical information. Focus on the historical significance, key dates, and the people mentioned.

INSCRIPTION:
%s

SUMMARY:`

var reasoningBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// BuildPrompt embeds text, unmodified, in the summarization prompt.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// TooShort reports whether text gets the placeholder instead of a request.
func TooShort(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) < minTextLength
}

// Normalize collapses every run of whitespace, newlines included, into a
// single space and trims the ends. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripReasoning removes <think>...</think> blocks emitted by reasoning models.
func StripReasoning(s string) string {
	return reasoningBlock.ReplaceAllString(s, " ")
}

// IsError reports whether summary is an error report rather than a summary.
func IsError(summary string) bool {
	return strings.HasPrefix(summary, ErrorPrefix)
}
