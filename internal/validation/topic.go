package validation

import "strings"

// MaxTopicLength bounds the topic sent to the search service.
const MaxTopicLength = 256

// SanitizeTopic trims the topic, folds control whitespace into spaces,
// collapses runs of spaces and caps the length. An all-whitespace topic
// becomes "".
func SanitizeTopic(input string) string {
	input = strings.TrimSpace(input)

	input = strings.ReplaceAll(input, "\n", " ")
	input = strings.ReplaceAll(input, "\r", " ")
	input = strings.ReplaceAll(input, "\t", " ")

	for strings.Contains(input, "  ") {
		input = strings.ReplaceAll(input, "  ", " ")
	}

	if r := []rune(input); len(r) > MaxTopicLength {
		input = string(r[:MaxTopicLength])
	}

	return strings.TrimSpace(input)
}
