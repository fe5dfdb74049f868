package tui

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

// truncateEnd shortens s to at most max characters, appending an ellipsis
// if truncation occurs. Handles negative or tiny limits gracefully.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

// truncateMiddle shortens s to at most limit characters by preserving the
// start and end of the string with a single ellipsis in the middle.
func truncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	n := len(r)
	if n <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	keep := limit - 1
	left := keep / 2
	right := keep - left
	if left <= 0 {
		return "…" + string(r[n-right:])
	}
	return string(r[:left]) + "…" + string(r[n-right:])
}

// clampLines word-wraps s to width and returns exactly n lines. When text is
// cut the last kept line ends with an ellipsis. Missing lines are blank.
func clampLines(s string, width, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	if width <= 0 {
		return out
	}

	flat := strings.Join(strings.Fields(s), " ")
	if flat == "" {
		return out
	}
	wrapped := strings.Split(wordwrap.String(flat, width), "\n")

	for i := 0; i < n && i < len(wrapped); i++ {
		out[i] = truncateEnd(strings.TrimRight(wrapped[i], " "), width)
	}
	if len(wrapped) > n {
		last := []rune(out[n-1])
		if len(last) >= width {
			last = last[:width-1]
		}
		out[n-1] = string(last) + "…"
	}
	return out
}
