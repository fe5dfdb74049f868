package tui

import "fmt"

// Canonical short status messages used across the app.
const (
	MsgSearching          = "Searching for news…"
	MsgLoadingHistory     = "Loading history…"
	MsgLoadingDetail      = "Loading article…"
	MsgEmptyHeadline      = "Search for news topics to get started"
	MsgEmptyHint          = "Enter a topic and hit search or press enter"
	MsgNoHistory          = "No searches yet"
	MsgNoFacts            = "Nothing shared with the assistant yet"
	MsgHistoryUnavailable = "Search history is unavailable"
	SearchPlaceholder     = "Search news topics…"
	SearchButtonLabel     = "Search"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 article"
	}
	return fmt.Sprintf("%d articles", n)
}

func MsgHistoryCount(n int) string {
	if n == 1 {
		return "1 search"
	}
	return fmt.Sprintf("%d searches", n)
}
