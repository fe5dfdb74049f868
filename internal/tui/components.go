package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// renderHeader returns a consistently styled header with an optional muted
// subtitle on the same line.
func renderHeader(title, subtitle string, width int) string {
	title = truncateEnd(title, width-2)
	head := HeaderStyle.Render(title)
	if subtitle == "" {
		return head
	}
	room := width - lipgloss.Width(head) - 3
	if room <= 0 {
		return head
	}
	return head + renderMuted(" · "+truncateEnd(subtitle, room))
}

// renderInputFrame draws a rounded bordered container around a rendered input
// view. The frame is contentWidth+4 cells wide.
func renderInputFrame(inputView string, focused bool, contentWidth int) string {
	borderColor := MutedColor
	if focused {
		borderColor = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(contentWidth + 2).
		MaxHeight(3).
		Render(inputView)
}

// renderCentered centers the provided content within the given width/height box.
func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		MaxHeight(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

// renderMuted renders text in muted color.
func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}
