package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pders01/newspulse/internal/dashboard"
	"github.com/pders01/newspulse/internal/news"
)

const maxPreviewRunes = 280

func kindColor(kind dashboard.Kind) *color.Color {
	switch kind {
	case dashboard.KindError:
		return color.New(color.FgRed)
	case dashboard.KindWarn:
		return color.New(color.FgYellow)
	case dashboard.KindSuccess:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgCyan)
	}
}

func printNotification(w io.Writer, n dashboard.Notification) {
	kindColor(n.Kind).Fprintf(w, "[%s] %s\n", n.Kind, n.Text)
}

// printItems writes one card per item: a bold title and a flattened preview.
func printItems(w io.Writer, items []news.Item) {
	title := color.New(color.Bold)
	for i, item := range items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title.Fprintf(w, "• %s\n", item.Title)
		if content := strings.Join(strings.Fields(item.Content), " "); content != "" {
			if r := []rune(content); len(r) > maxPreviewRunes {
				content = string(r[:maxPreviewRunes-1]) + "…"
			}
			fmt.Fprintf(w, "  %s\n", content)
		}
	}
}

// printHistory renders entries as a borderless two column table.
func printHistory(w io.Writer, entries []news.HistoryEntry) error {
	if len(entries) == 0 {
		color.New(color.Faint).Fprintln(w, "No searches recorded yet")
		return nil
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Topic, e.SearchedAt.Local().Format("2006-01-02 15:04")})
	}

	table.Header([]string{"Topic", "Searched"})
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("building history table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering history table: %w", err)
	}
	return nil
}
