package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pders01/newspulse/internal/assistant"
	"github.com/pders01/newspulse/internal/dashboard"
	"github.com/pders01/newspulse/internal/debuglog"
	"github.com/pders01/newspulse/internal/news"
)

const defaultHistoryLimit = 50

type searchDoneMsg struct {
	outcome dashboard.Outcome
}

type detailRenderedMsg struct {
	id      string
	content string
}

type historyLoadedMsg struct {
	entries []news.HistoryEntry
	err     error
}

type toastExpiredMsg struct {
	id int
}

type factPublishedMsg struct {
	fact assistant.Fact
}

// runSearch performs the network part of a submitted search off the UI loop.
func (a *App) runSearch(req dashboard.Request) tea.Cmd {
	dash := a.dash
	return func() tea.Msg {
		return searchDoneMsg{outcome: dash.Run(context.Background(), req)}
	}
}

func (a *App) loadHistory() tea.Cmd {
	backend := a.backend
	limit := a.config.Server.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return func() tea.Msg {
		entries, err := backend.RecentHistory(context.Background(), limit)
		if err != nil {
			return historyLoadedMsg{err: fmt.Errorf("loading history: %w", err)}
		}
		return historyLoadedMsg{entries: entries}
	}
}

// renderDetail renders item as markdown for the overlay body. Successful
// renders are cached per item and wrap width.
func (a *App) renderDetail(item news.Item) tea.Cmd {
	r, rerr := a.getRenderer()
	key := a.detailKey(item)
	cache := a.detailCache
	return func() tea.Msg {
		var content strings.Builder
		title := item.Title
		if strings.TrimSpace(title) == "" {
			title = "Untitled"
		}
		content.WriteString(fmt.Sprintf("# %s\n\n", title))
		content.WriteString(item.Content)

		if rerr != nil {
			debuglog.Warnf("detail renderer unavailable: %v", rerr)
			return detailRenderedMsg{id: item.ID, content: content.String()}
		}

		rendered, err := r.Render(content.String())
		if err != nil {
			debuglog.Warnf("rendering %s: %v", item.ID, err)
			return detailRenderedMsg{id: item.ID, content: content.String()}
		}
		cache.Add(key, rendered)
		return detailRenderedMsg{id: item.ID, content: rendered}
	}
}

func (a *App) detailKey(item news.Item) string {
	width := clampWrap(modalRect(a.width, a.height).modalInnerWidth() - 2)
	return fmt.Sprintf("%d/%s/%s", width, item.ID, item.Title)
}

func (a *App) waitForFact() tea.Cmd {
	ch := a.factUpdates
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		fact, ok := <-ch
		if !ok {
			return nil
		}
		return factPublishedMsg{fact: fact}
	}
}

func expireToast(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// assistantMarkdown renders the readable context shared with the assistant.
func assistantMarkdown(facts []assistant.Fact) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n%s\n\n", assistant.Title, assistant.Greeting))
	if len(facts) == 0 {
		b.WriteString("_" + MsgNoFacts + "_\n")
		return b.String()
	}
	b.WriteString("---\n\n")
	for _, f := range facts {
		b.WriteString(fmt.Sprintf("## %s\n\n`%s`\n\n", f.Description, f.Key))
		b.WriteString("```json\n")
		b.WriteString(prettyJSON(f.Value))
		b.WriteString("\n```\n\n")
	}
	return b.String()
}

func prettyJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	width := clampWrap(modalRect(a.width, a.height).modalInnerWidth() - 2)
	if a.glamourRenderer == nil || a.rendererWidth != width {
		r, err := newRenderer(width)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = width
	}
	return a.glamourRenderer, nil
}

// getAssistantRenderer is used on the UI loop only, so it never shares a
// renderer with an in-flight detail render.
func (a *App) getAssistantRenderer() (*glamour.TermRenderer, error) {
	width := clampWrap(a.width - 4)
	if a.assistantRenderer == nil || a.assistantWidth != width {
		r, err := newRenderer(width)
		if err != nil {
			return nil, err
		}
		a.assistantRenderer = r
		a.assistantWidth = width
	}
	return a.assistantRenderer, nil
}

func newRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}

func clampWrap(width int) int {
	if width > 120 {
		return 120
	}
	if width < 20 {
		return 20
	}
	return width
}
