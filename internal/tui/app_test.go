package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/newspulse/internal/assistant"
	"github.com/pders01/newspulse/internal/config"
	"github.com/pders01/newspulse/internal/dashboard"
	"github.com/pders01/newspulse/internal/news"
)

type fakeBackend struct {
	mu         sync.Mutex
	items      []news.Item
	err        error
	historyErr error
	entries    []news.HistoryEntry
	searched   []string
	recorded   []string
}

func (f *fakeBackend) FetchNews(_ context.Context, topic string) ([]news.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, topic)
	return f.items, f.err
}

func (f *fakeBackend) RecordHistory(_ context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, topic)
	return f.historyErr
}

func (f *fakeBackend) RecentHistory(_ context.Context, _ int) ([]news.HistoryEntry, error) {
	return f.entries, f.historyErr
}

func sampleItems(n int) []news.Item {
	titles := []string{"Rover finds ice", "Election results", "Storm season", "Chip shortage", "Market rally"}
	items := make([]news.Item, n)
	for i := range items {
		items[i] = news.Item{ID: titles[i%len(titles)], Title: titles[i%len(titles)], Content: "Details about " + titles[i%len(titles)]}
	}
	return items
}

func newTestApp(t *testing.T, backend *fakeBackend) *App {
	t.Helper()
	app := NewApp(config.TestConfig(), backend, assistant.NewRegistry())
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return app
}

func typeText(app *App, text string) {
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// finishSearch runs the in-flight request and feeds its outcome back.
func finishSearch(app *App) {
	req := dashboard.Request{Generation: app.dash.State().Generation, Topic: app.dash.Topic()}
	app.Update(searchDoneMsg{outcome: app.dash.Run(context.Background(), req)})
}

func TestApp_EmptySubmitWarns(t *testing.T) {
	backend := &fakeBackend{}
	app := newTestApp(t, backend)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.NotNil(t, cmd, "toast expiry should be scheduled")
	assert.False(t, app.dash.Loading())
	assert.Empty(t, backend.searched)
	require.Len(t, app.toasts, 1)
	assert.Equal(t, StatusWarn, app.toasts[0].kind)
	assert.Contains(t, app.View(), dashboard.MsgEmptyTopic)
}

func TestApp_SearchShowsCards(t *testing.T) {
	backend := &fakeBackend{items: sampleItems(2)}
	app := newTestApp(t, backend)

	typeText(app, "space")
	assert.Equal(t, "space", app.dash.Topic())

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, app.dash.Loading())
	assert.Contains(t, app.View(), MsgSearching)

	finishSearch(app)

	assert.False(t, app.dash.Loading())
	assert.Equal(t, []string{"space"}, backend.searched)
	assert.Equal(t, []string{"space"}, backend.recorded)
	view := app.View()
	assert.Contains(t, view, "Rover finds ice")
	assert.Contains(t, view, "Election results")
	assert.Contains(t, view, "2 articles")
	assert.NotContains(t, view, MsgEmptyHeadline)
	assert.Empty(t, app.toasts)
}

func TestApp_EmptyStateBeforeSearch(t *testing.T) {
	app := newTestApp(t, &fakeBackend{})

	view := app.View()
	assert.Contains(t, view, MsgEmptyHeadline)
	assert.Contains(t, view, MsgEmptyHint)
	assert.Contains(t, view, SearchButtonLabel)
}

func TestApp_SearchFailureToast(t *testing.T) {
	backend := &fakeBackend{err: &news.StatusError{Op: news.ErrSearchStatus, Status: 500}}
	app := newTestApp(t, backend)

	typeText(app, "space")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	finishSearch(app)

	require.Len(t, app.toasts, 1)
	assert.Equal(t, StatusError, app.toasts[0].kind)
	assert.Equal(t, dashboard.MsgRequestFailed, app.toasts[0].text)
	assert.Contains(t, app.View(), MsgEmptyHeadline)
}

func TestApp_HistoryFailureAddsWarning(t *testing.T) {
	backend := &fakeBackend{items: sampleItems(1), historyErr: news.ErrHistoryStatus}
	app := newTestApp(t, backend)

	typeText(app, "space")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	finishSearch(app)

	require.Len(t, app.toasts, 1)
	assert.Equal(t, StatusWarn, app.toasts[0].kind)
	assert.Equal(t, dashboard.MsgHistoryFailed, app.toasts[0].text)
	assert.Len(t, app.dash.News(), 1)
}

func TestApp_StaleOutcomeIgnored(t *testing.T) {
	app := newTestApp(t, &fakeBackend{})

	first, ok := app.dash.Submit("first")
	require.True(t, ok)
	_, ok = app.dash.Submit("second")
	require.True(t, ok)

	app.Update(searchDoneMsg{outcome: dashboard.Outcome{Request: first, Items: sampleItems(3)}})

	assert.True(t, app.dash.Loading())
	assert.Empty(t, app.dash.News())
}

func TestApp_ToastExpires(t *testing.T) {
	app := newTestApp(t, &fakeBackend{})
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, app.toasts, 1)

	app.Update(toastExpiredMsg{id: app.toasts[0].id + 100})
	assert.Len(t, app.toasts, 1, "unknown ids are ignored")

	app.Update(toastExpiredMsg{id: app.toasts[0].id})
	assert.Empty(t, app.toasts)
}

func TestApp_ToastsAreCapped(t *testing.T) {
	app := newTestApp(t, &fakeBackend{})
	for i := 0; i < maxToasts+2; i++ {
		app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}
	assert.Len(t, app.toasts, maxToasts)
}

func TestApp_OverlayKeyboard(t *testing.T) {
	app := newTestApp(t, &fakeBackend{items: sampleItems(2)})
	typeText(app, "space")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	finishSearch(app)

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusGrid, app.focus)
	assert.False(t, app.searchInput.Focused())

	app.Update(tea.KeyMsg{Type: tea.KeyRight})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	overlay := app.dash.Overlay()
	require.True(t, overlay.Visible())
	selected, _ := overlay.Selected()
	assert.Equal(t, "Election results", selected.Title)
	assert.True(t, app.loadingDetail)

	msg := cmd()
	rendered, ok := msg.(detailRenderedMsg)
	require.True(t, ok)
	assert.Equal(t, selected.ID, rendered.id)
	app.Update(msg)
	assert.False(t, app.loadingDetail)

	view := app.View()
	assert.Contains(t, view, closeLabel)
	assert.Contains(t, view, "Election results")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, overlay.Visible())
}

func TestApp_OverlayReopenUsesCachedRender(t *testing.T) {
	app := newTestApp(t, &fakeBackend{items: sampleItems(1)})
	typeText(app, "space")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	finishSearch(app)

	cmd := app.openDetail(0)
	require.NotNil(t, cmd)
	app.Update(cmd())
	first := app.detail.View()
	app.closeDetail()

	assert.Nil(t, app.openDetail(0), "second open is served from the cache")
	assert.False(t, app.loadingDetail)
	assert.Equal(t, first, app.detail.View())
}

func TestApp_OverlayMouse(t *testing.T) {
	app := newTestApp(t, &fakeBackend{items: sampleItems(3)})
	typeText(app, "space")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	finishSearch(app)

	click := func(x, y int) {
		app.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	}
	overlay := app.dash.Overlay()
	m := modalRect(app.width, app.height)
	closeBtn := closeControlRect(m)

	// Second card of the first row.
	click(45, headerHeight+2)
	require.True(t, overlay.Visible())
	selected, _ := overlay.Selected()
	assert.Equal(t, "Election results", selected.Title)
	assert.Equal(t, 1, app.cursor)

	click(m.x+m.w/2, m.y+m.h/2)
	assert.True(t, overlay.Visible(), "body clicks are contained")

	click(closeBtn.x+1, closeBtn.y)
	assert.False(t, overlay.Visible(), "close control hides")

	click(5, headerHeight+2)
	require.True(t, overlay.Visible())
	click(1, 1)
	assert.False(t, overlay.Visible(), "backdrop click hides")
}

func TestApp_MouseOnSearchButton(t *testing.T) {
	backend := &fakeBackend{items: sampleItems(1)}
	app := newTestApp(t, backend)
	typeText(app, "space")

	b := searchButtonRect(app.width)
	_, cmd := app.Update(tea.MouseMsg{X: b.x + 2, Y: b.y + 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	require.NotNil(t, cmd)
	assert.True(t, app.dash.Loading())
}

func TestApp_ClickOnEmptyCellIgnored(t *testing.T) {
	app := newTestApp(t, &fakeBackend{items: sampleItems(1)})
	typeText(app, "space")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	finishSearch(app)

	app.Update(tea.MouseMsg{X: 90, Y: headerHeight + 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.False(t, app.dash.Overlay().Visible())
}

func TestApp_GridNavigation(t *testing.T) {
	app := newTestApp(t, &fakeBackend{items: sampleItems(5)})
	typeText(app, "space")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	finishSearch(app)
	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, 3, app.grid().columns)

	steps := []struct {
		key  tea.KeyMsg
		want int
	}{
		{tea.KeyMsg{Type: tea.KeyRight}, 1},
		{tea.KeyMsg{Type: tea.KeyDown}, 4},
		{tea.KeyMsg{Type: tea.KeyDown}, 4},
		{tea.KeyMsg{Type: tea.KeyLeft}, 3},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")}, 0},
	}
	for _, s := range steps {
		app.Update(s.key)
		assert.Equal(t, s.want, app.cursor, "after %s", s.key.String())
	}

	app.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, focusInput, app.focus)
	assert.True(t, app.searchInput.Focused())
}

func TestApp_HistoryView(t *testing.T) {
	backend := &fakeBackend{
		items: sampleItems(1),
		entries: []news.HistoryEntry{
			{ID: "h1", Topic: "space", SearchedAt: time.Now()},
			{ID: "h2", Topic: "climate", SearchedAt: time.Now().Add(-time.Hour)},
		},
	}
	app := newTestApp(t, backend)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlH})
	assert.Equal(t, ViewHistory, app.view)
	assert.True(t, app.loadingHistory)
	require.NotNil(t, cmd)

	app.Update(cmd())
	assert.False(t, app.loadingHistory)
	assert.Len(t, app.historyList.Items(), 2)
	assert.Contains(t, app.View(), "climate")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ViewDashboard, app.view)
	assert.Equal(t, "space", app.searchInput.Value())
	assert.True(t, app.dash.Loading())
}

func TestApp_HistoryLoadFailure(t *testing.T) {
	app := newTestApp(t, &fakeBackend{historyErr: news.ErrHistoryStatus})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlH})
	app.Update(cmd())

	require.Len(t, app.toasts, 1)
	assert.Equal(t, MsgHistoryUnavailable, app.toasts[0].text)
	assert.Contains(t, app.View(), MsgNoHistory)
}

func TestApp_AssistantPanel(t *testing.T) {
	reg := assistant.NewRegistry()
	app := NewApp(config.TestConfig(), &fakeBackend{items: sampleItems(1)}, reg)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	require.Equal(t, ViewAssistant, app.view)

	view := app.View()
	assert.Contains(t, view, assistant.Title)
	assert.Contains(t, view, dashboard.NewsFactDescription)

	typeText(app, "x")
	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewDashboard, app.view)
	assert.Empty(t, app.searchInput.Value(), "keys in the panel do not reach the input")
}

func TestApp_FactUpdatesRefreshPanel(t *testing.T) {
	reg := assistant.NewRegistry()
	app := NewApp(config.TestConfig(), &fakeBackend{}, reg)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlA})

	fact := assistant.Fact{Key: "weather", Description: "Local weather", Value: `{"sky":"clear"}`}
	reg.Publish(fact)

	_, cmd := app.Update(factPublishedMsg{fact: fact})
	assert.NotNil(t, cmd, "keeps listening")
	assert.Contains(t, app.View(), "Local weather")
}

func TestApp_ViewBeforeResize(t *testing.T) {
	app := NewApp(config.TestConfig(), &fakeBackend{}, nil)
	assert.Equal(t, "", app.View())
}
