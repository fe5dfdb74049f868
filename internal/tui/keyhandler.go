package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/newspulse/internal/config"
)

type keyMap struct {
	Quit      key.Binding
	QuitPlain key.Binding
	Search    key.Binding
	History   key.Binding
	Assistant key.Binding
	Back      key.Binding
	Submit    key.Binding
	Open      key.Binding
	Focus     key.Binding
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Scroll    key.Binding
}

func newKeyMap(cfg *config.Config) keyMap {
	mod := cfg.Keys.Modifier + "+"
	b := cfg.Keys.Bindings
	back := b.Back
	if back == "" {
		back = "esc"
	}

	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("ctrl+c", mod+b.Quit), key.WithHelp(mod+b.Quit, "quit")),
		QuitPlain: key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Search:    key.NewBinding(key.WithKeys(mod+b.Search), key.WithHelp(mod+b.Search, "search")),
		History:   key.NewBinding(key.WithKeys(mod+b.History), key.WithHelp(mod+b.History, "history")),
		Assistant: key.NewBinding(key.WithKeys(mod+b.Assistant), key.WithHelp(mod+b.Assistant, "assistant")),
		Back:      key.NewBinding(key.WithKeys(back), key.WithHelp(back, "back")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Focus:     key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "focus")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Scroll:    key.NewBinding(key.WithKeys("up", "down", "pgup", "pgdown"), key.WithHelp("↑↓", "scroll")),
	}
}

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
	keys        keyMap
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey, keys: newKeyMap(cfg)}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app

	if key.Matches(msg, kh.keys.Quit) {
		return a, tea.Quit
	}

	if a.view == ViewDashboard && a.dash.Overlay().Visible() {
		return kh.handleOverlayKey(msg)
	}

	if a.view == ViewHistory && a.historyList.FilterState() == list.Filtering {
		return kh.delegateToHistory(msg)
	}

	switch {
	case key.Matches(msg, kh.keys.Search):
		return kh.focusSearch()
	case key.Matches(msg, kh.keys.History):
		return kh.toggleView(ViewHistory)
	case key.Matches(msg, kh.keys.Assistant):
		return kh.toggleView(ViewAssistant)
	}

	switch a.view {
	case ViewHistory:
		return kh.handleHistoryKey(msg)
	case ViewAssistant:
		return kh.handleAssistantKey(msg)
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}
	return kh.handleGridKey(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewDashboard && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app

	switch {
	case key.Matches(msg, kh.keys.Submit):
		return a, a.submitSearch()
	case key.Matches(msg, kh.keys.Back), key.Matches(msg, kh.keys.Focus), msg.Type == tea.KeyDown:
		if len(a.dash.News()) > 0 && !a.dash.Loading() {
			a.focusGrid()
		}
		return a, nil
	default:
		return kh.delegateToTextInput(msg)
	}
}

// delegateToTextInput passes the key to the search input and records the edit.
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	newSearchInput, cmd := a.searchInput.Update(msg)
	a.searchInput = newSearchInput
	a.dash.SetTopic(a.searchInput.Value())
	return a, cmd
}

func (kh *KeyHandler) handleGridKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	grid := a.grid()

	switch {
	case key.Matches(msg, kh.keys.QuitPlain):
		return a, tea.Quit
	case key.Matches(msg, kh.keys.Open):
		return a, a.openDetail(a.cursor)
	case key.Matches(msg, kh.keys.Back), key.Matches(msg, kh.keys.Focus), msg.String() == "/":
		return a, a.focusInput()
	case key.Matches(msg, kh.keys.Up):
		if a.cursor < grid.columns {
			return a, a.focusInput()
		}
		a.moveCursor(-grid.columns)
	case key.Matches(msg, kh.keys.Down):
		a.moveCursor(grid.columns)
	case key.Matches(msg, kh.keys.Left):
		a.moveCursor(-1)
	case key.Matches(msg, kh.keys.Right):
		a.moveCursor(1)
	}
	return a, nil
}

func (kh *KeyHandler) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	if key.Matches(msg, kh.keys.Back) || key.Matches(msg, kh.keys.QuitPlain) {
		a.closeDetail()
		return a, nil
	}
	newViewport, cmd := a.detail.Update(msg)
	a.detail = newViewport
	return a, cmd
}

func (kh *KeyHandler) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app

	switch {
	case key.Matches(msg, kh.keys.Back):
		return kh.navigateBack()
	case key.Matches(msg, kh.keys.Open):
		if item, ok := a.historyList.SelectedItem().(historyItem); ok {
			return a, a.searchTopic(item.entry.Topic)
		}
		return a, nil
	}
	return kh.delegateToHistory(msg)
}

func (kh *KeyHandler) delegateToHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	newList, cmd := kh.app.historyList.Update(msg)
	kh.app.historyList = newList
	return kh.app, cmd
}

func (kh *KeyHandler) handleAssistantKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	if key.Matches(msg, kh.keys.Back) || key.Matches(msg, kh.keys.QuitPlain) {
		return kh.navigateBack()
	}
	newViewport, cmd := a.assistantView.Update(msg)
	a.assistantView = newViewport
	return a, cmd
}

func (kh *KeyHandler) focusSearch() (tea.Model, tea.Cmd) {
	a := kh.app
	a.view = ViewDashboard
	return a, a.focusInput()
}

func (kh *KeyHandler) toggleView(v View) (tea.Model, tea.Cmd) {
	a := kh.app
	if a.view == v {
		return kh.navigateBack()
	}

	a.view = v
	a.searchInput.Blur()

	switch v {
	case ViewHistory:
		a.loadingHistory = true
		return a, a.loadHistory()
	case ViewAssistant:
		a.refreshAssistant()
	}
	return a, nil
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app
	a.view = ViewDashboard
	if a.focus == focusInput {
		return a, a.focusInput()
	}
	return a, nil
}

// GetHelpForCurrentView lists the bindings shown in the status bar.
func (kh *KeyHandler) GetHelpForCurrentView() []key.Binding {
	k := kh.keys
	a := kh.app

	switch a.view {
	case ViewHistory:
		return []key.Binding{k.Open, k.Back, k.Assistant, k.Quit}
	case ViewAssistant:
		return []key.Binding{k.Scroll, k.Back, k.History, k.Quit}
	}

	if a.dash.Overlay().Visible() {
		return []key.Binding{k.Scroll, k.Back}
	}
	if a.searchInput.Focused() {
		return []key.Binding{k.Submit, k.Focus, k.History, k.Assistant, k.Quit}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down", "left", "right"), key.WithHelp("←↑↓→", "move")),
		k.Open, k.Search, k.History, k.Assistant, k.QuitPlain,
	}
}
