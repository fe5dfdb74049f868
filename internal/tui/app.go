package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pders01/newspulse/internal/assistant"
	"github.com/pders01/newspulse/internal/config"
	"github.com/pders01/newspulse/internal/dashboard"
	"github.com/pders01/newspulse/internal/debuglog"
	"github.com/pders01/newspulse/internal/news"
	"github.com/pders01/newspulse/internal/validation"
)

type View int

const (
	ViewDashboard View = iota
	ViewHistory
	ViewAssistant
)

type focusArea int

const (
	focusInput focusArea = iota
	focusGrid
)

const (
	maxToasts            = 3
	defaultToastDuration = 4 * time.Second
	detailCacheSize      = 64
)

// Backend is the news service as seen by the dashboard.
type Backend interface {
	FetchNews(ctx context.Context, topic string) ([]news.Item, error)
	RecordHistory(ctx context.Context, topic string) error
	RecentHistory(ctx context.Context, limit int) ([]news.HistoryEntry, error)
}

type toast struct {
	id   int
	kind StatusKind
	text string
}

type App struct {
	config            *config.Config
	backend           Backend
	registry          *assistant.Registry
	dash              *dashboard.Dashboard
	keyHandler        *KeyHandler
	searchInput       textinput.Model
	spinner           spinner.Model
	detail            viewport.Model
	assistantView     viewport.Model
	historyList       list.Model
	help              help.Model
	view              View
	focus             focusArea
	cursor            int
	rowOffset         int
	width             int
	height            int
	toasts            []toast
	nextToastID       int
	pending           []dashboard.Notification
	factUpdates       <-chan assistant.Fact
	loadingDetail     bool
	loadingHistory    bool
	glamourRenderer   *glamour.TermRenderer
	rendererWidth     int
	assistantRenderer *glamour.TermRenderer
	assistantWidth    int
	detailCache       *lru.Cache[string, string]
}

func NewApp(cfg *config.Config, backend Backend, registry *assistant.Registry) *App {
	if registry == nil {
		registry = assistant.NewRegistry()
	}
	ApplyTheme(cfg.UI.Colors)

	si := textinput.New()
	si.Placeholder = SearchPlaceholder
	si.Prompt = "› "
	si.CharLimit = validation.MaxTopicLength
	si.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	historyList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	historyList.Title = "› history"
	historyList.SetShowStatusBar(false)
	historyList.SetFilteringEnabled(true)
	historyList.SetShowHelp(false)
	historyList.Styles.Title = TitleStyle

	// Only fails for a non-positive size.
	detailCache, _ := lru.New[string, string](detailCacheSize)

	app := &App{
		config:        cfg,
		backend:       backend,
		registry:      registry,
		searchInput:   si,
		spinner:       sp,
		detail:        viewport.New(0, 0),
		assistantView: viewport.New(0, 0),
		historyList:   historyList,
		help:          help.New(),
		view:          ViewDashboard,
		focus:         focusInput,
		factUpdates:   registry.Subscribe(),
		detailCache:   detailCache,
	}

	app.dash = dashboard.New(backend, backend, dashboard.NotifierFunc(app.enqueue), registry)
	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

// Dashboard exposes the dashboard state driven by this app.
func (a *App) Dashboard() *dashboard.Dashboard { return a.dash }

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.waitForFact(),
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		return a.handleMouse(msg)

	case searchDoneMsg:
		if a.dash.Apply(msg.outcome) {
			a.cursor = 0
			a.rowOffset = 0
			if len(a.dash.News()) == 0 && a.focus == focusGrid {
				return a, tea.Batch(a.focusInput(), a.flushNotifications())
			}
		}
		return a, a.flushNotifications()

	case detailRenderedMsg:
		if item, ok := a.dash.Overlay().Selected(); ok && item.ID == msg.id {
			a.detail.SetContent(msg.content)
			a.detail.GotoTop()
			a.loadingDetail = false
		}
		return a, nil

	case historyLoadedMsg:
		a.loadingHistory = false
		if msg.err != nil {
			debuglog.Errorf("%v", msg.err)
			a.enqueue(dashboard.Notification{Kind: dashboard.KindError, Text: MsgHistoryUnavailable})
			return a, a.flushNotifications()
		}
		a.historyList.Title = "› history · " + MsgHistoryCount(len(msg.entries))
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = historyItem{entry: e}
		}
		return a, a.historyList.SetItems(items)

	case toastExpiredMsg:
		a.dropToast(msg.id)
		return a, nil

	case factPublishedMsg:
		if a.view == ViewAssistant {
			a.refreshAssistant()
		}
		return a, a.waitForFact()

	case spinner.TickMsg:
		if !a.dash.Loading() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	switch a.view {
	case ViewHistory:
		a.historyList, cmd = a.historyList.Update(msg)
	default:
		a.searchInput, cmd = a.searchInput.Update(msg)
	}
	return a, cmd
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	a.searchInput.Width = max(width-searchButtonWidth-1-4-lipgloss.Width(a.searchInput.Prompt)-1, 1)
	a.historyList.SetSize(width, height-footerHeight)
	a.help.Width = width - 2

	m := modalRect(width, height)
	a.detail.Width = m.modalInnerWidth()
	a.detail.Height = m.modalBodyHeight()

	a.assistantView.Width = width
	a.assistantView.Height = height - footerHeight
	if a.view == ViewAssistant {
		a.refreshAssistant()
	}

	a.clampScroll()
}

// enqueue collects notifications raised by the dashboard during an update.
func (a *App) enqueue(n dashboard.Notification) {
	a.pending = append(a.pending, n)
}

// flushNotifications turns queued notifications into toasts with expiry timers.
func (a *App) flushNotifications() tea.Cmd {
	if len(a.pending) == 0 {
		return nil
	}
	duration := a.config.UI.ToastDuration
	if duration <= 0 {
		duration = defaultToastDuration
	}

	var cmds []tea.Cmd
	for _, n := range a.pending {
		a.nextToastID++
		a.toasts = append(a.toasts, toast{id: a.nextToastID, kind: kindFromNotification(n.Kind), text: n.Text})
		cmds = append(cmds, expireToast(a.nextToastID, duration))
	}
	a.pending = nil

	if len(a.toasts) > maxToasts {
		a.toasts = append([]toast(nil), a.toasts[len(a.toasts)-maxToasts:]...)
	}
	return tea.Batch(cmds...)
}

func (a *App) dropToast(id int) {
	for i, t := range a.toasts {
		if t.id == id {
			a.toasts = append(a.toasts[:i], a.toasts[i+1:]...)
			return
		}
	}
}

// submitSearch starts a search for the current input text.
func (a *App) submitSearch() tea.Cmd {
	req, ok := a.dash.Submit(a.searchInput.Value())
	if !ok {
		return a.flushNotifications()
	}
	a.closeDetail()
	return tea.Batch(a.spinner.Tick, a.runSearch(req), a.flushNotifications())
}

// searchTopic fills the search input with topic and submits it.
func (a *App) searchTopic(topic string) tea.Cmd {
	a.view = ViewDashboard
	a.searchInput.SetValue(topic)
	a.dash.SetTopic(topic)
	return tea.Batch(a.focusInput(), a.submitSearch())
}

func (a *App) focusInput() tea.Cmd {
	a.focus = focusInput
	return a.searchInput.Focus()
}

func (a *App) focusGrid() {
	a.focus = focusGrid
	a.searchInput.Blur()
	a.clampScroll()
}

func (a *App) openDetail(index int) tea.Cmd {
	items := a.dash.News()
	if a.dash.Loading() || index < 0 || index >= len(items) {
		return nil
	}
	item := items[index]
	a.cursor = index
	a.dash.Overlay().Open(item)
	if cached, ok := a.detailCache.Get(a.detailKey(item)); ok {
		a.loadingDetail = false
		a.detail.SetContent(cached)
		a.detail.GotoTop()
		return nil
	}
	a.loadingDetail = true
	a.detail.SetContent("")
	return a.renderDetail(item)
}

func (a *App) closeDetail() {
	a.dash.Overlay().Close()
	a.loadingDetail = false
}

func (a *App) moveCursor(delta int) {
	n := len(a.dash.News())
	if n == 0 {
		return
	}
	next := a.cursor + delta
	if next < 0 || next >= n {
		return
	}
	a.cursor = next
	a.clampScroll()
}

// clampScroll keeps the cursor's row inside the visible window.
func (a *App) clampScroll() {
	g := a.grid()
	row := a.cursor / g.columns
	if row < a.rowOffset {
		a.rowOffset = row
	}
	if row >= a.rowOffset+g.visibleRows {
		a.rowOffset = row - g.visibleRows + 1
	}
	maxOffset := g.rows(len(a.dash.News())) - g.visibleRows
	if maxOffset < 0 {
		maxOffset = 0
	}
	if a.rowOffset > maxOffset {
		a.rowOffset = maxOffset
	}
	if a.rowOffset < 0 {
		a.rowOffset = 0
	}
}

func (a *App) grid() gridLayout {
	return newGridLayout(a.width, a.height, a.config.UI.Card)
}

func (a *App) refreshAssistant() {
	md := assistantMarkdown(a.registry.Facts())
	content := md
	if r, err := a.getAssistantRenderer(); err == nil {
		if rendered, rerr := r.Render(md); rerr == nil {
			content = rendered
		}
	}
	a.assistantView.SetContent(content)
}

func (a *App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch a.view {
	case ViewAssistant:
		var cmd tea.Cmd
		a.assistantView, cmd = a.assistantView.Update(msg)
		return a, cmd
	case ViewHistory:
		return a, nil
	}

	if overlay := a.dash.Overlay(); overlay.Visible() {
		if isWheel(msg) {
			var cmd tea.Cmd
			a.detail, cmd = a.detail.Update(msg)
			return a, cmd
		}
		if isLeftClick(msg) && overlay.Click(a.overlayRegion(msg.X, msg.Y)) {
			a.loadingDetail = false
		}
		return a, nil
	}

	if isWheel(msg) {
		g := a.grid()
		if msg.Button == tea.MouseButtonWheelUp {
			a.moveCursor(-g.columns)
		} else {
			a.moveCursor(g.columns)
		}
		return a, nil
	}
	if !isLeftClick(msg) {
		return a, nil
	}

	switch {
	case searchButtonRect(a.width).contains(msg.X, msg.Y):
		return a, a.submitSearch()
	case searchInputRect(a.width).contains(msg.X, msg.Y):
		return a, a.focusInput()
	}

	if a.dash.Loading() {
		return a, nil
	}
	if idx, ok := a.grid().cellAt(msg.X, msg.Y, a.rowOffset); ok && idx < len(a.dash.News()) {
		a.focusGrid()
		return a, a.openDetail(idx)
	}
	return a, nil
}

// overlayRegion classifies a click against the centered detail modal.
func (a *App) overlayRegion(x, y int) dashboard.Region {
	m := modalRect(a.width, a.height)
	switch {
	case closeControlRect(m).contains(x, y):
		return dashboard.RegionClose
	case m.contains(x, y):
		return dashboard.RegionBody
	default:
		return dashboard.RegionBackdrop
	}
}

func isLeftClick(msg tea.MouseMsg) bool {
	return msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft
}

func isWheel(msg tea.MouseMsg) bool {
	return msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return ""
	}

	var content string
	switch a.view {
	case ViewHistory:
		content = a.historyView()
	case ViewAssistant:
		content = lipgloss.NewStyle().
			Width(a.width).
			Height(a.height - footerHeight).
			MaxHeight(a.height - footerHeight).
			Render(a.assistantView.View())
	default:
		if a.dash.Overlay().Visible() {
			return a.overlayView()
		}
		content = lipgloss.JoinVertical(lipgloss.Left, a.headerView(), a.bodyView())
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, a.footerView())
}

func (a *App) headerView() string {
	subtitle := ""
	switch {
	case a.dash.Loading():
		subtitle = truncateMiddle(a.dash.Topic(), a.width/2)
	case len(a.dash.News()) > 0:
		subtitle = MsgResultsCount(len(a.dash.News()))
	}
	title := lipgloss.NewStyle().Width(a.width).MaxHeight(1).
		Render(renderHeader(DisplayName, subtitle, a.width))

	inputWidth := searchInputRect(a.width).w - 4
	input := renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), max(inputWidth, 1))
	button := ButtonStyle.Render(SearchButtonLabel)
	row := lipgloss.JoinHorizontal(lipgloss.Top, input, " ", button)

	return lipgloss.JoinVertical(lipgloss.Left, title, row)
}

func (a *App) bodyView() string {
	height := contentHeight(a.height)

	switch {
	case a.dash.Loading():
		return renderCentered(a.width, height, a.spinner.View()+" "+renderMuted(MsgSearching))
	case len(a.dash.News()) == 0:
		return renderCentered(a.width, height, GetWelcomeMessage())
	}

	g := a.grid()
	items := a.dash.News()
	var rows []string
	for r := a.rowOffset; r < a.rowOffset+g.visibleRows && r < g.rows(len(items)); r++ {
		var cards []string
		for c := 0; c < g.columns; c++ {
			idx := r*g.columns + c
			if idx >= len(items) {
				break
			}
			selected := a.focus == focusGrid && idx == a.cursor
			cards = append(cards, renderCard(items[idx], g, a.config.UI.Card, selected))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		MaxHeight(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderCard(item news.Item, g gridLayout, card config.CardConfig, selected bool) string {
	inner := g.innerWidth()
	title := item.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}

	var lines []string
	for _, l := range clampLines(title, inner, cardTitleLines(card)) {
		lines = append(lines, CardTitleStyle.Render(l))
	}
	lines = append(lines, "")
	for _, l := range clampLines(item.Content, inner, cardContentLines(card)) {
		lines = append(lines, CardContentStyle.Render(l))
	}

	style := CardStyle
	if selected {
		style = style.BorderForeground(AccentColor)
	}
	return style.Width(g.cardWidth - 2).Render(strings.Join(lines, "\n"))
}

func (a *App) historyView() string {
	height := a.height - footerHeight
	if a.loadingHistory {
		return renderCentered(a.width, height, renderMuted(MsgLoadingHistory))
	}
	if len(a.historyList.Items()) == 0 {
		return renderCentered(a.width, height, renderMuted(MsgNoHistory))
	}
	return a.historyList.View()
}

// overlayView draws the detail modal centered over a patterned backdrop.
func (a *App) overlayView() string {
	m := modalRect(a.width, a.height)
	item, _ := a.dash.Overlay().Selected()

	inner := m.modalInnerWidth()
	titleWidth := inner - len(closeLabel) - 1
	heading := ModalTitleStyle.Render(truncateEnd(item.Title, titleWidth))
	gap := inner - lipgloss.Width(heading) - len(closeLabel)
	if gap < 0 {
		gap = 0
	}
	titleRow := heading + strings.Repeat(" ", gap) + CloseControlStyle.Render(closeLabel)
	rule := SeparatorStyle.Render(strings.Repeat("─", inner))

	body := a.detail.View()
	if a.loadingDetail {
		body = renderCentered(inner, m.modalBodyHeight(), renderMuted(MsgLoadingDetail))
	}

	modal := ModalStyle.
		Width(m.w - 2).
		Height(m.h - 2).
		MaxHeight(m.h).
		Render(lipgloss.JoinVertical(lipgloss.Left, titleRow, rule, body))
	modalLines := strings.Split(modal, "\n")

	fill := func(n int) string {
		if n <= 0 {
			return ""
		}
		return BackdropStyle.Render(strings.Repeat("╱", n))
	}

	lines := make([]string, a.height)
	for y := range lines {
		row := y - m.y
		if row < 0 || row >= len(modalLines) {
			lines[y] = fill(a.width)
			continue
		}
		line := modalLines[row]
		lines[y] = fill(m.x) + line + fill(a.width-m.x-lipgloss.Width(line))
	}
	return strings.Join(lines, "\n")
}

func (a *App) footerView() string {
	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 1)))

	var status string
	if n := len(a.toasts); n > 0 {
		t := a.toasts[n-1]
		status = t.kind.style().Render(t.kind.icon() + " " + t.text)
		if n > 1 {
			status += renderMuted(fmt.Sprintf(" (+%d)", n-1))
		}
	} else {
		status = a.help.ShortHelpView(a.keyHandler.GetHelpForCurrentView())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		separator,
		StatusBarStyle.Width(a.width).MaxHeight(1).Render(status),
	)
}

type historyItem struct {
	entry news.HistoryEntry
}

func (i historyItem) Title() string { return i.entry.Topic }

func (i historyItem) Description() string {
	if i.entry.SearchedAt.IsZero() {
		return ""
	}
	return TimeStyle.Render(i.entry.SearchedAt.Local().Format("Jan 2, 15:04"))
}

func (i historyItem) FilterValue() string { return i.entry.Topic }
