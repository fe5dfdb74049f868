package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/newspulse/internal/config"
)

const (
	AppName     = "newspulse"
	DisplayName = "News Pulse"
)

// LogoLines is the block-letter wordmark shown on the empty dashboard.
var LogoLines = []string{
	"█▄ █ █▀▀ █   █ █▀▀   █▀█ █ █ █   █▀▀ █▀▀",
	"█ ▀█ █▀▀ █ █ █ ▀▀█   █▀▀ █ █ █   ▀▀█ █▀▀",
	"▀  ▀ ▀▀▀  ▀ ▀  ▀▀▀   ▀   ▀▀▀ ▀▀▀ ▀▀▀ ▀▀▀",
}

// Banner gradient colors
var BannerColors = []lipgloss.Color{
	lipgloss.Color("#1D4ED8"),
	lipgloss.Color("#2563EB"),
	lipgloss.Color("#3B82F6"),
	lipgloss.Color("#60A5FA"),
	lipgloss.Color("#93C5FD"),
}

var (
	PrimaryColor   = lipgloss.Color("#2563EB")
	SecondaryColor = lipgloss.Color("#3B82F6")
	AccentColor    = lipgloss.Color("#93C5FD")

	BackgroundColor = lipgloss.Color("#111827")
	SurfaceColor    = lipgloss.Color("#1F2937")
	TextColor       = lipgloss.Color("#EAEAEA")
	MutedColor      = lipgloss.Color("#94A3B8")

	WarnColor    = lipgloss.Color("#FBBF24")
	ErrorColor   = lipgloss.Color("#F87171")
	SuccessColor = lipgloss.Color("#4ADE80")
)

// Styled components. Rebuilt by ApplyTheme.
var (
	LogoStyle          lipgloss.Style
	TitleStyle         lipgloss.Style
	HeaderStyle        lipgloss.Style
	StatusBarStyle     lipgloss.Style
	HelpStyle          lipgloss.Style
	TimeStyle          lipgloss.Style
	CardStyle          lipgloss.Style
	CardTitleStyle     lipgloss.Style
	CardContentStyle   lipgloss.Style
	ModalStyle         lipgloss.Style
	ModalTitleStyle    lipgloss.Style
	CloseControlStyle  lipgloss.Style
	BackdropStyle      lipgloss.Style
	ButtonStyle        lipgloss.Style
	SeparatorStyle     lipgloss.Style
	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style
)

func init() {
	buildStyles()
}

// ApplyTheme replaces the palette with configured colors. Empty entries keep
// the built-in color.
func ApplyTheme(c config.UIColors) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&PrimaryColor, c.Primary)
	set(&SecondaryColor, c.Secondary)
	set(&AccentColor, c.Accent)
	set(&BackgroundColor, c.Background)
	set(&SurfaceColor, c.Surface)
	set(&TextColor, c.Text)
	set(&MutedColor, c.Muted)
	set(&ErrorColor, c.Error)
	set(&SuccessColor, c.Success)
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true)

	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(PrimaryColor).
		Bold(true).
		Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	TimeStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Faint(true)

	CardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Padding(0, 1)

	CardTitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true)

	CardContentStyle = lipgloss.NewStyle().
		Foreground(MutedColor)

	ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor).
		Padding(0, 1)

	ModalTitleStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Bold(true)

	CloseControlStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)

	BackdropStyle = lipgloss.NewStyle().
		Foreground(SurfaceColor)

	ButtonStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Foreground(TextColor).
		Bold(true).
		Padding(0, 1)

	SeparatorStyle = lipgloss.NewStyle().
		Foreground(MutedColor)

	StatusInfoStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor)

	StatusSuccessStyle = lipgloss.NewStyle().
		Foreground(SuccessColor)

	StatusWarnStyle = lipgloss.NewStyle().
		Foreground(WarnColor)

	StatusErrorStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)
}

// GetWelcomeMessage is the empty-state prompt of the dashboard.
func GetWelcomeMessage() string {
	return lipgloss.JoinVertical(
		lipgloss.Center,
		GetCompactBanner(MsgEmptyHeadline),
		renderHelp(MsgEmptyHint),
	)
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		HeaderStyle.Render(message),
	)
}

// ShowBanner prints the startup banner to stdout.
func ShowBanner(version string) {
	lines := make([]string, len(LogoLines)+1)
	copy(lines, LogoLines)

	versionTag := version
	if versionTag != "" && versionTag != "dev" {
		if versionTag[0] != 'v' && versionTag[0] != 'V' {
			versionTag = "v" + versionTag
		}
		lines = append(lines, fmt.Sprintf("Terminal News Dashboard %s", versionTag))
	} else {
		lines = append(lines, "Terminal News Dashboard")
	}

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(BannerColors[i%len(BannerColors)]).
			Bold(i < len(LogoLines))
		coloredLines = append(coloredLines, style.Render(line))
	}

	borderChars := lipgloss.Border{
		Top:         "═",
		Bottom:      "═",
		Left:        "║",
		Right:       "║",
		TopLeft:     "╔",
		TopRight:    "╗",
		BottomLeft:  "╚",
		BottomRight: "╝",
	}

	output := lipgloss.NewStyle().
		Border(borderChars).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		MarginTop(1).
		Render(lipgloss.JoinVertical(lipgloss.Center, coloredLines...))

	fmt.Println(lipgloss.NewStyle().
		Width(70).
		Align(lipgloss.Center).
		Render(output))

	separator := lipgloss.NewStyle().
		Foreground(AccentColor).
		Render("◆ ◇ ◆ ◇ ◆")

	fmt.Println(lipgloss.NewStyle().
		Width(70).
		Align(lipgloss.Center).
		MarginBottom(1).
		Render(separator))
}
