package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/clive/sprint-carryover/internal/model"
)

// One Dark Pro color palette
var (
	// Background colors
	ColorBgPrimary   = lipgloss.Color("#282C34")
	ColorBgSecondary = lipgloss.Color("#21252B")
	ColorBgHighlight = lipgloss.Color("#2C313C")

	// Foreground colors
	ColorFgPrimary   = lipgloss.Color("#ABB2BF")
	ColorFgSecondary = lipgloss.Color("#828997")
	ColorFgMuted     = lipgloss.Color("#636B78")
	ColorFgComment   = lipgloss.Color("#5C6370")

	// Syntax colors
	ColorRed     = lipgloss.Color("#E06C75")
	ColorGreen   = lipgloss.Color("#98C379")
	ColorYellow  = lipgloss.Color("#E5C07B")
	ColorBlue    = lipgloss.Color("#61AFEF")
	ColorMagenta = lipgloss.Color("#C678DD")
	ColorCyan    = lipgloss.Color("#56B6C2")
	ColorOrange  = lipgloss.Color("#D19A66")

	// UI colors
	ColorBorder = lipgloss.Color("#3F4451")
)

// Component styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true).
			PaddingLeft(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	// Pane styles
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	PaneFocusedStyle = PaneStyle.
				BorderForeground(ColorBlue)

	PaneTitleStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	// Row styles
	RowStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	RowCursorStyle = lipgloss.NewStyle().
			Background(ColorBgHighlight).
			Foreground(ColorFgPrimary).
			Bold(true)

	RowChosenStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ItemStateStyle = lipgloss.NewStyle().
			Foreground(ColorFgSecondary)

	ItemExcludedStyle = lipgloss.NewStyle().
				Foreground(ColorFgComment).
				Strikethrough(true)

	// Carry-over action
	ActionEnabledStyle = lipgloss.NewStyle().
				Foreground(ColorBgPrimary).
				Background(ColorGreen).
				Bold(true).
				Padding(0, 2)

	ActionDisabledStyle = lipgloss.NewStyle().
				Foreground(ColorFgMuted).
				Background(ColorBgSecondary).
				Padding(0, 2)

	// Status bar styles
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			PaddingLeft(1).
			PaddingRight(1)

	StatusRunningStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	StatusLoadingStyle = lipgloss.NewStyle().
				Foreground(ColorYellow)

	StatusIdleStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	// Help overlay styles
	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	HelpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorFgComment)
)

// severityStyle picks the log line color
func severityStyle(sev model.Severity) lipgloss.Style {
	switch sev {
	case model.SeverityError:
		return ErrorStyle
	case model.SeveritySuccess:
		return SuccessStyle
	default:
		return RowStyle
	}
}
