package debugger

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#34D399") // Emerald
	ColorSecondary = lipgloss.Color("#60A5FA") // Blue
	ColorAccent    = lipgloss.Color("#FBBF24") // Amber
	ColorError     = lipgloss.Color("#F87171") // Red
	ColorDimmed    = lipgloss.Color("#374151") // Dark gray

	ColorText      = lipgloss.Color("#E5E7EB") // Gray 200
	ColorTextMuted = lipgloss.Color("#9CA3AF") // Gray 400
	ColorTextDim   = lipgloss.Color("#6B7280") // Gray 500
)

// Header styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TitlePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 2)
)

// Tape styles
var (
	TapePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDimmed).
			Padding(0, 1)

	TapeLabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	CellStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	ActiveCellStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Reverse(true).
			Bold(true)
)

// Source styles
var (
	SourcePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorDimmed).
				Padding(0, 1)

	GutterStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	SourceStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	CurrentOpStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Reverse(true).
			Bold(true)
)

// Output styles
var (
	OutputPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorDimmed).
				Padding(0, 1)
)

// Status bar styles
var (
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 1)

	StatusRunningStyle = lipgloss.NewStyle().
				Foreground(ColorSecondary).
				Bold(true)

	StatusDoneStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)
)

// Help styles
var (
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			MarginTop(1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)
)

// RenderKeyHint renders a keyboard shortcut hint
func RenderKeyHint(key, description string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(description)
}
