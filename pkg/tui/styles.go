package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext  lipgloss.Color = "#a6adc8"
	colorOverlay  lipgloss.Color = "#6c7086"
	colorSurface  lipgloss.Color = "#313244"
	colorAccent   lipgloss.Color = "#f5c2e7"
	colorFocus    lipgloss.Color = "#b4befe"
	colorSuccess  lipgloss.Color = "#a6e3a1"
	colorError    lipgloss.Color = "#f38ba8"
	colorWarning  lipgloss.Color = "#f9e2af"
	colorDisabled                = colorOverlay
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	subtleStyle   = lipgloss.NewStyle().Foreground(colorSubtext)
	cursorStyle   = lipgloss.NewStyle().Foreground(colorFocus).Bold(true)
	enabledStyle  = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface).Padding(0, 1)
	disabledStyle = lipgloss.NewStyle().Foreground(colorDisabled).Padding(0, 1)
	statusStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	helpStyle     = lipgloss.NewStyle().Foreground(colorOverlay).Faint(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFocus).
			Padding(1, 2)
	successTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	errorTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
)

func buttonStyle(enabled bool) lipgloss.Style {
	if enabled {
		return enabledStyle
	}
	return disabledStyle
}
