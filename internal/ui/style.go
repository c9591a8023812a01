// =============================
// File: internal/ui/style.go
// =============================
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Primary colors
	Cyan    = lipgloss.Color("#00E5FF") // Primary highlight
	Magenta = lipgloss.Color("#FF1B6B") // Accent
	Yellow  = lipgloss.Color("#FFB500") // Warnings
	Green   = lipgloss.Color("#2AFFAA") // Success / positive impact
	Red     = lipgloss.Color("#FF5555") // Errors / negative impact
	Blue    = lipgloss.Color("#3B82F6") // Info

	// Base colors
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
)

type styles struct {
	title     lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	muted     lipgloss.Style
	warning   lipgloss.Style
	errorLine lipgloss.Style
	container lipgloss.Style
	phase     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true).
			Margin(1, 0),
		label: lipgloss.NewStyle().
			Foreground(Base01).
			Width(18),
		value: lipgloss.NewStyle().
			Foreground(Base2),
		muted: lipgloss.NewStyle().
			Foreground(Base01),
		warning: lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true),
		errorLine: lipgloss.NewStyle().
			Foreground(Red).
			Bold(true).
			Padding(0, 1),
		container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Cyan).
			Padding(1, 3),
		phase: lipgloss.NewStyle().
			Foreground(Magenta).
			Bold(true),
	}
}

func impactStyle(bps int64) lipgloss.Style {
	switch {
	case bps > 500:
		return lipgloss.NewStyle().Foreground(Red).Bold(true)
	case bps > 100:
		return lipgloss.NewStyle().Foreground(Yellow)
	default:
		return lipgloss.NewStyle().Foreground(Green)
	}
}
