package tui

import (
	"github.com/charmbracelet/lipgloss"

	"prbuild-agent/src/ranking"
)

// StyleConfig holds all customizable style colors for the panel UI.
type StyleConfig struct {
	// Primary colors
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	CardBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color

	// Badge colors per build status
	StatusColors map[ranking.Status]lipgloss.Color
	StaleColor   lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		CardBackground: lipgloss.Color("#2D2D2D"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		StatusColors: map[ranking.Status]lipgloss.Color{
			ranking.StatusSuccess: lipgloss.Color("#34A853"), // Green
			ranking.StatusRunning: lipgloss.Color("#FBBC04"), // Yellow
			ranking.StatusFailure: lipgloss.Color("#EA4335"), // Red
			ranking.StatusUnknown: lipgloss.Color("#A142F4"), // Purple
			ranking.StatusQueued:  lipgloss.Color("#24C1E0"), // Cyan
		},
		StaleColor: lipgloss.Color("#FF8C00"),
	}
}

// StatusColor returns the badge color for a status. Statuses without a
// dedicated color (NO_BUILD) use the secondary text color.
func (s *StyleConfig) StatusColor(status ranking.Status) lipgloss.Color {
	if c, ok := s.StatusColors[status]; ok {
		return c
	}
	return s.TextSecondary
}

// BadgeStyle returns the style of the status column.
func (s *StyleConfig) BadgeStyle(status ranking.Status) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.StatusColor(status)).
		Bold(true)
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// ListStyle returns a list container lipgloss style using this config
func (s *StyleConfig) ListStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}

// MessageStyle renders whole-panel states such as "not authorized".
func (s *StyleConfig) MessageStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextPrimary).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}
