package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"prbuild-agent/src/pipeline"
	"prbuild-agent/src/ranking"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	availableHeight int
	leftPanelWidth  int
	rightPanelWidth int
}

// calculateDimensions computes panel sizes based on terminal dimensions.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// Account for: header + status line (1) + help line (1) + column header row (1) + panel borders (2)
	availableHeight := m.height - headerHeight - 1 - 1 - 1 - 2
	if availableHeight < 3 {
		availableHeight = 3
	}

	// Two-panel layout: Builds (60%) | Detail (40%)
	leftPanelWidth := int(float64(m.width) * 0.6)
	rightPanelWidth := m.width - leftPanelWidth

	return panelDimensions{
		availableHeight: availableHeight,
		leftPanelWidth:  leftPanelWidth,
		rightPanelWidth: rightPanelWidth,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)

	if m.state == nil || m.state.Kind != pipeline.PanelReady {
		body := m.progress.View()
		if m.state != nil {
			body = m.styles.MessageStyle().Width(m.width - 4).Render(StateMessage(m.state))
		}
		return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(), m.renderHelpText())
	}

	dims := m.calculateDimensions()

	leftPanel := m.renderListPanel(dims.leftPanelWidth, dims.availableHeight)
	rightPanel := m.renderDetailPanel(dims.rightPanelWidth, dims.availableHeight)
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, m.renderStatusLine(), m.renderHelpText())
}

// renderListPanel renders the left panel with the build rows
func (m MainModel) renderListPanel(width, height int) string {
	listPanel := m.styles.ListStyle().
		Width(width - 2).
		Height(height).
		Render(m.listView.Render())

	delegate := m.listView.GetDelegate()
	nameWidth := max(width-2-delegate.fixedWidth()-listRenderingOverhead, 4)
	headerText := columnHeader(delegate, nameWidth)

	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Width(width-2).
		Padding(0, 1).
		Render(Truncate(headerText, width-4, true))

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, listPanel)
}

func columnHeader(d *Delegate, nameWidth int) string {
	line := fmt.Sprintf("  %s │ %s │ %s │ %s │ %s",
		TruncateAndPad("Status", statusWidth, false),
		TruncateAndPad("Build", nameWidth, false),
		TruncateAndPad("#", d.NumberWidth, false),
		TruncateAndPad("Finished", finishedWidth, false),
		TruncateAndPad("", len(staleMarker), false))
	if d.GroupWidth > 0 {
		line = "  " + TruncateAndPad("Group", d.GroupWidth, false) + " │ " + line[2:]
	}
	return line
}

// renderStatusLine shows the spinner or the last action's outcome.
func (m MainModel) renderStatusLine() string {
	if m.progress.Active() {
		return m.progress.View()
	}
	if m.flash == "" {
		return ""
	}
	color := m.styles.StatusColor(ranking.StatusSuccess)
	if m.flashErr {
		color = m.styles.StatusColor(ranking.StatusFailure)
	}
	return lipgloss.NewStyle().Foreground(color).Padding(0, 1).Render(m.flash)
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sepStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)

	var helpText string
	switch {
	case m.searchMode:
		helpText = fmt.Sprintf("%s: Apply %s %s: Cancel",
			keyStyle.Render("Enter"), sepStyle.Render("•"),
			keyStyle.Render("Esc"))
	case m.detailFocused:
		helpText = fmt.Sprintf("%s: Scroll %s %s: Back %s %s: Quit",
			keyStyle.Render("j/k"), sepStyle.Render("•"),
			keyStyle.Render("Esc"), sepStyle.Render("•"),
			keyStyle.Render("q"))
	default:
		helpText = fmt.Sprintf("%s: Nav %s %s: Run %s %s: Refresh %s %s: Detail %s %s: Group %s %s %s",
			keyStyle.Render("j/k"), sepStyle.Render("•"),
			keyStyle.Render("r"), sepStyle.Render("•"),
			keyStyle.Render("R"), sepStyle.Render("•"),
			keyStyle.Render("Enter"), sepStyle.Render("•"),
			keyStyle.Render("Tab"), sepStyle.Render("•"),
			keyStyle.Render("/"), keyStyle.Render("q"))
	}

	return m.styles.HelpStyle().Render(helpText)
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	m.listView.SetSize(dims.leftPanelWidth-2, dims.availableHeight)

	m.detailViewport.Width = dims.rightPanelWidth - 2
	m.detailViewport.Height = dims.availableHeight

	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	}
}
