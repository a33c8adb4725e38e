package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderDetail renders the detail content for a panel row
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	content := strings.Builder{}
	row := item.Row
	labelStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Bold(true)

	header := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Render(Truncate(fmt.Sprintf("%s (%s)", row.Definition.DisplayName, row.Definition.BuildTypeID), maxWidth, true))
	fmt.Fprintf(&content, "%s\n\n", header)

	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&content, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-9s", label+":")), value)
	}

	field("Status", m.styles.BadgeStyle(row.Status).Render(row.Status.Label()))
	field("Group", row.Definition.Group)
	field("Branch", row.Definition.Branch(m.changeRef()))
	field("Build", row.BuildNumber)
	field("Finished", row.FinishedLabel())
	field("Link", Truncate(row.WebURL, maxWidth-10, true))

	if row.Stale {
		fmt.Fprintln(&content)
		note := fmt.Sprintf("Stale: built against a different version than %s. Run it again to pick up the new build.", row.Definition.DependsOn)
		fmt.Fprintln(&content, lipgloss.NewStyle().Foreground(m.styles.StaleColor).Render(Wrap(note, maxWidth)))
	}

	if row.Problem != nil {
		fmt.Fprintln(&content)
		fmt.Fprintln(&content, lipgloss.NewStyle().Foreground(m.styles.StatusColor(row.Status)).Bold(true).Render("PROBLEM:"))
		fmt.Fprintln(&content, Wrap(row.Problem.Error(), maxWidth))
	}

	fmt.Fprintln(&content)
	if row.Status.Runnable() {
		fmt.Fprint(&content, lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true).Render("Press r to run this build"))
	} else {
		fmt.Fprint(&content, lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true).Render("Already queued"))
	}

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	maxWidth := m.detailViewport.Width - 2 // 1 char padding on each side
	content := m.renderDetail(item, maxWidth)
	m.detailViewport.SetContent(content)
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	borderStyle := m.styles.BorderColor
	if m.detailFocused {
		borderStyle = m.styles.AccentBlue
	}

	if _, ok := m.listView.GetSelectedItem(); ok {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderStyle).
			Width(width - 2).
			Height(height).
			Render(m.detailViewport.View())
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.BorderColor).
		Width(width-2).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(m.styles.TextSecondary).
		Faint(true).
		Render("No build selected")
}
