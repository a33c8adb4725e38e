package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	listRenderingOverhead = 6

	statusWidth   = 8
	finishedWidth = 15
	staleMarker   = "stale"
)

// Delegate renders panel items as table rows.
type Delegate struct {
	GroupWidth  int
	NumberWidth int
	styles      *StyleConfig
}

// NewDelegate creates a new panel table delegate with default styles
func NewDelegate() Delegate {
	return NewDelegateWithStyles(DefaultStyles())
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{
		GroupWidth:  0,
		NumberWidth: 1,
		styles:      styles,
	}
}

// SetColumnWidths sizes the group and build number columns to fit items.
// The group column disappears when no item is grouped.
func (d *Delegate) SetColumnWidths(items []Item) {
	d.GroupWidth = 0
	d.NumberWidth = 1
	for _, item := range items {
		d.GroupWidth = max(d.GroupWidth, VisualWidth(item.Group()))
		d.NumberWidth = max(d.NumberWidth, VisualWidth(item.Row.BuildNumber))
	}
	d.NumberWidth = min(d.NumberWidth, 20)
	d.GroupWidth = min(d.GroupWidth, 16)
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// fixedWidth is the width of every column except the name.
func (d Delegate) fixedWidth() int {
	// status + number + finished + stale + separators
	w := statusWidth + d.NumberWidth + finishedWidth + len(staleMarker) + 9
	if d.GroupWidth > 0 {
		w += d.GroupWidth + 3
	}
	return w
}

// Columns lays out one item without styling. nameWidth may be zero.
func (d Delegate) Columns(item Item, nameWidth int) string {
	stale := ""
	if item.Row.Stale {
		stale = staleMarker
	}

	line := fmt.Sprintf("%s │ %s │ %s │ %s │ %s",
		TruncateAndPad(item.Status().Label(), statusWidth, false),
		TruncateAndPad(item.Row.Definition.DisplayName, nameWidth, true),
		TruncateAndPad(item.Row.BuildNumber, d.NumberWidth, true),
		TruncateAndPad(item.Row.FinishedLabel(), finishedWidth, false),
		TruncateAndPad(stale, len(staleMarker), false))

	if d.GroupWidth > 0 {
		line = TruncateAndPad(item.Group(), d.GroupWidth, true) + " │ " + line
	}
	return line
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	nameWidth := m.Width() - d.fixedWidth() - listRenderingOverhead
	if nameWidth < 4 {
		nameWidth = 4
	}
	line := d.Columns(entry, nameWidth)

	style := lipgloss.NewStyle().Foreground(d.styles.StatusColor(entry.Status()))
	if entry.Row.Stale {
		style = style.Italic(true)
	}
	if isSelected {
		style = style.Bold(true).Background(d.styles.SelectedColor)
		line = "► " + line
	} else {
		line = "  " + line
	}

	fmt.Fprint(w, style.Render(line))
}
