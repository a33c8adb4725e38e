package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// View manages the list of panel rows.
type View struct {
	list     list.Model
	items    []Item
	delegate *Delegate
}

// NewView creates a new panel list view
func NewView(styles *StyleConfig) View {
	delegate := NewDelegateWithStyles(styles)
	l := list.New([]list.Item{}, &delegate, 0, 0)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)

	return View{
		list:     l,
		items:    []Item{},
		delegate: &delegate,
	}
}

// Update handles list navigation
func (v View) Update(msg tea.Msg) (View, tea.Cmd) {
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// SetSize sets the list dimensions
func (v *View) SetSize(width, height int) {
	v.list.SetSize(width, height)
}

// SetItems replaces the list items. The selection stays on the same build
// type when it is still present.
func (v *View) SetItems(items []Item) {
	selected, hadSelection := v.GetSelectedItem()

	v.items = items
	v.delegate.SetColumnWidths(items)

	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}
	v.list.SetItems(listItems)

	if hadSelection {
		for i, item := range items {
			if item.BuildType() == selected.BuildType() {
				v.list.Select(i)
				return
			}
		}
	}
	if len(items) > 0 && v.list.Index() >= len(items) {
		v.list.Select(0)
	}
}

// Items returns the items currently listed.
func (v View) Items() []Item {
	return v.items
}

// GetSelectedItem returns the currently selected row
func (v View) GetSelectedItem() (Item, bool) {
	if len(v.list.Items()) == 0 {
		return Item{}, false
	}
	item, ok := v.list.SelectedItem().(Item)
	return item, ok
}

// Render returns the string representation of the view
func (v View) Render() string {
	return v.list.View()
}

// GetDelegate returns the delegate for accessing column widths
func (v View) GetDelegate() *Delegate {
	return v.delegate
}
