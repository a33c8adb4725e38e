package tui

import (
	"strings"
)

// applyFilter filters items by group and search query
func (m *MainModel) applyFilter() {
	filter := m.header.GetFilter()

	var filtered []Item
	if filter == AllGroups {
		filtered = m.items
	} else {
		for _, item := range m.items {
			if item.Group() == filter {
				filtered = append(filtered, item)
			}
		}
	}

	if m.searchQuery != "" {
		var searchFiltered []Item
		query := strings.ToLower(m.searchQuery)
		for _, item := range filtered {
			// Search in name, build type, build number and status
			if strings.Contains(strings.ToLower(item.Row.Definition.DisplayName), query) ||
				strings.Contains(strings.ToLower(item.BuildType()), query) ||
				strings.Contains(strings.ToLower(item.Row.BuildNumber), query) ||
				strings.Contains(strings.ToLower(item.Status().Label()), query) {
				searchFiltered = append(searchFiltered, item)
			}
		}
		filtered = searchFiltered
	}

	m.listView.SetItems(filtered)
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	} else {
		m.detailViewport.SetContent("")
	}
}

// groupNames lists group names in panel order.
func groupNames(items []Item) []string {
	var names []string
	seen := make(map[string]bool)
	for _, item := range items {
		if g := item.Group(); g != "" && !seen[g] {
			seen[g] = true
			names = append(names, g)
		}
	}
	return names
}
