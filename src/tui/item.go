package tui

import (
	"prbuild-agent/src/pipeline"
	"prbuild-agent/src/ranking"
)

// Item represents one build definition row in the panel list.
// It wraps the domain RenderRow and implements bubbles/list.Item.
type Item struct {
	Row pipeline.RenderRow
}

// FilterValue is the value used for filtering.
func (i Item) FilterValue() string { return i.Row.Definition.DisplayName }

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return i.Row.Definition.DisplayName }

// Description returns the secondary text for the item (required by list.Item).
func (i Item) Description() string { return i.Row.Definition.BuildTypeID }

// BuildType returns the build configuration ID.
func (i Item) BuildType() string {
	return i.Row.Definition.BuildTypeID
}

// Group returns the display group, or "" for ungrouped rows.
func (i Item) Group() string {
	return i.Row.Definition.Group
}

// Status returns the classified status.
func (i Item) Status() ranking.Status {
	return i.Row.Status
}

// ItemsFromPanel converts panel rows to list items, keeping panel order.
func ItemsFromPanel(panel *pipeline.Panel) []Item {
	if panel == nil {
		return nil
	}
	items := make([]Item, len(panel.Rows))
	for i, row := range panel.Rows {
		items[i] = Item{Row: row}
	}
	return items
}
