package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// AllGroups is the filter value that shows every row.
const AllGroups = "ALL"

// Header represents the top status bar component.
type Header struct {
	repository     string
	changeRef      string
	summary        string
	selectedFilter string
	groups         []string
	searchQuery    string
	searchMode     bool
	styles         *StyleConfig
}

// NewHeader creates a new header with default styles
func NewHeader(pageURL string) Header {
	return NewHeaderWithStyles(pageURL, DefaultStyles())
}

// NewHeaderWithStyles creates a new header with custom styles
func NewHeaderWithStyles(pageURL string, styles *StyleConfig) Header {
	return Header{
		summary:        pageURL,
		selectedFilter: AllGroups,
		styles:         styles,
	}
}

// SetPage records which change request the panel shows.
func (h *Header) SetPage(repository, changeRef string) {
	h.repository = repository
	h.changeRef = changeRef
}

// SetSummary sets the right-hand status text.
func (h *Header) SetSummary(summary string) {
	h.summary = summary
}

// SetGroups sets the filter choices. A filter that no longer exists resets to ALL.
func (h *Header) SetGroups(groups []string) {
	h.groups = groups
	for _, g := range groups {
		if g == h.selectedFilter {
			return
		}
	}
	h.selectedFilter = AllGroups
}

// GetFilter returns the current filter
func (h Header) GetFilter() string {
	return h.selectedFilter
}

// CycleFilter cycles to the next filter
func (h *Header) CycleFilter() {
	filters := append([]string{AllGroups}, h.groups...)
	currentIndex := 0
	for i, f := range filters {
		if f == h.selectedFilter {
			currentIndex = i
			break
		}
	}
	nextIndex := (currentIndex + 1) % len(filters)
	h.selectedFilter = filters[nextIndex]
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

// Render renders the header
func (h Header) Render(width int) string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	title := "prbuild"
	if h.repository != "" {
		title = fmt.Sprintf("%s #%s", h.repository, h.changeRef)
	}
	page := sectionStyle.Render(title)
	filter := sectionStyle.Render(fmt.Sprintf("Group: %s", h.selectedFilter))

	var searchText string
	if h.searchMode {
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	} else if h.searchQuery != "" {
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	} else {
		searchText = "[/] to search"
	}

	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}
	search := searchStyle.Render(searchText)

	leftSection := lipgloss.JoinHorizontal(lipgloss.Left, page, filter, search)

	summaryWidth := width - lipgloss.Width(leftSection) - 2
	summary := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Width(max(summaryWidth, 0)).
		Align(lipgloss.Right).
		Render(Truncate(h.summary, max(summaryWidth, 0), true))

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width)

	return headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSection, summary))
}
