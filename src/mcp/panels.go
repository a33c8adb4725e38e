package mcp

import (
	"sync"

	"prbuild-agent/src/contracts"
)

// PanelStore keeps the last panel rendered for each page so individual rows
// can be fetched without querying the CI server again.
type PanelStore interface {
	// Put saves a rendered panel, replacing any earlier one for the same URL.
	Put(panel contracts.PanelRendered)
	// Row retrieves one build definition of a stored panel.
	Row(url, buildType string) (contracts.PanelRow, bool)
	// Get retrieves the full panel.
	Get(url string) (contracts.PanelRendered, bool)
}

// InMemoryPanelStore is a thread-safe in-memory implementation of PanelStore.
type InMemoryPanelStore struct {
	mu     sync.RWMutex
	panels map[string]contracts.PanelRendered
	rows   map[string]map[string]contracts.PanelRow // url -> buildType -> row
}

// NewInMemoryPanelStore creates a new in-memory panel store.
func NewInMemoryPanelStore() *InMemoryPanelStore {
	return &InMemoryPanelStore{
		panels: make(map[string]contracts.PanelRendered),
		rows:   make(map[string]map[string]contracts.PanelRow),
	}
}

// Put saves a panel, indexed by build type for drill-down.
func (s *InMemoryPanelStore) Put(panel contracts.PanelRendered) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.panels[panel.URL] = panel

	index := make(map[string]contracts.PanelRow, len(panel.Rows))
	for _, row := range panel.Rows {
		index[row.BuildType] = row
	}
	s.rows[panel.URL] = index
}

// Row retrieves a row by build type.
func (s *InMemoryPanelStore) Row(url, buildType string) (contracts.PanelRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index, ok := s.rows[url]; ok {
		row, found := index[buildType]
		return row, found
	}
	return contracts.PanelRow{}, false
}

// Get retrieves the full panel.
func (s *InMemoryPanelStore) Get(url string) (contracts.PanelRendered, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.panels[url]
	return p, ok
}
