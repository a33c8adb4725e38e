// Package tui provides the terminal build panel: the rows of one change
// request with their status, and keys to run builds and refresh.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"prbuild-agent/src/pipeline"
	"prbuild-agent/src/provider"
)

// Backend renders panels and runs builds. *pipeline.Service satisfies it.
type Backend interface {
	Render(ctx context.Context, pageURL string) (*pipeline.PanelState, error)
	RunBuild(ctx context.Context, pageURL, buildTypeID string) (*pipeline.RunOutcome, error)
}

// PanelMsg carries a freshly rendered panel.
type PanelMsg struct {
	State *pipeline.PanelState
	Err   error
}

// RunMsg reports the outcome of a run request.
type RunMsg struct {
	BuildType string
	Outcome   *pipeline.RunOutcome
	Err       error
}

// MainModel is the Bubble Tea model of the build panel.
type MainModel struct {
	ctx     context.Context
	backend Backend
	pageURL string

	styles         *StyleConfig
	header         Header
	listView       View
	detailViewport viewport.Model
	progress       ProgressModel

	state *pipeline.PanelState
	items []Item

	width         int
	height        int
	ready         bool
	detailFocused bool
	searchMode    bool
	searchQuery   string
	flash         string
	flashErr      bool
}

// NewMainModel creates the panel for pageURL. Nothing is fetched until Init.
func NewMainModel(ctx context.Context, backend Backend, pageURL string) MainModel {
	styles := DefaultStyles()
	return MainModel{
		ctx:            ctx,
		backend:        backend,
		pageURL:        pageURL,
		styles:         styles,
		header:         NewHeaderWithStyles(pageURL, styles),
		listView:       NewView(styles),
		detailViewport: viewport.New(0, 0),
		progress:       ProgressModel{active: true, stage: "Loading builds"},
	}
}

// Run starts the panel on the terminal and blocks until the user quits.
func Run(ctx context.Context, backend Backend, pageURL string) error {
	p := tea.NewProgram(NewMainModel(ctx, backend, pageURL), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init fetches the panel.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(m.fetchPanel(), SpinnerTick())
}

func (m MainModel) fetchPanel() tea.Cmd {
	ctx, backend, url := m.ctx, m.backend, m.pageURL
	return func() tea.Msg {
		state, err := backend.Render(ctx, url)
		return PanelMsg{State: state, Err: err}
	}
}

func (m MainModel) runBuild(buildType string) tea.Cmd {
	ctx, backend, url := m.ctx, m.backend, m.pageURL
	return func() tea.Msg {
		outcome, err := backend.RunBuild(ctx, url, buildType)
		return RunMsg{BuildType: buildType, Outcome: outcome, Err: err}
	}
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case SpinnerTickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case PanelMsg:
		m.progress = m.progress.Stop()
		if msg.Err != nil {
			m.setFlash(fmt.Sprintf("Refresh failed: %v", msg.Err), true)
			return m, nil
		}
		m.setState(msg.State)
		return m, nil

	case RunMsg:
		if msg.Err != nil {
			m.progress = m.progress.Stop()
			m.setFlash(fmt.Sprintf("Could not run %s: %v", msg.BuildType, provider.WrapError(msg.Err)), true)
			return m, nil
		}
		m.setFlash(fmt.Sprintf("%s: %s", msg.Outcome.Message(), msg.BuildType), false)
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Start("Refreshing")
		return m, tea.Batch(m.fetchPanel(), cmd)

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m MainModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "R":
		if m.progress.Active() {
			return m, nil
		}
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Start("Refreshing")
		return m, tea.Batch(m.fetchPanel(), cmd)

	case "r":
		item, ok := m.listView.GetSelectedItem()
		if !ok || m.progress.Active() {
			return m, nil
		}
		if !item.Status().Runnable() {
			m.setFlash(fmt.Sprintf("%s is already queued", item.BuildType()), false)
			return m, nil
		}
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Start(fmt.Sprintf("Queueing %s", item.BuildType()))
		return m, tea.Batch(m.runBuild(item.BuildType()), cmd)

	case "tab":
		m.header.CycleFilter()
		m.applyFilter()
		return m, nil

	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil

	case "enter":
		if _, ok := m.listView.GetSelectedItem(); ok {
			m.detailFocused = true
		}
		return m, nil

	case "esc":
		if m.detailFocused {
			m.detailFocused = false
			return m, nil
		}
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.header.SetSearch("", false)
			m.applyFilter()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.detailFocused {
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}

	before, _ := m.listView.GetSelectedItem()
	m.listView, cmd = m.listView.Update(msg)
	if after, ok := m.listView.GetSelectedItem(); ok && after.BuildType() != before.BuildType() {
		m.updateDetailContent(after)
		m.detailViewport.GotoTop()
	}
	return m, cmd
}

func (m MainModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.searchQuery += string(msg.Runes)
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m, nil
}

func (m *MainModel) setState(state *pipeline.PanelState) {
	m.state = state
	if state == nil {
		return
	}
	m.header.SetPage(state.Repository, state.ChangeRef)
	m.header.SetSummary(string(state.Kind))

	m.items = nil
	if state.Kind == pipeline.PanelReady {
		m.items = ItemsFromPanel(state.Panel)
		if problems := state.Panel.Problems(); len(problems) > 0 {
			m.setFlash(fmt.Sprintf("%d build(s) in an unexpected state", len(problems)), true)
		}
	} else {
		m.detailFocused = false
	}
	m.header.SetGroups(groupNames(m.items))
	m.applyFilter()
}

func (m *MainModel) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

func (m MainModel) changeRef() string {
	if m.state == nil {
		return ""
	}
	return m.state.ChangeRef
}

// StateMessage explains a panel that has no rows to show.
func StateMessage(state *pipeline.PanelState) string {
	switch state.Kind {
	case pipeline.PanelReady:
		return fmt.Sprintf("%d builds", len(state.Panel.Rows))
	case pipeline.PanelNotApplicable:
		return "Not a pull or merge request page."
	case pipeline.PanelNoConfig:
		return fmt.Sprintf("No builds are configured for %s.", orUnknown(state.Repository))
	case pipeline.PanelInvalidConfig:
		return fmt.Sprintf("The configuration is invalid: %v", state.Err)
	case pipeline.PanelUnauthorized:
		if state.LoginURL != "" {
			return fmt.Sprintf("Not authorized on TeamCity. Log in at %s and press R.", state.LoginURL)
		}
		return "Not authorized on TeamCity. Check the configured credentials."
	case pipeline.PanelConnectionError:
		return fmt.Sprintf("Could not reach TeamCity: %v", state.Err)
	}
	return string(state.Kind)
}

func orUnknown(s string) string {
	if s == "" {
		return "this repository"
	}
	return s
}
