package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Spinner frames for the loading animation
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// SpinnerTickMsg triggers spinner animation frame advance
type SpinnerTickMsg time.Time

// ProgressModel shows what the panel is waiting for.
type ProgressModel struct {
	stage        string
	active       bool
	spinnerFrame int
}

func NewProgressModel() ProgressModel {
	return ProgressModel{}
}

// SpinnerTick returns a command that sends SpinnerTickMsg after a delay
func SpinnerTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return SpinnerTickMsg(t)
	})
}

// Start shows the spinner with a stage label. The returned command must be
// run to animate it.
func (m ProgressModel) Start(stage string) (ProgressModel, tea.Cmd) {
	wasActive := m.active
	m.stage = stage
	m.active = true
	if wasActive {
		return m, nil
	}
	return m, SpinnerTick()
}

// Stop hides the spinner.
func (m ProgressModel) Stop() ProgressModel {
	m.active = false
	m.stage = ""
	return m
}

// Active reports whether the spinner is shown.
func (m ProgressModel) Active() bool {
	return m.active
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	if _, ok := msg.(SpinnerTickMsg); ok {
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		if m.active {
			return m, SpinnerTick()
		}
	}
	return m, nil
}

func (m ProgressModel) View() string {
	if !m.active {
		return ""
	}
	spinner := spinnerFrames[m.spinnerFrame]
	spinnerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")) // Gold

	stage := m.stage
	if stage == "" {
		stage = "Loading"
	}
	return fmt.Sprintf("%s %s...", spinnerStyle.Render(spinner), stage)
}
