// Package phases runs a fixed sequence of TUI models, one at a time.
package phases

import (
	tea "github.com/charmbracelet/bubbletea"
)

// NextPhaseMsg signals the phases container to advance to the next phase.
type NextPhaseMsg struct{}

// NextPhaseCmd advances the enclosing container.
func NextPhaseCmd() tea.Msg {
	return NextPhaseMsg{}
}

type Phase struct {
	Name string
	mdl  tea.Model
}

func (p Phase) Init() tea.Cmd {
	return p.mdl.Init()
}

func (p Phase) Update(msg tea.Msg) (Phase, tea.Cmd) {
	updatedMdl, cmd := p.mdl.Update(msg)
	p.mdl = updatedMdl
	return p, cmd
}

func (p Phase) View() string {
	return p.mdl.View()
}

func NewPhase(name string, mdl tea.Model) Phase {
	return Phase{
		Name: name,
		mdl:  mdl,
	}
}

// Model shows the current phase. The last window size is replayed to each
// phase as it starts.
type Model struct {
	phases []Phase
	curr   int
	size   *tea.WindowSizeMsg
}

func New(phases []Phase) Model {
	return Model{
		phases: phases,
		curr:   0,
	}
}

func (m Model) currentPhase() Phase {
	return m.phases[m.curr]
}

func (m Model) Init() tea.Cmd {
	return m.currentPhase().Init()
}

func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch teaMsg := teaMsg.(type) {
	case NextPhaseMsg:
		if m.curr >= len(m.phases)-1 {
			return m, tea.Quit
		}
		m.curr++

		initCmd := m.currentPhase().Init()
		if m.size != nil {
			size := *m.size
			initCmd = tea.Batch(initCmd, func() tea.Msg { return size })
		}
		return m, initCmd

	case tea.WindowSizeMsg:
		m.size = &teaMsg
	}

	ph, cmd := m.currentPhase().Update(teaMsg)
	m.phases[m.curr] = ph

	return m, cmd
}

func (m Model) View() string {
	return m.currentPhase().View()
}

// CurrentPhaseName returns the name of the current phase.
func (m Model) CurrentPhaseName() string {
	return m.currentPhase().Name
}

// Current returns the current phase's model.
func (m Model) Current() tea.Model {
	return m.currentPhase().mdl
}
