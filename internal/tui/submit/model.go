// Package submit provides the TUI model shown while a file uploads.
package submit

import (
	"fmt"
	"strings"
	"time"

	"github.com/alkime/scribe/internal/tui/component"
	"github.com/alkime/scribe/internal/tui/phases"
	"github.com/alkime/scribe/internal/tui/style"
	"github.com/alkime/scribe/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// RunFunc performs the upload and returns the new job ID.
type RunFunc func() (string, error)

type tickMsg struct{}

type doneMsg struct {
	jobID string
	err   error
}

// Model shows upload progress and quits when the upload ends.
type Model struct {
	fileName string
	dial     uictl.CappedDial[int]
	run      RunFunc
	spinner  component.LabeledSpinner
	progress progress.Model
	quit     key.Binding
	interval time.Duration

	advance   bool
	jobID     string
	err       error
	done      bool
	cancelled bool
}

// New creates a submit model. dial reports progress out of its cap.
func New(fileName string, dial uictl.CappedDial[int], run RunFunc) Model {
	return Model{
		fileName: fileName,
		dial:     dial,
		run:      run,
		spinner: component.NewLabeledSpinner(
			spinner.Points,
			"Uploading "+fileName,
			"Sending audio to the provider",
			"",
		),
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "cancel"),
		),
		interval: 100 * time.Millisecond,
	}
}

// AdvanceOnSuccess makes a successful upload move to the next phase instead
// of quitting.
func (m Model) AdvanceOnSuccess() Model {
	m.advance = true
	return m
}

// Init starts the upload.
func (m Model) Init() tea.Cmd {
	run := m.run
	return tea.Batch(
		m.spinner.Init(),
		m.tick(),
		func() tea.Msg {
			jobID, err := run()
			return doneMsg{jobID: jobID, err: err}
		},
	)
}

// Update handles messages for the submit view.
func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch teaMsg := teaMsg.(type) {
	case doneMsg:
		m.done = true
		m.jobID = teaMsg.jobID
		m.err = teaMsg.err
		if m.err == nil && m.advance {
			return m, phases.NextPhaseCmd
		}
		return m, tea.Quit

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, m.tick()

	case tea.KeyMsg:
		if key.Matches(teaMsg, m.quit) {
			m.cancelled = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(teaMsg)
		return m, cmd
	}

	return m, nil
}

// View renders the submit view.
func (m Model) View() string {
	var sb strings.Builder

	switch {
	case m.done && m.err != nil:
		sb.WriteString(style.Error.Render("Upload failed: " + m.err.Error()))
		sb.WriteString("\n")
		return sb.String()
	case m.done:
		sb.WriteString(style.Success.Render("Submitted " + m.fileName))
		sb.WriteString(" " + style.Muted.Render(m.jobID))
		sb.WriteString("\n")
		return sb.String()
	}

	num, maxValue := m.dial.Cap()

	sb.WriteString(m.spinner.ViewWithHelp(component.KeyHelp(m.quit)))
	sb.WriteString("\n\n")
	sb.WriteString(m.progress.ViewAs(uictl.Fraction(m.dial)))
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render(fmt.Sprintf("%d/%d", num, maxValue)))
	sb.WriteString("\n")

	return sb.String()
}

// JobID returns the submitted job's ID once the upload succeeded.
func (m Model) JobID() string {
	return m.jobID
}

// Err returns the upload error, if any.
func (m Model) Err() error {
	return m.err
}

// Cancelled reports whether the user quit before the upload ended.
func (m Model) Cancelled() bool {
	return m.cancelled
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
