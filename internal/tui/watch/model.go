// Package watch provides the TUI model that follows one transcript until it
// finishes.
package watch

import (
	"context"
	"strings"
	"time"

	"github.com/alkime/scribe/internal/provider"
	"github.com/alkime/scribe/internal/transcripts"
	"github.com/alkime/scribe/internal/tui/component"
	"github.com/alkime/scribe/internal/tui/style"
	"github.com/alkime/scribe/pkg/collections"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	headerHeight = 3
	footerHeight = 3
	minHeight    = 5
)

// Source is what the view reads state from.
type Source interface {
	State() transcripts.State
	Retry(ctx context.Context) (provider.Status, error)
}

type refreshMsg struct{}

type retriedMsg struct {
	err error
}

// Model renders the selected transcript and follows its status.
type Model struct {
	source   Source
	keys     KeyMap
	spinner  component.LabeledSpinner
	viewport viewport.Model
	state    transcripts.State
	interval time.Duration
	copy     func(string)
	copied   bool
	ready    bool
}

// Option configures a Model.
type Option func(*Model)

// WithRefreshInterval sets how often the view re-reads state.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithClipboard replaces the OSC52 clipboard writer.
func WithClipboard(fn func(string)) Option {
	return func(m *Model) {
		if fn != nil {
			m.copy = fn
		}
	}
}

// New creates a watch model reading from source.
func New(source Source, opts ...Option) Model {
	m := Model{
		source: source,
		keys:   DefaultKeyMap(),
		spinner: component.NewLabeledSpinner(
			spinner.Dot,
			"Transcribing...",
			"Waiting for the provider",
			"",
		),
		viewport: viewport.New(76, minHeight),
		interval: 250 * time.Millisecond,
		copy:     termenv.Copy,
	}

	for _, opt := range opts {
		opt(&m)
	}

	m.state = source.State()
	m.viewport.SetContent(wrapText(m.state.SelectedText, m.viewport.Width))

	return m
}

// Init returns the initial commands for the watch view.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Init(), m.tick())
}

// Update handles messages for the watch view.
func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch teaMsg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = teaMsg.Width - 4 // -4 for border padding
		m.viewport.Height = max(teaMsg.Height-headerHeight-footerHeight, minHeight)
		m.viewport.SetContent(wrapText(m.state.SelectedText, m.viewport.Width))
		m.ready = true

	case refreshMsg:
		prev := m.state.SelectedText
		m.state = m.source.State()
		if m.state.SelectedText != prev {
			m.viewport.SetContent(wrapText(m.state.SelectedText, m.viewport.Width))
		}
		cmds = append(cmds, m.tick())

	case retriedMsg:
		m.state = m.source.State()

	case tea.KeyMsg:
		switch {
		case key.Matches(teaMsg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(teaMsg, m.keys.Copy) && m.state.SelectedText != "":
			m.copy(m.state.SelectedText)
			m.copied = true
			return m, nil
		case key.Matches(teaMsg, m.keys.Retry) && m.state.FetchError != "":
			return m, m.retry()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(teaMsg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(teaMsg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the watch view.
func (m Model) View() string {
	var sb strings.Builder

	st := m.state
	if !st.HasSelection() {
		sb.WriteString(style.Subtitle.Render("No transcript selected"))
		sb.WriteString("\n\n")
		sb.WriteString(component.KeyHelp(m.keys.Quit))
		return sb.String()
	}

	sb.WriteString(style.Title.Render(title(st)) + " " + style.Muted.Render(st.SelectedID) + " ")
	sb.WriteString(style.Badge(st.SelectedStatus))
	sb.WriteString("\n\n")

	switch {
	case st.FetchError != "":
		sb.WriteString(style.Error.Render("Could not load transcript: " + st.FetchError))
	case st.SelectedStatus == provider.StatusCompleted:
		sb.WriteString(style.Viewport.Render(m.viewport.View()))
	case st.SelectedStatus == provider.StatusError:
		sb.WriteString(style.Error.Render("Transcription failed"))
		if st.SelectedError != "" {
			sb.WriteString(style.Error.Render(": " + st.SelectedError))
		}
	default:
		s := m.spinner
		s.Subtitle = "Status: " + st.SelectedStatus.Label()
		help := ""
		if st.Polling {
			help = "Checking for updates"
		}
		sb.WriteString(s.ViewWithHelp(help))
	}
	sb.WriteString("\n\n")

	if m.copied {
		sb.WriteString(style.Success.Render("Copied to clipboard"))
		sb.WriteString("\n")
	}

	keys := m.keys
	keys.Copy.SetEnabled(st.SelectedText != "")
	keys.Retry.SetEnabled(st.FetchError != "")
	sb.WriteString(component.KeyHelp(keys.ShortHelp()...))

	return sb.String()
}

// State returns the last state the view rendered.
func (m Model) State() transcripts.State {
	return m.state
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m Model) retry() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		_, err := source.Retry(context.Background())
		return retriedMsg{err: err}
	}
}

// title is the selected job's file name when the list knows it.
func title(st transcripts.State) string {
	j, ok := collections.Find(st.Jobs, func(j provider.Job) bool {
		return j.ID == st.SelectedID
	})
	if !ok || j.FileName() == j.ID {
		return "Transcript"
	}
	return j.FileName()
}

// wrapText wraps the given text to fit within the specified width using lipgloss.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	return lipgloss.NewStyle().Width(width).Render(text)
}
