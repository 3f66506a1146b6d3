// Package style defines lipgloss styles for the TUI.
package style

import (
	"github.com/alkime/scribe/internal/provider"
	"github.com/charmbracelet/lipgloss"
)

// UI styles using lipgloss.
// These are package-level for convenience; lipgloss styles are value types
// and safe for concurrent use.
var (
	// Title is used for view titles and headers.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for secondary text.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// Success is used for success messages.
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	// Error is used for error messages.
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	// Warning is used for warning messages.
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	// Viewport is used for the transcript viewport border.
	Viewport = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// Help is used for keyboard shortcut hints.
	Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	// Key is used for highlighting keyboard keys.
	Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Muted is used for de-emphasized text (e.g., job IDs).
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	badge = lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true)
)

// Badge renders a status label coloured by status.
func Badge(s provider.Status) string {
	b := badge
	switch s {
	case provider.StatusCompleted:
		b = b.Foreground(lipgloss.Color("42"))
	case provider.StatusError:
		b = b.Foreground(lipgloss.Color("196"))
	case provider.StatusQueued, provider.StatusProcessing:
		b = b.Foreground(lipgloss.Color("214"))
	default:
		b = b.Foreground(lipgloss.Color("245"))
	}

	return b.Render(s.Label())
}
