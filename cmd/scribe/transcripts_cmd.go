package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/provider"
	"github.com/alkime/scribe/internal/tui/phases"
	"github.com/alkime/scribe/internal/tui/style"
	"github.com/alkime/scribe/internal/tui/submit"
	"github.com/alkime/scribe/internal/tui/watch"
	"github.com/alkime/scribe/internal/upload"
	"github.com/alkime/scribe/pkg/collections"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// ListCmd prints the provider's recent transcripts.
type ListCmd struct{}

// Run executes the list command.
func (c *ListCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Transcripts.RefreshList(context.Background()); err != nil {
		return err
	}

	now := time.Now()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STATUS", "FILE", "CREATED")

	jobs := a.Transcripts.State().Jobs
	for _, j := range jobs {
		t.Row(j.ID, j.Status.Label(), j.FileName(), j.CreatedAgo(now))
	}

	fmt.Println(t.Render())
	pending := collections.Count(jobs, func(j provider.Job) bool { return !j.Status.IsTerminal() })
	fmt.Println(style.Muted.Render(fmt.Sprintf("%d transcripts, %d in progress", len(jobs), pending)))

	return nil
}

// SubmitCmd uploads one audio file.
type SubmitCmd struct {
	File     string `arg:"" type:"existingfile" help:"Audio file to transcribe"`
	Language string `flag:"" short:"l" help:"Language code (defaults to LANGUAGE_CODE)"`
	Wait     bool   `flag:"" short:"w" help:"Follow the transcript until it finishes"`
}

// Run executes the submit command.
func (c *SubmitCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.File, err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	name := filepath.Base(c.File)
	file := upload.File{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Language:    c.Language,
		Body:        f,
	}

	m := submit.New(name, a.Uploads.Dial(), func() (string, error) {
		return a.Uploads.Handle(ctx, file)
	})

	if c.Wait {
		// upload, then follow the new job in the same program
		flow := phases.New([]phases.Phase{
			phases.NewPhase("submit", m.AdvanceOnSuccess()),
			phases.NewPhase("watch", watch.New(a.Transcripts)),
		})

		final, err := tea.NewProgram(flow, tea.WithAltScreen()).Run()
		if err != nil {
			return fmt.Errorf("failed to run submit TUI: %w", err)
		}

		switch cur := final.(phases.Model).Current().(type) {
		case submit.Model:
			return submitResult(cur)
		case watch.Model:
			printCompleted(cur)
		}

		return nil
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return fmt.Errorf("failed to run submit TUI: %w", err)
	}

	result, ok := final.(submit.Model)
	if !ok {
		return errors.New("unexpected TUI model")
	}
	if err := submitResult(result); err != nil {
		return err
	}

	fmt.Printf("Submitted %s as %s\n", name, result.JobID())

	return nil
}

func submitResult(m submit.Model) error {
	if m.Cancelled() {
		return errors.New("upload cancelled")
	}
	return m.Err()
}

// WatchCmd follows one transcript.
type WatchCmd struct {
	ID string `arg:"" help:"Transcript ID"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Transcripts.Select(context.Background(), c.ID); err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return fmt.Errorf("transcript %s not found", c.ID)
		}
		return err
	}

	return runWatch(a.Transcripts)
}

func runWatch(source watch.Source) error {
	final, err := tea.NewProgram(watch.New(source), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("failed to run watch TUI: %w", err)
	}

	if m, ok := final.(watch.Model); ok {
		printCompleted(m)
	}

	return nil
}

// printCompleted leaves the transcript text on the terminal after the
// alt screen closes.
func printCompleted(m watch.Model) {
	if st := m.State(); st.SelectedStatus == provider.StatusCompleted {
		fmt.Println(st.SelectedText)
	}
}
