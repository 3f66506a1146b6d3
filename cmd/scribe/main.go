package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/alkime/scribe/internal/app"
	"github.com/alkime/scribe/internal/config"
)

// CLI defines the scribe command structure.
type CLI struct {
	Verbose bool `short:"v" help:"Log debug output to stderr"`

	// Default command (runs when no subcommand given)
	Serve ServeCmd `cmd:"" default:"withargs" help:"Run the web client"`

	Config ConfigCmd `cmd:"" help:"Manage the provider API key"`
	List   ListCmd   `cmd:"" help:"List recent transcripts"`
	Submit SubmitCmd `cmd:"" help:"Upload an audio file for transcription"`
	Watch  WatchCmd  `cmd:"" help:"Follow a transcript until it finishes"`
}

func main() {
	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	kctx := kong.Parse(cli,
		kong.Name("scribe"),
		kong.Description("Speech transcription client."),
		kong.UsageOnError(),
	)

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}

	// Set up text-based logger for CLI output
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	kctx.FatalIfErrorf(err)

	kctx.Bind(cfg, logger)
	kctx.FatalIfErrorf(kctx.Run())
	os.Exit(0)
}

// newApp wires the application for one command.
func newApp(cfg *config.Config, logger *slog.Logger) (*app.App, error) {
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return a, nil
}
