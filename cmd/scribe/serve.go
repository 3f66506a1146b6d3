package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/logger"
	"github.com/alkime/scribe/internal/server"
)

// ServeCmd runs the HTTP server and web client.
type ServeCmd struct {
	Port string `flag:"" optional:"" help:"Listen port (overrides PORT)"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(cfg *config.Config, _ *slog.Logger) error {
	if c.Port != "" {
		cfg.Port = c.Port
	}

	// The server logs JSON like any other service.
	log := logger.SetupLogger(cfg)

	log.Info("Starting scribe server",
		"env", cfg.Env,
		"port", cfg.Port,
		"provider", cfg.ProviderBaseURL,
		"secret_backend", cfg.SecretBackend,
	)

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.Secrets.Has() {
		// a failure is already logged and notified
		_ = a.Transcripts.RefreshList(ctx)
	} else {
		log.Warn("No API key configured; set one in the web client or with 'scribe config set-key'")
	}

	return server.New(cfg, log, a).Run(ctx)
}
