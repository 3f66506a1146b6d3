// Package app wires the credential store, provider client, notification hub,
// transcript controller and upload orchestrator together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/notify"
	"github.com/alkime/scribe/internal/provider"
	"github.com/alkime/scribe/internal/secret"
	"github.com/alkime/scribe/internal/transcripts"
	"github.com/alkime/scribe/internal/upload"
)

// App holds the wired components. Close releases them.
type App struct {
	Secrets     *secret.Store
	Provider    *provider.Client
	Events      *notify.Hub
	Transcripts *transcripts.Controller
	Uploads     *upload.Orchestrator

	cancel context.CancelFunc
	logger *slog.Logger
}

// Option adjusts wiring, mostly for tests.
type Option func(*options)

type options struct {
	backend    secret.Backend
	httpClient *http.Client
	ticker     transcripts.TickerFunc
}

// WithSecretBackend overrides the backend chosen by config.
func WithSecretBackend(b secret.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithHTTPClient overrides the provider HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithTicker overrides the poll loop ticker.
func WithTicker(fn transcripts.TickerFunc) Option {
	return func(o *options) {
		o.ticker = fn
	}
}

// New builds an App from cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	backend := o.backend
	if backend == nil {
		var err error
		backend, err = NewSecretBackend(cfg)
		if err != nil {
			return nil, err
		}
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	ctx, cancel := context.WithCancel(context.Background())

	hub, err := notify.NewHub(ctx, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	secrets := secret.NewStore(backend, logger)

	client := provider.NewClient(secrets,
		provider.WithBaseURL(cfg.ProviderBaseURL),
		provider.WithHTTPClient(httpClient),
		provider.WithLogger(logger),
		provider.WithListLimit(cfg.ListLimit),
		provider.WithDefaultLanguage(cfg.LanguageCode),
	)

	ctrl := transcripts.NewController(client,
		transcripts.WithNotifier(hub),
		transcripts.WithLogger(logger),
		transcripts.WithPollInterval(cfg.PollInterval),
		transcripts.WithTicker(o.ticker),
	)

	uploads := upload.NewOrchestrator(client, func(ctx context.Context, jobID string) {
		// errors are already notified by the controller
		_, _ = ctrl.Ingest(ctx, jobID)
		_ = ctrl.RefreshList(ctx)
	},
		upload.WithNotifier(hub),
		upload.WithLogger(logger),
	)

	return &App{
		Secrets:     secrets,
		Provider:    client,
		Events:      hub,
		Transcripts: ctrl,
		Uploads:     uploads,
		cancel:      cancel,
		logger:      logger,
	}, nil
}

// NewSecretBackend returns the credential backend named by cfg.SecretBackend.
func NewSecretBackend(cfg *config.Config) (secret.Backend, error) {
	switch cfg.SecretBackend {
	case config.SecretBackendKeyring, "":
		return secret.NewKeyringBackend(cfg.KeyringService), nil
	case config.SecretBackendFile:
		return secret.NewFileBackend(""), nil
	default:
		return nil, fmt.Errorf("unknown secret backend %q", cfg.SecretBackend)
	}
}

// SetCredential validates key with the provider and stores it only when the
// provider accepts it.
func (a *App) SetCredential(ctx context.Context, key string) error {
	if err := a.Provider.CheckCredential(ctx, key); err != nil {
		return err
	}

	a.Secrets.Set(key)
	a.Events.Notify(notify.Info("API key saved", secret.Mask(key)))

	return nil
}

// RemoveCredential clears the stored key and everything read with it.
func (a *App) RemoveCredential() {
	a.Secrets.Remove()
	a.Transcripts.Reset()
	a.Events.Notify(notify.Info("API key removed", ""))
}

// Close stops polling and the notification hub.
func (a *App) Close() {
	a.Transcripts.Close()
	a.cancel()
	a.Events.Wait()
	a.logger.Debug("App closed")
}
