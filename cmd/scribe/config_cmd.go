package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/provider"
	"github.com/alkime/scribe/internal/secret"
)

// ConfigCmd groups credential subcommands.
type ConfigCmd struct {
	SetKey    SetKeyCmd    `cmd:"" help:"Validate and store the provider API key"`
	RemoveKey RemoveKeyCmd `cmd:"" help:"Remove the stored API key"`
	Status    StatusCmd    `cmd:"" help:"Show whether an API key is configured"`
}

// SetKeyCmd stores the API key after the provider accepts it.
type SetKeyCmd struct {
	Key string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	key := strings.TrimSpace(c.Key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.SetCredential(context.Background(), key); err != nil {
		if errors.Is(err, provider.ErrUnauthorized) {
			return errors.New("the provider rejected this API key")
		}
		return fmt.Errorf("could not validate API key: %w", err)
	}

	fmt.Printf("API key %s stored (%s backend)\n", secret.Mask(key), cfg.SecretBackend)

	return nil
}

// RemoveKeyCmd clears the stored API key.
type RemoveKeyCmd struct{}

// Run executes the remove-key command.
func (c *RemoveKeyCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.RemoveCredential()
	fmt.Println("API key removed")

	return nil
}

// StatusCmd reports whether a key is configured.
type StatusCmd struct {
	Check bool `flag:"" help:"Also check the key with the provider"`
}

// Run executes the status command.
func (c *StatusCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	key, ok := a.Secrets.Credential()
	if !ok {
		fmt.Println("API key: not set")
		fmt.Println("\nRun 'scribe config set-key <key>' to configure.")
		return nil
	}

	fmt.Printf("API key: %s\n", secret.Mask(key))

	if c.Check {
		if err := a.Provider.CheckCredential(context.Background(), key); err != nil {
			return fmt.Errorf("API key check failed: %w", err)
		}
		fmt.Println("Provider accepted the key")
	}

	return nil
}
