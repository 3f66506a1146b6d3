package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
	// EnvDevelopment represents the development environment.
	EnvDevelopment = "development"

	// SecretBackendKeyring stores the credential in the system keychain.
	SecretBackendKeyring = "keyring"
	// SecretBackendFile stores the credential in a file under the user config dir.
	SecretBackendFile = "file"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8080"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Provider settings
	ProviderBaseURL string        `envconfig:"PROVIDER_BASE_URL" default:"https://api.assemblyai.com"`
	LanguageCode    string        `envconfig:"LANGUAGE_CODE" default:"pt"`
	ListLimit       int           `envconfig:"LIST_LIMIT" default:"100"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"0s"`

	// Transcript polling
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`

	// Credential storage
	SecretBackend  string `envconfig:"SECRET_BACKEND" default:"keyring"`
	KeyringService string `envconfig:"KEYRING_SERVICE" default:"scribe"`

	// Uploads
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"536870912"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	// Parse environment variables into config struct
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values envconfig cannot express as types.
func (c *Config) Validate() error {
	var errs []error

	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval))
	}

	if c.ListLimit <= 0 {
		errs = append(errs, fmt.Errorf("LIST_LIMIT must be positive, got %d", c.ListLimit))
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes))
	}

	switch c.SecretBackend {
	case SecretBackendKeyring, SecretBackendFile:
	default:
		errs = append(errs, fmt.Errorf("SECRET_BACKEND must be %q or %q, got %q",
			SecretBackendKeyring, SecretBackendFile, c.SecretBackend))
	}

	switch c.CSPMode {
	case "strict", "relaxed":
	default:
		errs = append(errs, fmt.Errorf("CSP_MODE must be strict or relaxed, got %q", c.CSPMode))
	}

	return errors.Join(errs...)
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		// Production CSP
		return "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'self'; " +
			"connect-src 'self'; " +
			"img-src 'self' data:; " +
			"object-src 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"connect-src 'self'; " +
		"img-src 'self' data:"
}
