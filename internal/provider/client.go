// Package provider talks to the remote speech-transcription service.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alkime/scribe/pkg/collections"
)

const (
	// DefaultBaseURL is the provider's public API endpoint.
	DefaultBaseURL = "https://api.assemblyai.com"
	// DefaultLanguage is used when Submit gets an empty language hint.
	DefaultLanguage = "pt"
	// DefaultListLimit bounds ListAll to one page.
	DefaultListLimit = 100
)

// CredentialSource supplies the API key for each request.
type CredentialSource interface {
	Credential() (string, bool)
}

// Client wraps the provider's REST API. Every call is a single attempt.
type Client struct {
	creds     CredentialSource
	baseURL   string
	http      *http.Client
	logger    *slog.Logger
	listLimit int
	language  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithListLimit sets the page size for ListAll.
func WithListLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.listLimit = limit
		}
	}
}

// WithDefaultLanguage sets the language code used when Submit gets none.
func WithDefaultLanguage(code string) Option {
	return func(c *Client) {
		if code != "" {
			c.language = code
		}
	}
}

// NewClient creates a provider client reading its key from creds.
func NewClient(creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		creds:     creds,
		baseURL:   DefaultBaseURL,
		http:      &http.Client{},
		logger:    slog.Default(),
		listLimit: DefaultListLimit,
		language:  DefaultLanguage,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("component", "provider")

	return c
}

// CheckCredential makes a cheap read-only call with candidate.
// It returns nil on success, an error matching ErrUnauthorized on 401,
// and any other failure wrapped.
func (c *Client) CheckCredential(ctx context.Context, candidate string) error {
	if strings.TrimSpace(candidate) == "" {
		return ErrNoCredential
	}

	path := "/v2/transcript?limit=1"
	if err := c.do(ctx, candidate, http.MethodGet, path, nil, "", nil); err != nil {
		return fmt.Errorf("failed to validate credential: %w", err)
	}

	return nil
}

// ValidateCredential reports whether candidate is accepted by the provider.
//
// A false result does not say why: an unauthorized key and a network failure
// look the same here. Use CheckCredential to tell them apart.
func (c *Client) ValidateCredential(ctx context.Context, candidate string) bool {
	err := c.CheckCredential(ctx, candidate)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrUnauthorized):
		c.logger.Warn("Credential rejected by provider")
	default:
		c.logger.Error("Credential validation failed", "error", err)
	}

	return false
}

// Submit uploads audio and creates a transcription job for it.
// It returns the new job's ID.
func (c *Client) Submit(ctx context.Context, audio io.Reader, languageHint string) (string, error) {
	key, err := c.credential()
	if err != nil {
		return "", err
	}

	var uploaded struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(ctx, key, http.MethodPost, "/v2/upload", audio, "application/octet-stream", &uploaded); err != nil {
		c.logger.Error("Error uploading file", "error", err)
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}
	if uploaded.UploadURL == "" {
		return "", errors.New("failed to upload audio: provider returned no upload URL")
	}

	if languageHint == "" {
		languageHint = c.language
	}

	body, err := json.Marshal(map[string]string{
		"audio_url":     uploaded.UploadURL,
		"language_code": languageHint,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript request: %w", err)
	}

	var created transcriptPayload
	if err := c.do(ctx, key, http.MethodPost, "/v2/transcript", bytes.NewReader(body), "application/json", &created); err != nil {
		c.logger.Error("Error requesting transcription", "error", err)
		return "", fmt.Errorf("failed to create transcript: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("failed to create transcript: provider returned no ID")
	}

	c.logger.Info("Transcript submitted", "id", created.ID, "language", languageHint)

	return created.ID, nil
}

// FetchStatus retrieves the current state of a job.
// A 404 is an error (matching ErrNotFound), never a terminal state.
func (c *Client) FetchStatus(ctx context.Context, id string) (Job, error) {
	key, err := c.credential()
	if err != nil {
		return Job{}, err
	}

	var payload transcriptPayload
	if err := c.do(ctx, key, http.MethodGet, "/v2/transcript/"+url.PathEscape(id), nil, "", &payload); err != nil {
		return Job{}, fmt.Errorf("failed to get transcript %s: %w", id, err)
	}

	job := normalize(payload)
	if job.ID == "" {
		job.ID = id
	}

	return job, nil
}

// ListAll retrieves one page of jobs in provider order.
func (c *Client) ListAll(ctx context.Context) ([]Job, error) {
	key, err := c.credential()
	if err != nil {
		return nil, err
	}

	var page struct {
		Transcripts []transcriptPayload `json:"transcripts"`
	}
	path := "/v2/transcript?limit=" + strconv.Itoa(c.listLimit)
	if err := c.do(ctx, key, http.MethodGet, path, nil, "", &page); err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	return collections.Apply(page.Transcripts, normalize), nil
}

func (c *Client) credential() (string, error) {
	key, ok := c.creds.Credential()
	if !ok {
		return "", ErrNoCredential
	}
	return key, nil
}

// do performs one request and decodes a JSON response into out (if non-nil).
func (c *Client) do(
	ctx context.Context,
	key, method, path string,
	body io.Reader,
	contentType string,
	out any,
) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", key)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("Provider request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}

	return apiErr
}
