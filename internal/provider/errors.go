package provider

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoCredential is returned before any network call when no credential is configured.
	ErrNoCredential = errors.New("API key not set")
	// ErrUnauthorized is matched by a 401 response.
	ErrUnauthorized = errors.New("invalid credential")
	// ErrNotFound is matched by a 404 response.
	ErrNotFound = errors.New("transcript not found")
)

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match status-specific sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	default:
		return false
	}
}
