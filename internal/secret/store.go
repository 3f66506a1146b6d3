// Package secret persists the provider credential in a single local slot.
package secret

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// Slot is the namespaced storage slot holding the obfuscated credential.
const Slot = "cautious_breeze"

// ErrNotFound is returned by a Backend when the slot is empty.
var ErrNotFound = errors.New("secret not found")

// Backend is raw slot storage. Values passed through it are already obfuscated.
type Backend interface {
	Load(slot string) (string, error)
	Save(slot, value string) error
	Delete(slot string) error
}

// Store keeps one credential string in a Backend.
//
// Backend failures never escape: they are logged and the Store behaves as if
// nothing is stored. Callers get a boolean presence gate and nothing else.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu sync.RWMutex
}

// NewStore creates a Store over backend. A nil logger uses slog.Default().
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		backend: backend,
		logger:  logger.With("component", "secret"),
	}
}

// Set stores value, replacing any previous one.
func (s *Store) Set(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(Slot, Encode(value)); err != nil {
		s.logger.Error("Failed to store credential", "error", err)
	}
}

// Get returns the stored credential, or false when absent or unreadable.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obfuscated, err := s.backend.Load(Slot)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("Failed to retrieve credential", "error", err)
		}
		return "", false
	}

	if obfuscated == "" {
		return "", false
	}

	value, err := Decode(obfuscated)
	if err != nil {
		s.logger.Error("Stored credential is corrupt", "error", err)
		return "", false
	}

	return value, true
}

// Remove clears the slot. Removing an empty slot is not an error.
func (s *Store) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(Slot); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Error("Failed to remove credential", "error", err)
	}
}

// Has reports whether a usable credential is stored.
func (s *Store) Has() bool {
	_, ok := s.Get()
	return ok
}

// Credential implements provider.CredentialSource.
// Blank values count as absent.
func (s *Store) Credential() (string, bool) {
	value, ok := s.Get()
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// Mask hides all but the edges of key for display.
func Mask(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return strings.Repeat("*", len(key))
	}
	return key[:visible] + strings.Repeat("*", len(key)-visible*2) + key[len(key)-visible:]
}
