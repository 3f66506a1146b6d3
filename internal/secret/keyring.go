package secret

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keychain service name used when none is configured.
const DefaultService = "scribe"

// KeyringBackend stores slots in the system keychain.
type KeyringBackend struct {
	service string
}

// NewKeyringBackend creates a keychain backend under service.
func NewKeyringBackend(service string) *KeyringBackend {
	if service == "" {
		service = DefaultService
	}
	return &KeyringBackend{service: service}
}

// Load retrieves a slot value from the system keychain.
func (k *KeyringBackend) Load(slot string) (string, error) {
	value, err := keyring.Get(k.service, slot)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get %s from keychain: %w", slot, err)
	}

	return value, nil
}

// Save stores a slot value in the system keychain.
func (k *KeyringBackend) Save(slot, value string) error {
	if err := keyring.Set(k.service, slot, value); err != nil {
		return fmt.Errorf("failed to set %s in keychain: %w", slot, err)
	}

	return nil
}

// Delete removes a slot from the system keychain.
func (k *KeyringBackend) Delete(slot string) error {
	if err := keyring.Delete(k.service, slot); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keychain: %w", slot, err)
	}

	return nil
}
