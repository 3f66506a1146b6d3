package secret_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alkime/scribe/internal/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// failingBackend simulates unavailable storage.
type failingBackend struct {
	err error
}

func (f failingBackend) Load(string) (string, error) { return "", f.err }
func (f failingBackend) Save(string, string) error   { return f.err }
func (f failingBackend) Delete(string) error         { return f.err }

func TestStore_Keyring(t *testing.T) {
	keyring.MockInit()

	store := secret.NewStore(secret.NewKeyringBackend("scribe-test"), discardLogger())

	t.Run("empty store", func(t *testing.T) {
		_, ok := store.Get()
		assert.False(t, ok)
		assert.False(t, store.Has())
	})

	t.Run("set then get", func(t *testing.T) {
		store.Set("key-123")

		value, ok := store.Get()
		require.True(t, ok)
		assert.Equal(t, "key-123", value)
		assert.True(t, store.Has())
	})

	t.Run("value is obfuscated at rest", func(t *testing.T) {
		raw, err := keyring.Get("scribe-test", secret.Slot)
		require.NoError(t, err)
		assert.NotEqual(t, "key-123", raw)
		assert.Equal(t, secret.Encode("key-123"), raw)
	})

	t.Run("remove", func(t *testing.T) {
		store.Remove()
		assert.False(t, store.Has())

		// removing twice is fine
		store.Remove()
		assert.False(t, store.Has())
	})
}

func TestStore_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store := secret.NewStore(secret.NewFileBackend(dir), discardLogger())

	assert.False(t, store.Has())

	store.Set("file-key")
	value, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, "file-key", value)

	info, err := os.Stat(filepath.Join(dir, secret.Slot))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a second store over the same dir sees the persisted value
	again := secret.NewStore(secret.NewFileBackend(dir), discardLogger())
	assert.True(t, again.Has())

	store.Remove()
	assert.False(t, again.Has())
}

func TestStore_BackendFailureIsSwallowed(t *testing.T) {
	store := secret.NewStore(failingBackend{err: errors.New("quota exceeded")}, discardLogger())

	assert.NotPanics(t, func() { store.Set("x") })
	assert.NotPanics(t, store.Remove)

	_, ok := store.Get()
	assert.False(t, ok)
	assert.False(t, store.Has())
}

func TestStore_KeyringUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no dbus session"))
	t.Cleanup(keyring.MockInit)

	store := secret.NewStore(secret.NewKeyringBackend(""), discardLogger())
	store.Set("x")

	assert.False(t, store.Has())
}

func TestStore_CorruptSlotReadsAsAbsent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, secret.Slot), []byte("not-hex!"), 0o600))

	store := secret.NewStore(secret.NewFileBackend(dir), discardLogger())

	assert.False(t, store.Has())
}

func TestStore_Credential(t *testing.T) {
	store := secret.NewStore(secret.NewFileBackend(t.TempDir()), discardLogger())

	_, ok := store.Credential()
	assert.False(t, ok)

	store.Set("   ")
	_, ok = store.Credential()
	assert.False(t, ok, "blank credential is not usable")

	store.Set("real")
	value, ok := store.Credential()
	assert.True(t, ok)
	assert.Equal(t, "real", value)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", secret.Mask(""))
	assert.Equal(t, "*****", secret.Mask("short"))
	assert.Equal(t, "abcd****wxyz", secret.Mask("abcd1234wxyz"))
}
