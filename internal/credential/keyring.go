package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "taskd"

// SMTPPasswordKey is the keyring entry holding the outbound mail password.
const SMTPPasswordKey = "smtp-password"

// ErrNotStored is returned by Get and Delete when the key has no entry.
var ErrNotStored = errors.New("credential not stored")

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/taskd/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("taskd-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotStored)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, ErrNotStored)
	}
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Lookup reads a secret by key. Get is the production implementation.
type Lookup func(key string) (string, error)

// Resolve returns configured when it is non-empty, otherwise the value
// stored under key. A missing entry resolves to "" without error so a
// passwordless relay keeps working.
func Resolve(configured, key string, lookup Lookup) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if lookup == nil {
		return "", nil
	}

	v, err := lookup(key)
	if errors.Is(err, ErrNotStored) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
