// Package keystore stores provider API keys encrypted at rest. The
// default store is a single AES-GCM sealed file next to a locally
// generated master key; callers program against the Keystore interface
// so tests can substitute an in-memory fake.
package keystore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Keystore is the CLI's key storage contract. Get returns
// *ErrKeyNotFound for names the store does not hold.
type Keystore interface {
	Set(name, value string) error
	Get(name string) (string, error)
	Delete(name string) error

	// List returns the stored key names in sorted order.
	List() ([]string, error)
}

// ErrKeyNotFound reports a lookup for an absent key.
type ErrKeyNotFound struct {
	Name string
}

func (e *ErrKeyNotFound) Error() string {
	return fmt.Sprintf("key not found: %s", e.Name)
}

const (
	storeDir   = ".relay"
	storeFile  = "keys.enc"
	masterFile = "master.key"
)

// DefaultKeystorePath resolves the store location under the user's home
// directory (~/.relay/keys.enc). Without a resolvable home the store
// lands in the working directory.
func DefaultKeystorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return storeFile
	}
	return filepath.Join(home, storeDir, storeFile)
}

// NewKeystore opens the default encrypted file keystore. The master key
// lives beside the store and is created on first use.
func NewKeystore() (Keystore, error) {
	path := DefaultKeystorePath()
	return NewFileKeystore(path, filepath.Join(filepath.Dir(path), masterFile))
}
