package keystore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/argon2"
)

// File format: magic | salt | nonce | AES-256-GCM ciphertext of a JSON
// name->value map. The encryption key is derived from the master key and
// the per-file salt with Argon2id.
const (
	magicHeader = "RLY1"
	saltLength  = 16
	nonceLength = 12

	masterKeyLength = 32
)

// Argon2id parameters (OWASP recommended).
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// FileKeystore implements Keystore over one encrypted file. It is safe
// for concurrent use within a process; cross-process writers race.
type FileKeystore struct {
	path      string
	masterKey []byte
	mu        sync.Mutex
}

// NewFileKeystore opens (or prepares) an encrypted keystore at path. The
// master key is read from masterPath, created with fresh random bytes
// when absent.
func NewFileKeystore(path, masterPath string) (*FileKeystore, error) {
	key, err := loadOrCreateMasterKey(masterPath)
	if err != nil {
		return nil, err
	}
	return &FileKeystore{path: path, masterKey: key}, nil
}

func loadOrCreateMasterKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != masterKeyLength {
			return nil, fmt.Errorf("master key %s: unexpected length %d", path, len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	key = make([]byte, masterKeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

// Set stores a key-value pair.
func (f *FileKeystore) Set(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.load()
	if err != nil {
		return err
	}
	keys[name] = value
	return f.save(keys)
}

// Get retrieves a value by name.
func (f *FileKeystore) Get(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := keys[name]
	if !ok {
		return "", &ErrKeyNotFound{Name: name}
	}
	return value, nil
}

// Delete removes a key by name.
func (f *FileKeystore) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := keys[name]; !ok {
		return &ErrKeyNotFound{Name: name}
	}
	delete(keys, name)
	return f.save(keys)
}

// List returns all stored key names, sorted.
func (f *FileKeystore) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FileKeystore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	rest, ok := bytes.CutPrefix(data, []byte(magicHeader))
	if !ok || len(rest) < saltLength+nonceLength {
		return nil, fmt.Errorf("keystore %s: unrecognized format", f.path)
	}
	salt := rest[:saltLength]
	nonce := rest[saltLength : saltLength+nonceLength]
	ciphertext := rest[saltLength+nonceLength:]

	gcm, err := f.cipherFor(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("keystore decryption failed: wrong master key or corrupt file")
	}

	keys := make(map[string]string)
	if err := json.Unmarshal(plaintext, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (f *FileKeystore) save(keys map[string]string) error {
	plaintext, err := json.Marshal(keys)
	if err != nil {
		return err
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	gcm, err := f.cipherFor(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}

	var out bytes.Buffer
	out.WriteString(magicHeader)
	out.Write(salt)
	out.Write(nonce)
	out.Write(gcm.Seal(nil, nonce, plaintext, nil))

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileKeystore) cipherFor(salt []byte) (cipher.AEAD, error) {
	derived := argon2.IDKey(f.masterKey, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
