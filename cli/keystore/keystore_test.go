package keystore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestKeystore(t *testing.T) (*FileKeystore, string) {
	t.Helper()
	dir := t.TempDir()
	ks, err := NewFileKeystore(filepath.Join(dir, "keys.enc"), filepath.Join(dir, "master.key"))
	if err != nil {
		t.Fatalf("NewFileKeystore() = %v", err)
	}
	return ks, dir
}

func TestDefaultKeystorePathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := DefaultKeystorePath()
	if want := filepath.Join(home, ".relay", "keys.enc"); got != want {
		t.Errorf("DefaultKeystorePath() = %q, want %q", got, want)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	ks, _ := newTestKeystore(t)

	if err := ks.Set("openai", "sk-secret"); err != nil {
		t.Fatalf("Set() = %v", err)
	}
	got, err := ks.Get("openai")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if got != "sk-secret" {
		t.Errorf("Get() = %q", got)
	}
}

func TestGetMissing(t *testing.T) {
	ks, _ := newTestKeystore(t)

	_, err := ks.Get("nope")
	var notFound *ErrKeyNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("Get() = %v, want *ErrKeyNotFound", err)
	}
	if notFound != nil && notFound.Name != "nope" {
		t.Errorf("Name = %q", notFound.Name)
	}
}

func TestDelete(t *testing.T) {
	ks, _ := newTestKeystore(t)

	if err := ks.Set("anthropic", "sk-ant"); err != nil {
		t.Fatal(err)
	}
	if err := ks.Delete("anthropic"); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	if _, err := ks.Get("anthropic"); err == nil {
		t.Error("Get() after Delete() = nil error")
	}

	var notFound *ErrKeyNotFound
	if err := ks.Delete("anthropic"); !errors.As(err, &notFound) {
		t.Errorf("second Delete() = %v, want *ErrKeyNotFound", err)
	}
}

func TestListSorted(t *testing.T) {
	ks, _ := newTestKeystore(t)

	for _, name := range []string{"zai", "openai", "anthropic"} {
		if err := ks.Set(name, "k"); err != nil {
			t.Fatal(err)
		}
	}
	names, err := ks.List()
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	want := []string{"anthropic", "openai", "zai"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestFileNeverHoldsPlaintext(t *testing.T) {
	ks, dir := newTestKeystore(t)

	if err := ks.Set("openai", "sk-very-secret-value"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "keys.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("sk-very-secret-value")) {
		t.Error("keystore file contains the plaintext key")
	}
	if bytes.Contains(data, []byte("openai")) {
		t.Error("keystore file contains the plaintext name")
	}
}

func TestReopenWithSameMasterKey(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "keys.enc")
	masterPath := filepath.Join(dir, "master.key")

	ks, err := NewFileKeystore(storePath, masterPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := ks.Set("gemini", "g-key"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileKeystore(storePath, masterPath)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Get("gemini")
	if err != nil {
		t.Fatalf("Get() after reopen = %v", err)
	}
	if got != "g-key" {
		t.Errorf("Get() = %q", got)
	}
}

func TestWrongMasterKeyFails(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "keys.enc")

	ks, err := NewFileKeystore(storePath, filepath.Join(dir, "master.key"))
	if err != nil {
		t.Fatal(err)
	}
	if err := ks.Set("openai", "sk"); err != nil {
		t.Fatal(err)
	}

	other, err := NewFileKeystore(storePath, filepath.Join(dir, "other-master.key"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Get("openai"); err == nil {
		t.Error("Get() with a different master key = nil error")
	}
}

func TestCorruptFileRejected(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "keys.enc")
	if err := os.WriteFile(storePath, []byte("not a keystore"), 0o600); err != nil {
		t.Fatal(err)
	}

	ks, err := NewFileKeystore(storePath, filepath.Join(dir, "master.key"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ks.List(); err == nil {
		t.Error("List() on a corrupt file = nil error")
	}
}
