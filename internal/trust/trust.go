// Package trust implements the disk-backed trust store: one PEM file per
// trusted key fingerprint, plus a reserved registry.pem pinned on first use.
package trust

import (
	"os"
	"path/filepath"

	"github.com/ryeos/ryekernel/internal/signing"
)

// RegistryKeyName is the reserved filename for the TOFU-pinned registry key.
const RegistryKeyName = "registry.pem"

const (
	trustDirMode os.FileMode = 0700
	keyFileMode  os.FileMode = 0644
)

// Entry describes one trusted key as returned by List.
type Entry struct {
	Fingerprint string
	Path        string
	IsRegistry  bool
	Label       string
}

// Store manages a single trust directory on disk.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. The directory is created lazily on
// first write, not on construction.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) ensureDir() error {
	return os.MkdirAll(s.dir, trustDirMode)
}

func (s *Store) keyPath(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+".pem")
}

func (s *Store) registryPath() string {
	return filepath.Join(s.dir, RegistryKeyName)
}

// IsTrusted reports whether fingerprint has a matching entry, checking both
// the named key file and whether the pinned registry key's own fingerprint
// matches.
func (s *Store) IsTrusted(fingerprint string) bool {
	if _, err := os.Stat(s.keyPath(fingerprint)); err == nil {
		return true
	}
	if pem, ok := s.readRegistryKey(); ok && signing.Fingerprint(pem) == fingerprint {
		return true
	}
	return false
}

// GetKey returns the PEM bytes for a trusted fingerprint, or nil if it is
// not trusted.
func (s *Store) GetKey(fingerprint string) []byte {
	if data, err := os.ReadFile(s.keyPath(fingerprint)); err == nil {
		return data
	}
	if pem, ok := s.readRegistryKey(); ok && signing.Fingerprint(pem) == fingerprint {
		return pem
	}
	return nil
}

func (s *Store) readRegistryKey() ([]byte, bool) {
	data, err := os.ReadFile(s.registryPath())
	if err != nil {
		return nil, false
	}
	return data, true
}

// AddKey writes a public key into the trust store, named by its own
// fingerprint, and returns that fingerprint.
func (s *Store) AddKey(publicKeyPEM []byte) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", err
	}
	fp := signing.Fingerprint(publicKeyPEM)
	if err := os.WriteFile(s.keyPath(fp), publicKeyPEM, keyFileMode); err != nil {
		return "", err
	}
	return fp, nil
}

// RemoveKey deletes a trusted key's file, reporting whether it existed.
func (s *Store) RemoveKey(fingerprint string) (bool, error) {
	path := s.keyPath(fingerprint)
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}

// PinRegistryKey pins the registry's public key on first use (trust on
// first use). If a registry key is already pinned, this is a no-op that
// returns the existing key's fingerprint — it never overwrites a pinned
// key, deliberately: rotating the registry key is a manual operation (see
// DESIGN.md's Open Question resolution on registry re-pinning).
func (s *Store) PinRegistryKey(publicKeyPEM []byte) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", err
	}
	if existing, ok := s.readRegistryKey(); ok {
		return signing.Fingerprint(existing), nil
	}
	if err := os.WriteFile(s.registryPath(), publicKeyPEM, keyFileMode); err != nil {
		return "", err
	}
	return signing.Fingerprint(publicKeyPEM), nil
}

// GetRegistryKey returns the pinned registry key, or nil if none is pinned.
func (s *Store) GetRegistryKey() []byte {
	if pem, ok := s.readRegistryKey(); ok {
		return pem
	}
	return nil
}

// List returns every trusted key in the store, including the registry key
// if pinned.
func (s *Store) List() ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.pem"))
	if err != nil {
		return nil, err
	}
	if matches == nil {
		return []Entry{}, nil
	}

	entries := make([]Entry, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		name := filepath.Base(path)
		entries = append(entries, Entry{
			Fingerprint: signing.Fingerprint(data),
			Path:        path,
			IsRegistry:  name == RegistryKeyName,
			Label:       name[:len(name)-len(filepath.Ext(name))],
		})
	}
	return entries, nil
}
