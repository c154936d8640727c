// Package metadata is the Metadata Manager (component J): a single
// entry point orchestrating the Canonicalizer (A), Signer (B), Trust
// Store (C), Extractor Registry (D), and Integrity Verifier (F) for the
// three operations a caller actually needs — sign, verify, and
// extract-signature — without needing to wire those collaborators
// together itself.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ryeos/ryekernel/internal/canon"
	"github.com/ryeos/ryekernel/internal/extractor"
	"github.com/ryeos/ryekernel/internal/integrity"
	"github.com/ryeos/ryekernel/internal/item"
	"github.com/ryeos/ryekernel/internal/signing"
	"github.com/ryeos/ryekernel/internal/sigline"
	"github.com/ryeos/ryekernel/internal/trust"
)

// Manager bundles the collaborators every sign/verify/extract call
// needs so a caller only has to construct it once.
type Manager struct {
	Extractors *extractor.Registry
	Trust      *trust.Store
	Verifier   *integrity.Verifier
}

// New constructs a Manager over an extractor registry and trust store.
func New(extractors *extractor.Registry, trustStore *trust.Store) *Manager {
	return &Manager{
		Extractors: extractors,
		Trust:      trustStore,
		Verifier:   integrity.New(extractors, trustStore),
	}
}

// Sign embeds a signature line into content for the given item type and
// path (the path's extension selects the signature format),
// signing with signerPrivatePEM. It does not write the result to disk;
// callers that want a signed file do that themselves, since whether to
// overwrite in place or write to a new path is a caller decision.
func (m *Manager) Sign(content []byte, path string, itemType item.Type, signerPrivatePEM, signerPublicPEM []byte, timestamp string, tierRoots []string) ([]byte, error) {
	cfg, err := m.Extractors.Get(itemType, tierRoots)
	if err != nil {
		return nil, err
	}
	format := cfg.FormatFor(filepath.Ext(path))

	// Re-signing must start from unsigned content: strip any existing
	// line first so the hash is computed over the same body a later
	// verify will see.
	stripped := sigline.StripIfPresent(content, format)

	hash := canon.HashBytes(stripped)
	sig, err := signing.SignHash(hash, signerPrivatePEM)
	if err != nil {
		return nil, err
	}

	info := sigline.Info{
		Kind:        sigline.KindSigned,
		Timestamp:   timestamp,
		ContentHash: hash,
		Signature:   sig,
		Fingerprint: signing.Fingerprint(signerPublicPEM),
	}
	return sigline.Embed(stripped, format, info), nil
}

// SignFile signs the file at path in place, using its own bytes as the
// unsigned content, and overwrites it with the signed result.
func (m *Manager) SignFile(path string, itemType item.Type, signerPrivatePEM, signerPublicPEM []byte, timestamp string, tierRoots []string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	signed, err := m.Sign(content, path, itemType, signerPrivatePEM, signerPublicPEM, timestamp, tierRoots)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, signed, info.Mode())
}

// VerifyFile runs the full ten-step integrity algorithm (component F)
// against a file on disk, returning its verified content hash.
func (m *Manager) VerifyFile(path string, itemType item.Type, tierRoots []string) (string, error) {
	return m.Verifier.VerifyFile(path, itemType, tierRoots)
}

// Verify runs the same algorithm against content already in memory.
func (m *Manager) Verify(content []byte, path string, itemType item.Type, tierRoots []string) (string, error) {
	return m.Verifier.Verify(content, path, itemType, tierRoots)
}

// ExtractSignature parses the embedded signature line out of content
// without checking it against the content hash or trust store — useful
// for inspection tooling (e.g. "what key signed this, and when") that
// doesn't need a full verify.
func (m *Manager) ExtractSignature(content []byte, itemType item.Type, path string, tierRoots []string) (*sigline.Info, error) {
	cfg, err := m.Extractors.Get(itemType, tierRoots)
	if err != nil {
		return nil, err
	}
	format := cfg.FormatFor(filepath.Ext(path))

	info, _, found := sigline.Extract(content, format)
	if !found {
		return nil, fmt.Errorf("metadata: %s: no embedded signature found", path)
	}
	return info, nil
}
