// Package integrity implements the Integrity Verifier (component F): a
// pure, side-effect-free check that an item's embedded signature matches
// its content and that the signing key is trusted. It composes the
// Canonicalizer/Hasher (A), Signer (B), Trust Store (C), and Extractor
// Registry (D) but performs no caching or logging of its own.
package integrity

import (
	"os"
	"path/filepath"

	"github.com/ryeos/ryekernel/internal/canon"
	coreerrors "github.com/ryeos/ryekernel/internal/errors"
	"github.com/ryeos/ryekernel/internal/extractor"
	"github.com/ryeos/ryekernel/internal/item"
	"github.com/ryeos/ryekernel/internal/signing"
	"github.com/ryeos/ryekernel/internal/sigline"
	"github.com/ryeos/ryekernel/internal/trust"
)

// Verifier holds read-only references to the collaborators it composes.
// A Verifier has no mutable state and is safe to call concurrently on
// distinct files.
type Verifier struct {
	Extractors *extractor.Registry
	Trust      *trust.Store
}

// New constructs a Verifier.
func New(extractors *extractor.Registry, trustStore *trust.Store) *Verifier {
	return &Verifier{Extractors: extractors, Trust: trustStore}
}

// VerifyFile implements the ten-step algorithm of spec.md §4.F against a
// file already on disk. tierRoots is passed through to the Extractor
// Registry so it can resolve any tier-level signature_format override
// before falling back to that item type's built-in default.
func (v *Verifier) VerifyFile(path string, itemType item.Type, tierRoots []string) (contentHash string, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return v.Verify(content, path, itemType, tierRoots)
}

// Verify runs the same algorithm against content already read into memory,
// so callers that already hold the bytes (e.g. the chain validator walking
// freshly-resolved items) don't pay for a second read.
func (v *Verifier) Verify(content []byte, path string, itemType item.Type, tierRoots []string) (contentHash string, err error) {
	cfg, err := v.Extractors.Get(itemType, tierRoots)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(path)
	format := cfg.FormatFor(ext)

	info, stripped, found := sigline.Extract(content, format)
	if !found {
		return "", &coreerrors.Unsigned{Path: path}
	}

	actualHash := canon.HashBytes(stripped)
	if actualHash != info.ContentHash {
		return "", &coreerrors.HashMismatch{Path: path, Expected: info.ContentHash, Actual: actualHash}
	}

	publicKey := v.Trust.GetKey(info.Fingerprint)
	if publicKey == nil {
		return "", &coreerrors.UntrustedKey{Path: path, Fingerprint: info.Fingerprint}
	}

	if !signing.VerifySignature(info.ContentHash, info.Signature, publicKey) {
		return "", &coreerrors.SignatureInvalid{Path: path, Fingerprint: info.Fingerprint}
	}

	return actualHash, nil
}
