// Package signing implements the Ed25519 key lifecycle: generation, PEM
// persistence, fingerprinting, and raw sign/verify over a content hash.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

const (
	privateKeyType = "ED25519 PRIVATE KEY"
	publicKeyType  = "ED25519 PUBLIC KEY"

	privateKeyMode os.FileMode = 0600
	keyDirMode     os.FileMode = 0700
	publicKeyMode  os.FileMode = 0644
)

// KeyPair holds a generated or loaded Ed25519 keypair in PEM form.
type KeyPair struct {
	PrivatePEM []byte
	PublicPEM  []byte
}

// GenerateKeyPair creates a new Ed25519 keypair and returns it PEM-encoded.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("signing: generate keypair: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{Type: privateKeyType, Bytes: priv})
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: publicKeyType, Bytes: pub})
	return &KeyPair{PrivatePEM: privPEM, PublicPEM: pubPEM}, nil
}

// SaveKeyPair writes a keypair to disk, creating the parent directory with
// 0700 permissions, the private key with 0600, and the public key with
// 0644.
func SaveKeyPair(kp *KeyPair, privatePath, publicPath string) error {
	if err := os.MkdirAll(filepath.Dir(privatePath), keyDirMode); err != nil {
		return fmt.Errorf("signing: create key dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(publicPath), keyDirMode); err != nil {
		return fmt.Errorf("signing: create key dir: %w", err)
	}
	if err := os.WriteFile(privatePath, kp.PrivatePEM, privateKeyMode); err != nil {
		return fmt.Errorf("signing: write private key: %w", err)
	}
	if err := os.WriteFile(publicPath, kp.PublicPEM, publicKeyMode); err != nil {
		return fmt.Errorf("signing: write public key: %w", err)
	}
	return nil
}

// EnsureKeyPair loads an existing keypair from disk, or generates and saves
// a new one if neither file exists yet.
func EnsureKeyPair(privatePath, publicPath string) (*KeyPair, error) {
	if _, err := os.Stat(privatePath); err == nil {
		priv, errPriv := os.ReadFile(privatePath)
		if errPriv != nil {
			return nil, fmt.Errorf("signing: read private key: %w", errPriv)
		}
		pub, errPub := os.ReadFile(publicPath)
		if errPub != nil {
			return nil, fmt.Errorf("signing: read public key: %w", errPub)
		}
		return &KeyPair{PrivatePEM: priv, PublicPEM: pub}, nil
	}

	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := SaveKeyPair(kp, privatePath, publicPath); err != nil {
		return nil, err
	}
	return kp, nil
}

func decodePrivate(privatePEM []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(privatePEM)
	if block == nil {
		return nil, fmt.Errorf("signing: failed to decode private key PEM")
	}
	if block.Type != privateKeyType {
		return nil, fmt.Errorf("signing: invalid key type: expected %s, got %s", privateKeyType, block.Type)
	}
	key := ed25519.PrivateKey(block.Bytes)
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing: invalid private key size")
	}
	return key, nil
}

// DecodePublic parses a PEM-encoded Ed25519 public key.
func DecodePublic(publicPEM []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(publicPEM)
	if block == nil {
		return nil, fmt.Errorf("signing: failed to decode public key PEM")
	}
	if block.Type != publicKeyType {
		return nil, fmt.Errorf("signing: invalid key type: expected %s, got %s", publicKeyType, block.Type)
	}
	key := ed25519.PublicKey(block.Bytes)
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("signing: invalid public key size")
	}
	return key, nil
}

// SignHash signs a hex-encoded content hash with a PEM-encoded private key,
// returning a base64url (no padding) signature.
func SignHash(contentHash string, privatePEM []byte) (string, error) {
	key, err := decodePrivate(privatePEM)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(key, []byte(contentHash))
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

// VerifySignature checks a base64url signature against a content hash and
// public key. It never distinguishes the cause of failure to the caller —
// malformed signature, malformed key, and a genuine mismatch all report as
// false.
func VerifySignature(contentHash, sigB64 string, publicPEM []byte) bool {
	key, err := DecodePublic(publicPEM)
	if err != nil {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	return ed25519.Verify(key, []byte(contentHash), sig)
}

// Fingerprint returns the first 16 hex characters of SHA-256(pemBytes), the
// identifier used to name trust-store entries and to reference a signing
// key from an embedded signature line.
func Fingerprint(pemBytes []byte) string {
	sum := sha256.Sum256(pemBytes)
	return fmt.Sprintf("%x", sum)[:16]
}
