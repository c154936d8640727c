// Package capability implements Capability Tokens (component H):
// Ed25519-signed, attenuable, time-bounded authority grants. A token
// grants its subject a set of dotted capability strings until it
// expires; attenuation narrows a token's grant but can never widen it,
// and a narrowed token's lifetime can never exceed its parent's.
package capability

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ryeos/ryekernel/internal/canon"
	coreerrors "github.com/ryeos/ryekernel/internal/errors"
	"github.com/ryeos/ryekernel/internal/signing"
)

// segmentPattern matches one dot-separated component of a capability
// string, per spec.md's grammar: cap ::= segment ("." segment)* ("." "*")?
var segmentPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validate reports whether s is a well-formed capability string. A
// trailing "*" segment, if present, must be the last one.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("capability: empty capability string")
	}
	segments := strings.Split(s, ".")
	for i, seg := range segments {
		if seg == "*" {
			if i != len(segments)-1 {
				return fmt.Errorf("capability: %q: wildcard must be the final segment", s)
			}
			continue
		}
		if !segmentPattern.MatchString(seg) {
			return fmt.Errorf("capability: %q: invalid segment %q", s, seg)
		}
	}
	return nil
}

// Matches reports whether granted authorizes requested: an exact match,
// or a strict prefix of requested ending in a wildcard segment.
func Matches(granted, requested string) bool {
	if granted == requested {
		return true
	}
	if !strings.HasSuffix(granted, ".*") {
		return false
	}
	prefix := strings.TrimSuffix(granted, "*")
	return strings.HasPrefix(requested, prefix) && len(requested) > len(prefix)
}

// Hierarchy declares capabilities that other, broader capabilities imply.
// An entry fires when a held capability covers its key under Matches:
// holding "rye.execute.*" or "rye.*" unlocks what "rye.execute.*" implies,
// while a narrower held capability such as "rye.execute.tool.x.*" does not.
type Hierarchy map[string][]string

// DefaultHierarchy reflects the namespace conventions the rest of this
// module uses: the broad execute/search/admin capabilities a caller is
// minted with unlock the narrower, item-type-scoped ones a check call
// actually tests against.
func DefaultHierarchy() Hierarchy {
	return Hierarchy{
		"rye.execute.*": {
			"rye.execute.tool.*",
			"rye.execute.directive.*",
		},
		"rye.search.*": {
			"rye.search.directive.*",
			"rye.search.tool.*",
			"rye.search.knowledge.*",
		},
		"rye.admin.*": {
			"rye.execute.*",
			"rye.search.*",
			"rye.lock.*",
			"rye.bundle.*",
		},
	}
}

// Expand returns caps plus every capability implied by h, to a fixed
// point. The hierarchy table is small and fixed at process configuration
// time, so a bounded number of passes is enough to reach closure without
// needing cycle detection.
func (h Hierarchy) Expand(caps []string) []string {
	set := map[string]bool{}
	for _, c := range caps {
		set[c] = true
	}

	for pass := 0; pass < len(h)+1; pass++ {
		grew := false
		for grantor, implied := range h {
			for c := range set {
				if !Matches(c, grantor) {
					continue
				}
				for _, imp := range implied {
					if !set[imp] {
						set[imp] = true
						grew = true
					}
				}
			}
		}
		if !grew {
			break
		}
	}

	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Token is a signed grant of capabilities to a subject until ExpiresAt.
// ParentHash links an attenuated token to the parent it was narrowed
// from; it is empty for a root token minted directly by an issuer.
type Token struct {
	Subject      string    `json:"subject"`
	Capabilities []string  `json:"capabilities"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	ParentHash   string    `json:"parent_token_hash,omitempty"`
	Signature    string    `json:"signature"`
	Fingerprint  string    `json:"fingerprint"`
}

// payload returns the canonical, signature-excluding view of the token
// that is actually signed and hashed.
func (t *Token) payload() map[string]interface{} {
	caps := make([]interface{}, len(t.Capabilities))
	for i, c := range t.Capabilities {
		caps[i] = c
	}
	p := map[string]interface{}{
		"subject":      t.Subject,
		"capabilities": caps,
		"issued_at":    t.IssuedAt.UTC().Format(time.RFC3339),
		"expires_at":   t.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if t.ParentHash != "" {
		p["parent_token_hash"] = t.ParentHash
	}
	return p
}

// Hash returns the canonical content hash of the token's payload, the
// value a child token's ParentHash records when attenuating from it.
func (t *Token) Hash() (string, error) {
	return canon.Hash(t.payload(), canon.V1)
}

// Mint issues a new root token granting subject the listed capabilities
// for ttl, signed by issuerPrivateKey. issuerPublicPEM is recorded only
// as the token's fingerprint, so Verify can look the matching key up in
// a trust store without re-deriving it from the private key.
func Mint(subject string, capabilities []string, ttl time.Duration, issuerPrivateKey, issuerPublicPEM []byte) (*Token, error) {
	for _, c := range capabilities {
		if err := Validate(c); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	t := &Token{
		Subject:      subject,
		Capabilities: capabilities,
		IssuedAt:     now,
		ExpiresAt:    now.Add(ttl),
	}

	if err := signToken(t, issuerPrivateKey, issuerPublicPEM); err != nil {
		return nil, err
	}
	return t, nil
}

func signToken(t *Token, issuerPrivateKey, issuerPublicPEM []byte) error {
	payloadBytes, err := canon.Marshal(t.payload(), canon.V1)
	if err != nil {
		return err
	}
	sig, err := signing.SignHash(string(payloadBytes), issuerPrivateKey)
	if err != nil {
		return err
	}
	t.Signature = sig
	t.Fingerprint = signing.Fingerprint(issuerPublicPEM)
	return nil
}

// Attenuate derives a narrower token from parent. newCapabilities must
// each be matched by some capability parent already holds; ttl, if
// nonzero, shortens the child's lifetime but can never extend it past
// parent.ExpiresAt.
func Attenuate(parent *Token, newCapabilities []string, ttl time.Duration, issuerPrivateKey, issuerPublicPEM []byte) (*Token, error) {
	for _, want := range newCapabilities {
		if err := Validate(want); err != nil {
			return nil, err
		}
		covered := false
		for _, have := range parent.Capabilities {
			if Matches(have, want) || have == want {
				covered = true
				break
			}
		}
		if !covered {
			return nil, &coreerrors.CapabilityDenied{Requested: want, Granted: parent.Capabilities}
		}
	}

	expiresAt := parent.ExpiresAt
	if ttl > 0 {
		candidate := time.Now().UTC().Add(ttl)
		if candidate.Before(expiresAt) {
			expiresAt = candidate
		}
	}

	parentHash, err := parent.Hash()
	if err != nil {
		return nil, err
	}

	child := &Token{
		Subject:      parent.Subject,
		Capabilities: newCapabilities,
		IssuedAt:     time.Now().UTC(),
		ExpiresAt:    expiresAt,
		ParentHash:   parentHash,
	}

	if err := signToken(child, issuerPrivateKey, issuerPublicPEM); err != nil {
		return nil, err
	}
	return child, nil
}

// TrustedKeys resolves a fingerprint to the public PEM of a key Verify
// should accept as an issuer. Callers typically back this with a
// trust.Store.
type TrustedKeys interface {
	GetKey(fingerprint string) []byte
}

// Verify checks token's expiry and signature. A ParentHash is covered by
// the signature but is not compared with any parent here; VerifyChain
// does that check for one parent link.
func Verify(token *Token, now time.Time, trusted TrustedKeys) error {
	if now.After(token.ExpiresAt) {
		return &coreerrors.TokenExpired{TokenID: token.Fingerprint, ExpiredAt: token.ExpiresAt.Format(time.RFC3339)}
	}

	publicKey := trusted.GetKey(token.Fingerprint)
	if publicKey == nil {
		return &coreerrors.UntrustedKey{Path: token.Subject, Fingerprint: token.Fingerprint}
	}

	payloadBytes, err := canon.Marshal(token.payload(), canon.V1)
	if err != nil {
		return err
	}
	if !signing.VerifySignature(string(payloadBytes), token.Signature, publicKey) {
		return &coreerrors.SignatureInvalid{Path: token.Subject, Fingerprint: token.Fingerprint}
	}

	return nil
}

// VerifyChain verifies token and, if it is attenuated, confirms its
// ParentHash matches parent.Hash() and that parent itself verifies. It
// checks one level only: parent's own ParentHash, if any, is not followed.
// Both tokens must be signed by a key in trusted.
func VerifyChain(token *Token, parent *Token, now time.Time, trusted TrustedKeys) error {
	if err := Verify(token, now, trusted); err != nil {
		return err
	}
	if token.ParentHash == "" {
		return nil
	}
	if parent == nil {
		return fmt.Errorf("capability: attenuated token %s has no parent to verify against", token.Fingerprint)
	}
	parentHash, err := parent.Hash()
	if err != nil {
		return err
	}
	if parentHash != token.ParentHash {
		return &coreerrors.HashMismatch{Path: token.Subject, Expected: token.ParentHash, Actual: parentHash}
	}
	return Verify(parent, now, trusted)
}

// Check verifies token and reports whether its expanded capability set
// grants required.
func Check(token *Token, required string, now time.Time, trusted TrustedKeys, hierarchy Hierarchy) (bool, error) {
	if err := Verify(token, now, trusted); err != nil {
		return false, err
	}
	granted := hierarchy.Expand(token.Capabilities)
	for _, g := range granted {
		if Matches(g, required) || g == required {
			return true, nil
		}
	}
	return false, nil
}
