// Package errors defines the closed set of error kinds the trust engine can
// return. Callers use errors.As against the concrete type to recover
// structured context instead of matching on message text.
package errors

import "fmt"

// Kind identifies one of the error kinds in the taxonomy.
type Kind string

const (
	KindUnsigned            Kind = "unsigned"
	KindHashMismatch        Kind = "hash_mismatch"
	KindUntrustedKey        Kind = "untrusted_key"
	KindSignatureInvalid    Kind = "signature_invalid"
	KindItemNotFound        Kind = "item_not_found"
	KindExecutorNotFound    Kind = "executor_not_found"
	KindCircularDependency  Kind = "circular_dependency"
	KindChainTooDeep        Kind = "chain_too_deep"
	KindValidationFailed    Kind = "validation_failed"
	KindInvalidJSON         Kind = "invalid_json"
	KindInvalidLockfile     Kind = "invalid_lockfile"
	KindCapabilityDenied    Kind = "capability_denied"
	KindTokenExpired        Kind = "token_expired"
	KindBundleInstallFailed Kind = "bundle_install_failed"
	KindConstraintDenied    Kind = "constraint_denied"
)

// CoreError is satisfied by every error kind below.
type CoreError interface {
	error
	Kind() Kind
}

// Unsigned is returned when an item carries no embedded signature line.
type Unsigned struct {
	Path string
}

func (e *Unsigned) Error() string { return fmt.Sprintf("unsigned: %s carries no signature line", e.Path) }
func (e *Unsigned) Kind() Kind    { return KindUnsigned }

// HashMismatch is returned when the recomputed content hash does not match
// the hash embedded in the signature line.
type HashMismatch struct {
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatch) Error() string {
	return fmt.Sprintf("hash mismatch: %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}
func (e *HashMismatch) Kind() Kind { return KindHashMismatch }

// UntrustedKey is returned when the signature's fingerprint has no matching
// entry in the trust store.
type UntrustedKey struct {
	Path        string
	Fingerprint string
}

func (e *UntrustedKey) Error() string {
	return fmt.Sprintf("untrusted key: %s: fingerprint %s is not in the trust store", e.Path, e.Fingerprint)
}
func (e *UntrustedKey) Kind() Kind { return KindUntrustedKey }

// SignatureInvalid is returned when the Ed25519 signature does not verify
// against the recovered public key.
type SignatureInvalid struct {
	Path        string
	Fingerprint string
}

func (e *SignatureInvalid) Error() string {
	return fmt.Sprintf("signature invalid: %s (key %s)", e.Path, e.Fingerprint)
}
func (e *SignatureInvalid) Kind() Kind { return KindSignatureInvalid }

// ItemNotFound is returned when no tier/extension combination resolves a
// logical id.
type ItemNotFound struct {
	LogicalID string
	ItemType  string
}

func (e *ItemNotFound) Error() string {
	return fmt.Sprintf("item not found: %s/%s", e.ItemType, e.LogicalID)
}
func (e *ItemNotFound) Kind() Kind { return KindItemNotFound }

// ExecutorNotFound is returned when an executor_id reference does not
// resolve to any tool, nor is a recognized primitive.
type ExecutorNotFound struct {
	ExecutorID string
	FromToolID string
}

func (e *ExecutorNotFound) Error() string {
	return fmt.Sprintf("executor not found: %s (referenced from %s)", e.ExecutorID, e.FromToolID)
}
func (e *ExecutorNotFound) Kind() Kind { return KindExecutorNotFound }

// CircularDependency is returned when resolving a chain revisits a tool id
// already on the walk.
type CircularDependency struct {
	ToolID string
	Chain  []string
}

func (e *CircularDependency) Error() string {
	return fmt.Sprintf("circular executor dependency at %s: chain %v", e.ToolID, e.Chain)
}
func (e *CircularDependency) Kind() Kind { return KindCircularDependency }

// ChainTooDeep is returned when a chain walk exceeds the configured maximum
// depth without reaching a primitive.
type ChainTooDeep struct {
	ToolID   string
	MaxDepth int
}

func (e *ChainTooDeep) Error() string {
	return fmt.Sprintf("executor chain from %s exceeds max depth %d", e.ToolID, e.MaxDepth)
}
func (e *ChainTooDeep) Kind() Kind { return KindChainTooDeep }

// ValidationFailed is returned when an extracted item fails its type's
// validation schema.
type ValidationFailed struct {
	Path   string
	Field  string
	Reason string
}

func (e *ValidationFailed) Error() string {
	return fmt.Sprintf("validation failed: %s: field %q: %s", e.Path, e.Field, e.Reason)
}
func (e *ValidationFailed) Kind() Kind { return KindValidationFailed }

// InvalidJSON is returned when a document cannot be parsed as JSON.
type InvalidJSON struct {
	Path  string
	Cause error
}

func (e *InvalidJSON) Error() string { return fmt.Sprintf("invalid json: %s: %v", e.Path, e.Cause) }
func (e *InvalidJSON) Kind() Kind    { return KindInvalidJSON }
func (e *InvalidJSON) Unwrap() error { return e.Cause }

// InvalidLockfile is returned when a lockfile is missing a required field
// or has a malformed structure.
type InvalidLockfile struct {
	Path   string
	Reason string
}

func (e *InvalidLockfile) Error() string {
	return fmt.Sprintf("invalid lockfile: %s: %s", e.Path, e.Reason)
}
func (e *InvalidLockfile) Kind() Kind { return KindInvalidLockfile }

// CapabilityDenied is returned when a token does not grant a requested
// capability.
type CapabilityDenied struct {
	Requested string
	Granted   []string
}

func (e *CapabilityDenied) Error() string {
	return fmt.Sprintf("capability denied: %s not covered by %v", e.Requested, e.Granted)
}
func (e *CapabilityDenied) Kind() Kind { return KindCapabilityDenied }

// TokenExpired is returned when a capability token's TTL has elapsed.
type TokenExpired struct {
	TokenID   string
	ExpiredAt string
}

func (e *TokenExpired) Error() string {
	return fmt.Sprintf("token expired: %s at %s", e.TokenID, e.ExpiredAt)
}
func (e *TokenExpired) Kind() Kind { return KindTokenExpired }

// BundleInstallFailed is returned when a system-tier bundle could not be
// pulled or verified from its OCI source.
type BundleInstallFailed struct {
	Ref   string
	Cause error
}

func (e *BundleInstallFailed) Error() string {
	return fmt.Sprintf("bundle install failed: %s: %v", e.Ref, e.Cause)
}
func (e *BundleInstallFailed) Kind() Kind { return KindBundleInstallFailed }
func (e *BundleInstallFailed) Unwrap() error { return e.Cause }

// ConstraintDenied is returned when a CEL constraint attached to a field or
// capability evaluates to false (or errors, or returns a non-boolean).
type ConstraintDenied struct {
	Subject    string
	Expression string
}

func (e *ConstraintDenied) Error() string {
	return fmt.Sprintf("constraint denied: %s: %q", e.Subject, e.Expression)
}
func (e *ConstraintDenied) Kind() Kind { return KindConstraintDenied }
