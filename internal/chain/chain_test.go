package chain

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ryeos/ryekernel/internal/canon"
	coreerrors "github.com/ryeos/ryekernel/internal/errors"
	"github.com/ryeos/ryekernel/internal/extractor"
	"github.com/ryeos/ryekernel/internal/integrity"
	"github.com/ryeos/ryekernel/internal/resolver"
	"github.com/ryeos/ryekernel/internal/signing"
	"github.com/ryeos/ryekernel/internal/sigline"
	"github.com/ryeos/ryekernel/internal/trust"
)

var toolFormat = sigline.Format{Prefix: "#", AfterShebang: true}

type harness struct {
	root string
	kp   *signing.KeyPair
	v    *Validator
}

func newHarness(t *testing.T, maxDepth int) *harness {
	t.Helper()
	kp, err := signing.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	ts := trust.New(t.TempDir())
	if _, err := ts.AddKey(kp.PublicPEM); err != nil {
		t.Fatalf("AddKey: %v", err)
	}
	root := t.TempDir()
	extractors := extractor.New()
	res := resolver.New(root, t.TempDir(), nil, extractors)
	verifier := integrity.New(extractors, ts)
	return &harness{root: root, kp: kp, v: New(res, extractors, verifier, maxDepth)}
}

func (h *harness) writeTool(t *testing.T, id, executorID string) {
	t.Helper()
	body := []byte(fmt.Sprintf("__version__ = \"1.0.0\"\n__category__ = \"%s\"\n__tool_description__ = \"d\"\n__executor_id__ = %s\n", id, pyLiteral(executorID)))
	hash := canon.HashBytes(body)
	sig, err := signing.SignHash(hash, h.kp.PrivatePEM)
	if err != nil {
		t.Fatalf("SignHash: %v", err)
	}
	info := sigline.Info{Kind: sigline.KindSigned, Timestamp: "2026-01-01T00:00:00Z", ContentHash: hash, Signature: sig, Fingerprint: signing.Fingerprint(h.kp.PublicPEM)}
	signed := sigline.Embed(body, toolFormat, info)

	path := filepath.Join(h.root, ".ai", "tools", id+".py")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, signed, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func pyLiteral(s string) string {
	if s == "" {
		return "None"
	}
	return fmt.Sprintf("%q", s)
}

func TestValidate_TerminatesAtPrimitive(t *testing.T) {
	h := newHarness(t, 8)
	h.writeTool(t, "a", "b")
	h.writeTool(t, "b", "c")
	h.writeTool(t, "c", PrimitivePrefix+"subprocess")

	links, err := h.v.Validate("a")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("expected chain of length 3, got %d", len(links))
	}
	if links[2].ExecutorID != PrimitivePrefix+"subprocess" {
		t.Errorf("expected last link's executor id to be the primitive, got %s", links[2].ExecutorID)
	}
}

func TestValidate_CircularDependency(t *testing.T) {
	h := newHarness(t, 8)
	h.writeTool(t, "a", "b")
	h.writeTool(t, "b", "a")

	_, err := h.v.Validate("a")
	circ, ok := err.(*coreerrors.CircularDependency)
	if !ok {
		t.Fatalf("expected CircularDependency, got %v (%T)", err, err)
	}
	if circ.ToolID != "a" {
		t.Errorf("expected cycle detected at 'a', got %s", circ.ToolID)
	}
}

func TestValidate_ChainTooDeep(t *testing.T) {
	h := newHarness(t, 2)
	h.writeTool(t, "a", "b")
	h.writeTool(t, "b", "c")
	h.writeTool(t, "c", "d")
	h.writeTool(t, "d", PrimitivePrefix+"subprocess")

	_, err := h.v.Validate("a")
	if _, ok := err.(*coreerrors.ChainTooDeep); !ok {
		t.Fatalf("expected ChainTooDeep, got %v (%T)", err, err)
	}
}

func TestValidate_ExecutorNotFound(t *testing.T) {
	h := newHarness(t, 8)
	h.writeTool(t, "a", "missing")

	_, err := h.v.Validate("a")
	if _, ok := err.(*coreerrors.ExecutorNotFound); !ok {
		t.Fatalf("expected ExecutorNotFound, got %v (%T)", err, err)
	}
}

func TestIsPrimitive(t *testing.T) {
	if !IsPrimitive(PrimitivePrefix + "subprocess") {
		t.Error("expected primitive prefix to be recognized")
	}
	if IsPrimitive("rye/core/tools/other") {
		t.Error("did not expect a non-primitive id to be recognized")
	}
}
