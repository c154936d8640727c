package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ryeos/ryekernel/internal/extractor"
	"github.com/ryeos/ryekernel/internal/item"
	"github.com/ryeos/ryekernel/internal/signing"
	"github.com/ryeos/ryekernel/internal/trust"
)

func newManager(t *testing.T) (*Manager, *signing.KeyPair) {
	t.Helper()
	kp, err := signing.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	ts := trust.New(t.TempDir())
	if _, err := ts.AddKey(kp.PublicPEM); err != nil {
		t.Fatalf("AddKey: %v", err)
	}
	return New(extractor.New(), ts), kp
}

func TestSignThenVerify(t *testing.T) {
	m, kp := newManager(t)
	body := []byte("__version__ = \"1.0.0\"\n__category__ = \"rye/core\"\n__tool_description__ = \"d\"\n")

	signed, err := m.Sign(body, "rye/core/x.py", item.TypeTool, kp.PrivatePEM, kp.PublicPEM, "2026-01-01T00:00:00Z", nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	hash, err := m.Verify(signed, "rye/core/x.py", item.TypeTool, nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if hash == "" {
		t.Error("expected non-empty content hash")
	}
}

func TestSignFile_RoundTrip(t *testing.T) {
	m, kp := newManager(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "x.py")
	body := []byte("__version__ = \"1.0.0\"\n__category__ = \"rye/core\"\n__tool_description__ = \"d\"\n")
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := m.SignFile(path, item.TypeTool, kp.PrivatePEM, kp.PublicPEM, "2026-01-01T00:00:00Z", nil); err != nil {
		t.Fatalf("SignFile: %v", err)
	}

	if _, err := m.VerifyFile(path, item.TypeTool, nil); err != nil {
		t.Fatalf("VerifyFile: %v", err)
	}
}

func TestExtractSignature(t *testing.T) {
	m, kp := newManager(t)
	body := []byte("__version__ = \"1.0.0\"\n__category__ = \"rye/core\"\n__tool_description__ = \"d\"\n")
	signed, err := m.Sign(body, "x.py", item.TypeTool, kp.PrivatePEM, kp.PublicPEM, "2026-01-01T00:00:00Z", nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	info, err := m.ExtractSignature(signed, item.TypeTool, "x.py", nil)
	if err != nil {
		t.Fatalf("ExtractSignature: %v", err)
	}
	if info.Fingerprint != signing.Fingerprint(kp.PublicPEM) {
		t.Errorf("unexpected fingerprint: %s", info.Fingerprint)
	}
}

func TestExtractSignature_Unsigned(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.ExtractSignature([]byte("no signature here\n"), item.TypeTool, "x.py", nil)
	if err == nil {
		t.Fatal("expected an error for unsigned content")
	}
}
