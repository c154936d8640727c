package trust

import (
	"path/filepath"
	"testing"

	"github.com/ryeos/ryekernel/internal/signing"
)

func genPEM(t *testing.T) []byte {
	t.Helper()
	kp, err := signing.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp.PublicPEM
}

func TestAddKey_ThenIsTrusted(t *testing.T) {
	s := New(t.TempDir())
	pem := genPEM(t)

	fp, err := s.AddKey(pem)
	if err != nil {
		t.Fatalf("AddKey: %v", err)
	}
	if !s.IsTrusted(fp) {
		t.Error("expected key to be trusted after AddKey")
	}
	if got := s.GetKey(fp); string(got) != string(pem) {
		t.Error("GetKey returned different bytes than were added")
	}
}

func TestIsTrusted_UnknownFingerprint(t *testing.T) {
	s := New(t.TempDir())
	if s.IsTrusted("0000000000000000") {
		t.Error("unknown fingerprint must not be trusted")
	}
}

func TestRemoveKey(t *testing.T) {
	s := New(t.TempDir())
	pem := genPEM(t)
	fp, err := s.AddKey(pem)
	if err != nil {
		t.Fatalf("AddKey: %v", err)
	}

	removed, err := s.RemoveKey(fp)
	if err != nil || !removed {
		t.Fatalf("RemoveKey = %v, %v, want true, nil", removed, err)
	}
	if s.IsTrusted(fp) {
		t.Error("expected key to no longer be trusted after removal")
	}

	removedAgain, err := s.RemoveKey(fp)
	if err != nil || removedAgain {
		t.Fatalf("RemoveKey (second call) = %v, %v, want false, nil", removedAgain, err)
	}
}

func TestPinRegistryKey_IsTOFU(t *testing.T) {
	s := New(t.TempDir())
	pem1 := genPEM(t)
	pem2 := genPEM(t)

	fp1, err := s.PinRegistryKey(pem1)
	if err != nil {
		t.Fatalf("PinRegistryKey (first): %v", err)
	}

	fp2, err := s.PinRegistryKey(pem2)
	if err != nil {
		t.Fatalf("PinRegistryKey (second): %v", err)
	}

	if fp1 != fp2 {
		t.Errorf("second pin must be a no-op returning the first fingerprint: got %s, want %s", fp2, fp1)
	}
	if string(s.GetRegistryKey()) != string(pem1) {
		t.Error("registry key was overwritten by second PinRegistryKey call")
	}
}

func TestIsTrusted_MatchesRegistryKeyFingerprint(t *testing.T) {
	s := New(t.TempDir())
	pem := genPEM(t)
	fp, err := s.PinRegistryKey(pem)
	if err != nil {
		t.Fatalf("PinRegistryKey: %v", err)
	}
	if !s.IsTrusted(fp) {
		t.Error("fingerprint of the pinned registry key must be trusted, even with no named {fp}.pem file")
	}
}

func TestList_IncludesRegistryFlag(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	peerPEM := genPEM(t)
	registryPEM := genPEM(t)

	if _, err := s.AddKey(peerPEM); err != nil {
		t.Fatalf("AddKey: %v", err)
	}
	if _, err := s.PinRegistryKey(registryPEM); err != nil {
		t.Fatalf("PinRegistryKey: %v", err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	var sawRegistry bool
	for _, e := range entries {
		if e.IsRegistry {
			sawRegistry = true
			if filepath.Base(e.Path) != RegistryKeyName {
				t.Errorf("registry entry path = %s, want basename %s", e.Path, RegistryKeyName)
			}
		}
	}
	if !sawRegistry {
		t.Error("expected one entry flagged IsRegistry")
	}
}

func TestList_EmptyStore(t *testing.T) {
	s := New(t.TempDir())
	entries, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
