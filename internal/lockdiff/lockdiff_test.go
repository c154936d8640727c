package lockdiff

import (
	"testing"

	"github.com/ryeos/ryekernel/internal/lockfile"
)

func baseLockfile() *lockfile.Lockfile {
	return &lockfile.Lockfile{
		LockfileVersion: 1,
		GeneratedAt:     "2026-01-01T00:00:00Z",
		Root:            lockfile.Root{ToolID: "t", Version: "1.0.0", Integrity: "sha256:aaa"},
		ResolvedChain: []interface{}{
			map[string]interface{}{"executor_id": "rye.core.python", "integrity": "sha256:bbb"},
		},
	}
}

func TestCompare_NoChanges(t *testing.T) {
	saved := baseLockfile()
	current := baseLockfile()
	current.GeneratedAt = "2026-07-31T00:00:00Z" // timestamps always differ; must not count as drift

	report, err := Compare(saved, current)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if report.HasChanges {
		t.Errorf("expected no changes, got %+v", report.Changes)
	}
}

func TestCompare_IntegrityChangeIsCritical(t *testing.T) {
	saved := baseLockfile()
	current := baseLockfile()
	current.Root.Integrity = "sha256:ccc"

	report, err := Compare(saved, current)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !report.HasChanges {
		t.Fatal("expected a change")
	}
	found := false
	for _, c := range report.Changes {
		if c.Severity == SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a critical change, got %+v", report.Changes)
	}
}

func TestCompare_ChainEntryReplacedIsCritical(t *testing.T) {
	saved := baseLockfile()
	current := baseLockfile()
	current.ResolvedChain = []interface{}{
		map[string]interface{}{"executor_id": "rye.core.python", "integrity": "sha256:different"},
	}

	report, err := Compare(saved, current)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !report.HasChanges {
		t.Fatal("expected a change")
	}
	for _, c := range report.Changes {
		if c.Severity != SeverityCritical {
			t.Errorf("expected every resolved_chain change to be critical, got %+v", c)
		}
	}
}

func TestCompare_RegistryChangeIsSafe(t *testing.T) {
	saved := baseLockfile()
	saved.Registry = map[string]interface{}{"url": "https://old.example"}
	current := baseLockfile()
	current.Registry = map[string]interface{}{"url": "https://new.example"}

	report, err := Compare(saved, current)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !report.HasChanges {
		t.Fatal("expected a change")
	}
	for _, c := range report.Changes {
		if c.Severity != SeveritySafe {
			t.Errorf("expected registry-only change to be safe, got %+v", c)
		}
	}
}

func TestSeverityString(t *testing.T) {
	cases := map[Severity]string{SeveritySafe: "safe", SeverityModerate: "moderate", SeverityCritical: "critical"}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Errorf("Severity(%d).String() = %q, want %q", sev, got, want)
		}
	}
}
