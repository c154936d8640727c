package resolver

import (
	"os"
	"path/filepath"
	"testing"

	coreerrors "github.com/ryeos/ryekernel/internal/errors"
	"github.com/ryeos/ryekernel/internal/extractor"
	"github.com/ryeos/ryekernel/internal/item"
)

func writeItem(t *testing.T, root, typeDir, logicalID, ext, content string) {
	t.Helper()
	path := filepath.Join(root, ".ai", typeDir, logicalID+ext)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestResolve_ProjectBeatsUserBeatsSystem(t *testing.T) {
	project, user, system := t.TempDir(), t.TempDir(), t.TempDir()
	writeItem(t, project, "tools", "rye/core/x", ".py", "project")
	writeItem(t, user, "tools", "rye/core/x", ".py", "user")
	writeItem(t, system, "tools", "rye/core/x", ".py", "system")

	r := New(project, user, []Bundle{{ID: "b1", Root: system, AcceptedCategories: []string{"rye/*"}}}, extractor.New())

	path, space, err := r.Resolve(item.TypeTool, "rye/core/x")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if space.Tier != item.TierProject {
		t.Errorf("expected project tier to win, got %s", space.Tier)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "project" {
		t.Errorf("resolved wrong file content: %s", data)
	}
}

func TestResolve_FallsThroughTiers(t *testing.T) {
	project, user, system := t.TempDir(), t.TempDir(), t.TempDir()
	writeItem(t, user, "tools", "rye/core/x", ".py", "user")
	writeItem(t, system, "tools", "rye/core/x", ".py", "system")

	r := New(project, user, []Bundle{{ID: "b1", Root: system, AcceptedCategories: []string{"rye/*"}}}, extractor.New())

	_, space, err := r.Resolve(item.TypeTool, "rye/core/x")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if space.Tier != item.TierUser {
		t.Errorf("expected user tier once project is absent, got %s", space.Tier)
	}
}

func TestResolve_ItemNotFound(t *testing.T) {
	r := New(t.TempDir(), t.TempDir(), nil, extractor.New())
	_, _, err := r.Resolve(item.TypeTool, "nope/nope")
	var notFound *coreerrors.ItemNotFound
	if err == nil {
		t.Fatal("expected ItemNotFound")
	}
	if e, ok := err.(*coreerrors.ItemNotFound); !ok {
		t.Fatalf("expected *errors.ItemNotFound, got %T", err)
	} else {
		notFound = e
	}
	if notFound.LogicalID != "nope/nope" {
		t.Errorf("unexpected LogicalID: %s", notFound.LogicalID)
	}
}

func TestResolve_BundleRejectsOutsideCategory(t *testing.T) {
	system := t.TempDir()
	writeItem(t, system, "tools", "other/x", ".py", "system")

	r := New(t.TempDir(), t.TempDir(), []Bundle{{ID: "b1", Root: system, AcceptedCategories: []string{"rye/*"}}}, extractor.New())
	_, _, err := r.Resolve(item.TypeTool, "other/x")
	if err == nil {
		t.Fatal("expected ItemNotFound: bundle does not accept this category")
	}
}

func TestWritePath_RejectsSystemScope(t *testing.T) {
	r := New(t.TempDir(), t.TempDir(), nil, extractor.New())
	_, err := r.WritePath(item.TypeTool, "a/b", item.TierSystem)
	if err == nil {
		t.Fatal("expected error writing to system tier")
	}
}

func TestNormalizeScope(t *testing.T) {
	cases := []struct {
		in         string
		wantType   item.Type
		wantPrefix string
	}{
		{"directive", item.TypeDirective, ""},
		{"tool.rye.core.*", item.TypeTool, "rye/core"},
		{"knowledge.a.b", item.TypeKnowledge, "a/b"},
	}
	for _, c := range cases {
		q := NormalizeScope(c.in)
		if q.ItemType != c.wantType || q.Prefix != c.wantPrefix {
			t.Errorf("NormalizeScope(%q) = {%s, %s}, want {%s, %s}", c.in, q.ItemType, q.Prefix, c.wantType, c.wantPrefix)
		}
	}
}

func TestQuery_Matches(t *testing.T) {
	q := NormalizeScope("tool.rye.core.*")
	if !q.Matches("rye/core/x") {
		t.Error("expected match for prefixed id")
	}
	if q.Matches("other/x") {
		t.Error("expected no match outside prefix")
	}
}
