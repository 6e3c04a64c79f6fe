package yamlfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeChecklist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checklist.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadParsesProcessMapping(t *testing.T) {
	path := writeChecklist(t, `
Company Incorporation:
  - Articles of Association
  - Memorandum of Association
  - Incorporation Application Form
Licensing:
  - Incorporation Application Form
`)

	mapping, err := New(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(mapping) != 2 {
		t.Fatalf("processes = %d, want 2", len(mapping))
	}
	required := mapping["Company Incorporation"]
	if len(required) != 3 {
		t.Fatalf("required = %v", required)
	}
	if required[0] != "Articles of Association" {
		t.Fatalf("first requirement = %q", required[0])
	}
}

func TestLoadRejectsEmptyProcess(t *testing.T) {
	path := writeChecklist(t, `
Company Incorporation: []
`)
	if _, err := New(path).Load(); err == nil {
		t.Fatalf("expected error for empty requirement list")
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope.yaml")).Load(); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
