package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderDefaultAnalysis(t *testing.T) {
	m := NewManager("")
	out, err := m.Render(Analysis, map[string]string{
		"user_message": "list files",
		"tools_desc":   "- list_directory(path): list a directory",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "list files") {
		t.Error("rendered prompt missing user message")
	}
	if !strings.Contains(out, "list_directory") {
		t.Error("rendered prompt missing tool catalog")
	}
	if strings.Contains(out, "{{user_message}}") {
		t.Error("placeholder left unsubstituted")
	}
}

func TestDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	custom := "Custom template: {{user_message}}"
	if err := os.WriteFile(filepath.Join(dir, "analysis.md"), []byte(custom), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir)
	out, err := m.Render(Analysis, map[string]string{"user_message": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Custom template: hi" {
		t.Errorf("override not applied, got: %s", out)
	}
}

func TestUnknownTemplate(t *testing.T) {
	m := NewManager("")
	if _, err := m.Get("no_such_template"); err == nil {
		t.Error("expected error for unknown template")
	}
}
