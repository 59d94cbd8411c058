package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/garnet/vm"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "test-app"
image = "build/test.gimg"
store = "images.db"

[vm]
strict-ivars = false
trace = true
max-depth = 500
stack-size = 64

[log]
verbosity = 2
file = "garnet.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.VM.StrictIvars {
		t.Error("strict-ivars = true, want false")
	}
	if !m.VM.Trace {
		t.Error("trace = false, want true")
	}
	if m.VM.MaxDepth != 500 || m.VM.StackSize != 64 {
		t.Errorf("max-depth, stack-size = %d, %d; want 500, 64", m.VM.MaxDepth, m.VM.StackSize)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", m.Log.Verbosity)
	}
	if got := m.ImagePath(); got != filepath.Join(m.Dir, "build", "test.gimg") {
		t.Errorf("ImagePath() = %q", got)
	}
	if got := m.StorePath(); got != filepath.Join(m.Dir, "images.db") {
		t.Errorf("StorePath() = %q", got)
	}
	if p := m.LogPath(); p == nil || *p != filepath.Join(m.Dir, "garnet.log") {
		t.Errorf("LogPath() = %v", p)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	d := vm.DefaultConfig()
	c := m.VMConfig()
	if c.StrictIvars != d.StrictIvars || c.MaxDepth != d.MaxDepth || c.StackSize != d.StackSize || c.Trace {
		t.Errorf("VMConfig() = %+v, want defaults %+v", c, d)
	}
	if m.ImagePath() != "" {
		t.Errorf("ImagePath() = %q, want empty", m.ImagePath())
	}
	if m.LogPath() != nil {
		t.Errorf("LogPath() = %q, want nil", *m.LogPath())
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[project\nname = 1", "parse error"},
		{"unknown key", "[vm]\nturbo = true\n", "unknown key"},
		{"wrong type", "[vm]\nmax-depth = \"deep\"\n", "parse error"},
		{"negative depth", "[vm]\nmax-depth = -1\n", "max-depth"},
	}
	for _, tt := range tests {
		dir := t.TempDir()
		writeManifest(t, dir, tt.content)
		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error = %v, want one containing %q", tt.name, err, tt.want)
		}
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load without a manifest succeeded")
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no garnet.toml exists")
	}
}
