package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, `
[project]
name = "sorter"

[build]
output_dir = "out"
format = "cbor"
cache = false
cache_path = "tmp/objects.db"

[server]
port = 9000
timeout_ms = 250
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "sorter" {
		t.Errorf("project name = %q, want sorter", m.Project.Name)
	}
	if m.Build.Format != FormatCBOR {
		t.Errorf("build format = %q, want cbor", m.Build.Format)
	}
	if m.Build.Cache {
		t.Error("build cache = true, want false")
	}
	if m.Server.Port != 9000 {
		t.Errorf("server port = %d, want 9000", m.Server.Port)
	}
	if m.Timeout() != 250*time.Millisecond {
		t.Errorf("timeout = %v, want 250ms", m.Timeout())
	}
	if m.Path != filepath.Join(m.Dir, TOMLFile) {
		t.Errorf("path = %q", m.Path)
	}
	if got := m.CacheFile(); got != filepath.Join(m.Dir, "tmp", "objects.db") {
		t.Errorf("cache file = %q", got)
	}
	if got := m.OutputFile("src/sort.pas"); got != filepath.Join(m.Dir, "out", "sort.pobj") {
		t.Errorf("output file = %q", got)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Build.Format != FormatText {
		t.Errorf("default format = %q, want text", m.Build.Format)
	}
	if !m.Build.Cache {
		t.Error("cache should default to enabled")
	}
	if m.Server.Port != 8547 || m.Server.TimeoutMS != 5000 {
		t.Errorf("default server = %+v", m.Server)
	}
	if got := m.OutputFile("demo.pas"); got != "demo.tac" {
		t.Errorf("output file = %q, want demo.tac", got)
	}
}

func TestLoadYAMLFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, YAMLFile, `
project:
  name: yaml-project
build:
  format: CBOR
server:
  port: 7000
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Project.Name != "yaml-project" {
		t.Errorf("project name = %q", m.Project.Name)
	}
	if m.Build.Format != FormatCBOR {
		t.Errorf("format = %q, want cbor", m.Build.Format)
	}
	if m.Server.Port != 7000 {
		t.Errorf("port = %d", m.Server.Port)
	}
	if !m.Build.Cache {
		t.Error("cache default lost")
	}
}

func TestLoadPrefersTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, "[project]\nname = \"from-toml\"\n")
	writeFile(t, dir, YAMLFile, "project:\n  name: from-yaml\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Project.Name != "from-toml" {
		t.Errorf("project name = %q, want from-toml", m.Project.Name)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, file, content, want string
	}{
		{"bad toml", TOMLFile, "[project\n", "parse error"},
		{"bad yaml", YAMLFile, "project: [\n", "parse error"},
		{"bad format", TOMLFile, "[build]\nformat = \"elf\"\n", "build.format"},
		{"bad port", TOMLFile, "[server]\nport = 70000\n", "server.port"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tc.file, tc.content)
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("got %v, want error containing %q", err, tc.want)
			}
		})
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for a directory without a manifest")
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, TOMLFile, "[project]\nname = \"found-project\"\n")

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
		t.Error("expected nil manifest when no pasc.toml exists")
	}
}

func TestDefaultOutputDirRelative(t *testing.T) {
	m := Default()
	m.Dir = "/app"
	m.Build.OutputDir = "build"
	if got := m.OutputFile("/src/x.pas"); got != filepath.Join("/app", "build", "x.tac") {
		t.Errorf("output file = %q", got)
	}
}
