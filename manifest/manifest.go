// Package manifest handles pasc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File names searched for, in order of preference.
const (
	TOMLFile = "pasc.toml"
	YAMLFile = "pasc.yaml"
)

// Output formats for compiled programs.
const (
	FormatText = "text"
	FormatCBOR = "cbor"
)

// Manifest represents a pasc.toml project configuration.
type Manifest struct {
	Project Project `toml:"project" yaml:"project"`
	Build   Build   `toml:"build" yaml:"build"`
	Server  Server  `toml:"server" yaml:"server"`

	// Dir is the directory containing the manifest file (set at load time).
	Dir string `toml:"-" yaml:"-"`
	// Path is the manifest file that was read.
	Path string `toml:"-" yaml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name" yaml:"name"`
}

// Build configures compilation output and caching.
type Build struct {
	OutputDir string `toml:"output_dir" yaml:"output_dir"`
	Format    string `toml:"format" yaml:"format"`
	Cache     bool   `toml:"cache" yaml:"cache"`
	CachePath string `toml:"cache_path" yaml:"cache_path"`
}

// Server configures pasc serve.
type Server struct {
	Port      int `toml:"port" yaml:"port"`
	TimeoutMS int `toml:"timeout_ms" yaml:"timeout_ms"`
}

// Default returns the configuration used when no manifest exists.
func Default() *Manifest {
	return &Manifest{
		Build: Build{
			Format:    FormatText,
			Cache:     true,
			CachePath: filepath.Join(".pasc", "cache.db"),
		},
		Server: Server{
			Port:      8547,
			TimeoutMS: 5000,
		},
	}
}

// Load parses the manifest in the given directory, preferring pasc.toml and
// falling back to pasc.yaml.
func Load(dir string) (*Manifest, error) {
	m := Default()

	path := filepath.Join(dir, TOMLFile)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	} else {
		path = filepath.Join(dir, YAMLFile)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s or %s in %s: %w", TOMLFile, YAMLFile, dir, err)
		}
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.Path = filepath.Join(m.Dir, filepath.Base(path))

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a manifest file, then loads
// and returns it. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range []string{TOMLFile, YAMLFile} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return Load(dir)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks field values that decoding cannot.
func (m *Manifest) Validate() error {
	m.Build.Format = strings.ToLower(m.Build.Format)
	switch m.Build.Format {
	case FormatText, FormatCBOR:
	default:
		return fmt.Errorf("build.format must be %q or %q, got %q", FormatText, FormatCBOR, m.Build.Format)
	}
	if m.Server.Port < 0 || m.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", m.Server.Port)
	}
	if m.Server.TimeoutMS < 0 {
		return fmt.Errorf("server.timeout_ms must not be negative")
	}
	return nil
}

// CacheFile returns the cache database path, resolved against the manifest
// directory.
func (m *Manifest) CacheFile() string {
	return m.resolve(m.Build.CachePath)
}

// OutputFile returns where the compiled form of src goes: next to src, or
// in the configured output directory, with an extension matching the
// output format.
func (m *Manifest) OutputFile(src string) string {
	ext := ".tac"
	if m.Build.Format == FormatCBOR {
		ext = ".pobj"
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ext
	if m.Build.OutputDir == "" {
		return filepath.Join(filepath.Dir(src), base)
	}
	return filepath.Join(m.resolve(m.Build.OutputDir), base)
}

// Timeout returns the per-request compile deadline.
func (m *Manifest) Timeout() time.Duration {
	return time.Duration(m.Server.TimeoutMS) * time.Millisecond
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
