// Package manifest handles mmout.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "mmout.toml"

// Manifest represents an mmout.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Dependencies map[string]Dependency `toml:"dependencies"`
	Output       OutputConfig          `toml:"output"`
	Store        StoreConfig           `toml:"store"`
	Log          LogConfig             `toml:"log"`

	// Dir is the directory containing the mmout.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name     string   `toml:"name"`
	Theories []string `toml:"theories"`
}

// Dependency is another project whose theories are loaded first.
type Dependency struct {
	Path string `toml:"path"`
}

// OutputConfig configures where output bytes go.
type OutputConfig struct {
	File string `toml:"file"` // empty: stdout
}

// StoreConfig configures the trace database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // empty: stderr
}

// Load parses an mmout.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Project.Theories) == 0 {
		m.Project.Theories = []string{"theory.toml"}
	}
	if m.Store.Path == "" {
		m.Store.Path = filepath.Join(".mmout", "trace.db")
	}
	if m.Log.Level == "" {
		m.Log.Level = "warning"
	}
	if _, err := ParseLevel(m.Log.Level); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an mmout.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// TheoryPaths returns absolute paths for the project's own theory files.
func (m *Manifest) TheoryPaths() []string {
	var paths []string
	for _, t := range m.Project.Theories {
		paths = append(paths, m.resolve(t))
	}
	return paths
}

// StorePath returns the absolute path of the trace database.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Store.Path)
}

// OutputPath returns the absolute output file path, or "" for stdout.
func (m *Manifest) OutputPath() string {
	if m.Output.File == "" {
		return ""
	}
	return m.resolve(m.Output.File)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// levels maps level names to commonlog verbosity; commonlog shows
// Notice and above at verbosity 0.
var levels = map[string]int{
	"none":     -4,
	"critical": -3,
	"error":    -2,
	"warning":  -1,
	"notice":   0,
	"info":     1,
	"debug":    2,
}

// ParseLevel converts a level name to a commonlog verbosity.
func ParseLevel(name string) (int, error) {
	v, ok := levels[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return v, nil
}

// Verbosity returns the configured log verbosity.
func (m *Manifest) Verbosity() int {
	v, _ := ParseLevel(m.Log.Level)
	return v
}
