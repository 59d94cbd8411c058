// Package manifest handles garnet.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/garnet/vm"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "garnet.toml"

// Manifest represents a garnet.toml project configuration.
type Manifest struct {
	Project Project  `toml:"project"`
	VM      VMConfig `toml:"vm"`
	Log     Log      `toml:"log"`

	// Dir is the directory containing the garnet.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Image string `toml:"image"`
	Store string `toml:"store"` // SQLite image store; Image names an entry in it when set
}

// VMConfig mirrors vm.Config.
type VMConfig struct {
	StrictIvars bool `toml:"strict-ivars"`
	Trace       bool `toml:"trace"`
	MaxDepth    int  `toml:"max-depth"`
	StackSize   int  `toml:"stack-size"`
}

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the manifest used when no garnet.toml exists.
func Default(dir string) *Manifest {
	d := vm.DefaultConfig()
	return &Manifest{
		VM: VMConfig{
			StrictIvars: d.StrictIvars,
			Trace:       d.Trace,
			MaxDepth:    d.MaxDepth,
			StackSize:   d.StackSize,
		},
		Dir: dir,
	}
}

// Load parses a garnet.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Decoding over the defaults keeps every key the file leaves out.
	m := Default(abs)
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}
	m.Dir = abs

	if m.VM.MaxDepth < 0 {
		return nil, fmt.Errorf("%s: max-depth must not be negative", path)
	}
	if m.VM.StackSize <= 0 {
		m.VM.StackSize = vm.DefaultConfig().StackSize
	}

	return m, nil
}

// FindAndLoad walks up from startDir to find a garnet.toml file,
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

// VMConfig converts the [vm] section to a vm.Config writing to stdout.
func (m *Manifest) VMConfig() vm.Config {
	c := vm.DefaultConfig()
	c.StrictIvars = m.VM.StrictIvars
	c.Trace = m.VM.Trace
	c.MaxDepth = m.VM.MaxDepth
	c.StackSize = m.VM.StackSize
	return c
}

// ImagePath returns the absolute path of the configured image, or "".
func (m *Manifest) ImagePath() string {
	if m.Project.Image == "" {
		return ""
	}
	if filepath.IsAbs(m.Project.Image) {
		return m.Project.Image
	}
	return filepath.Join(m.Dir, m.Project.Image)
}

// StorePath returns the absolute path of the image store, or "".
func (m *Manifest) StorePath() string {
	if m.Project.Store == "" || filepath.IsAbs(m.Project.Store) {
		return m.Project.Store
	}
	return filepath.Join(m.Dir, m.Project.Store)
}

// LogPath returns the log file path, or nil for stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	p := m.Log.File
	if !filepath.IsAbs(p) {
		p = filepath.Join(m.Dir, p)
	}
	return &p
}
