// Package manifest handles bf.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/brainfuck/vm"
)

// Manifest represents a bf.toml project configuration.
type Manifest struct {
	Project  Project        `toml:"project"`
	Run      RunConfig      `toml:"run"`
	Snapshot SnapshotConfig `toml:"snapshot"`

	// Dir is the directory containing the bf.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
}

// RunConfig configures how the machine executes the entry program.
type RunConfig struct {
	Entry      string `toml:"entry"`
	TapeLength int    `toml:"tape-length"`
	EOF        string `toml:"eof"`
	Flush      bool   `toml:"flush"`
	Steps      uint64 `toml:"steps"`
	Input      string `toml:"input"`
}

// SnapshotConfig configures snapshot output.
type SnapshotConfig struct {
	Output string `toml:"output"`
}

// defaults returns a manifest primed with the default run settings.
// Unmarshal only touches keys the document names, so absent keys keep
// these values.
func defaults() Manifest {
	return Manifest{
		Run: RunConfig{
			TapeLength: vm.DefaultTapeLength,
			EOF:        "zero",
			Flush:      true,
		},
	}
}

// Load parses a bf.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "bf.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := defaults()
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.Run.TapeLength < 1 {
		return nil, fmt.Errorf("%s: run.tape-length = %d, need at least 1 cell", path, m.Run.TapeLength)
	}
	if _, err := vm.ParseEOFPolicy(m.Run.EOF); err != nil {
		return nil, fmt.Errorf("%s: run.eof: %w", path, err)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a bf.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "bf.toml")
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

// EOFPolicy returns the parsed run.eof policy. Load already validated it.
func (m *Manifest) EOFPolicy() vm.EOFPolicy {
	p, _ := vm.ParseEOFPolicy(m.Run.EOF)
	return p
}

// Options returns the machine options this manifest configures.
func (m *Manifest) Options() []vm.Option {
	opts := []vm.Option{
		vm.WithTapeLength(m.Run.TapeLength),
		vm.WithEOFPolicy(m.EOFPolicy()),
		vm.WithFlush(m.Run.Flush),
	}
	if m.Run.Steps > 0 {
		opts = append(opts, vm.WithStepBudget(m.Run.Steps))
	}
	return opts
}

// EntryPath returns the absolute path of the entry program, or "" when
// the manifest names none.
func (m *Manifest) EntryPath() string {
	if m.Run.Entry == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Run.Entry)
}

// InputPath returns the absolute path of the run.input file, or "" when
// the manifest names none.
func (m *Manifest) InputPath() string {
	if m.Run.Input == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Run.Input)
}

// SnapshotPath returns the absolute path of the snapshot output file,
// or "" when the manifest names none.
func (m *Manifest) SnapshotPath() string {
	if m.Snapshot.Output == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Snapshot.Output)
}
