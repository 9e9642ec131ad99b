// Package config loads a vorthc.toml project file describing how a source
// tree should be compiled: entry word, optimization level, backend choice,
// and cache location. Grounded on the TOML-based project file format
// internal/tqw uses for world data, adapted here to describe a compiler
// project instead of a game world.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// OptLevel mirrors internal/optimize.Level in string form, so the TOML file
// can say "O2" instead of an integer.
type OptLevel string

const (
	OptO0 OptLevel = "O0"
	OptO1 OptLevel = "O1"
	OptO2 OptLevel = "O2"
	OptO3 OptLevel = "O3"
)

// Backend names which internal/codegen.Backend a project should build with.
type Backend string

const (
	BackendDirect Backend = "direct"
	BackendLLVM   Backend = "llvm"
)

// Project is the root of a vorthc.toml file.
type Project struct {
	// Entry is the word name that becomes the compiled program's start.
	Entry string `toml:"entry"`

	// Sources lists source files to compile, in load order; REDEFINE
	// policy (internal/sema.RedefinitionPolicy) applies across this whole
	// list as if it were one concatenated file.
	Sources []string `toml:"sources"`

	// Opt is the optimization level to run internal/optimize at.
	Opt OptLevel `toml:"opt"`

	// Backend selects the internal/codegen.Backend to emit with.
	Backend Backend `toml:"backend"`

	// Redefine selects how a duplicate word definition is handled: "warn"
	// (default), "error", or "shadow".
	Redefine string `toml:"redefine"`

	// CacheDir names a directory for internal/cache's persistent
	// memoization database. cmd/vorthc and internal/session do not read it,
	// so no cache is opened whatever it is set to.
	CacheDir string `toml:"cache_dir"`
}

// Default returns a Project with every field set to its documented
// default, matching what an empty or partial vorthc.toml should behave as.
func Default() Project {
	return Project{
		Entry:    "main",
		Opt:      OptO1,
		Backend:  BackendDirect,
		Redefine: "warn",
		CacheDir: ".vorth-cache",
	}
}

// Load reads and parses a vorthc.toml file at path, filling in any field
// left unset with Default's value.
func Load(path string) (Project, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("read project file: %w", err)
	}

	var parsed Project
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return Project{}, fmt.Errorf("parse project file: %w", err)
	}

	if parsed.Entry != "" {
		p.Entry = parsed.Entry
	}
	if len(parsed.Sources) > 0 {
		p.Sources = parsed.Sources
	}
	if parsed.Opt != "" {
		p.Opt = parsed.Opt
	}
	if parsed.Backend != "" {
		p.Backend = parsed.Backend
	}
	if parsed.Redefine != "" {
		p.Redefine = parsed.Redefine
	}
	if parsed.CacheDir != "" {
		p.CacheDir = parsed.CacheDir
	}

	return p, nil
}

// Validate returns an error describing the first invalid field found, or
// nil if p is ready to drive a compilation.
func (p Project) Validate() error {
	if p.Entry == "" {
		return fmt.Errorf("entry: must be set to a word name")
	}
	if len(p.Sources) == 0 {
		return fmt.Errorf("sources: must list at least one file")
	}
	switch p.Opt {
	case OptO0, OptO1, OptO2, OptO3:
	default:
		return fmt.Errorf("opt: must be one of O0, O1, O2, O3, got %q", p.Opt)
	}
	switch p.Backend {
	case BackendDirect, BackendLLVM:
	default:
		return fmt.Errorf("backend: must be one of direct, llvm, got %q", p.Backend)
	}
	switch p.Redefine {
	case "warn", "error", "shadow":
	default:
		return fmt.Errorf("redefine: must be one of warn, error, shadow, got %q", p.Redefine)
	}
	return nil
}
