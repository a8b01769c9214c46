// Package project loads vellum.yaml project files. A project file names the
// include paths, component libraries and widget style used when compiling the
// sources under its directory.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vellum-ui/vellum/pkg/interp"
)

// FileName is the name of the project file.
const FileName = "vellum.yaml"

// ErrNoProject is returned by Find when no project file exists in the
// directory or any of its ancestors.
var ErrNoProject = errors.New("no " + FileName + " found")

// Config is the parsed content of a project file. Relative paths are resolved
// against the directory containing the file.
type Config struct {
	// IncludePaths are extra directories searched for plain imports.
	IncludePaths []string `yaml:"include-paths"`
	// Libraries maps a library name to its directory; imports of the form
	// "@name/..." resolve against it.
	Libraries map[string]string `yaml:"libraries"`
	// Style is the widget style; a style subdirectory of a library takes
	// precedence over the library root.
	Style string `yaml:"style"`

	dir string
}

// Load reads and parses the project file at path. Unknown keys are an error,
// so typos do not silently disable configuration.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	cfg.resolvePaths()
	return cfg, nil
}

// Find locates the project file governing dir: dir itself, or the nearest
// ancestor containing one.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProject
		}
		dir = parent
	}
}

// CompileConfig converts the project configuration into compiler
// configuration. Fields the project file does not cover (generation mode,
// loader, platform) are left at their zero values for the caller to fill in.
func (c *Config) CompileConfig() interp.CompileConfig {
	return interp.CompileConfig{
		IncludePaths: c.IncludePaths,
		LibraryPaths: c.Libraries,
		Style:        c.Style,
	}
}

func parse(content []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths() {
	for i, p := range c.IncludePaths {
		c.IncludePaths[i] = c.abs(p)
	}
	for name, p := range c.Libraries {
		c.Libraries[name] = c.abs(p)
	}
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}
