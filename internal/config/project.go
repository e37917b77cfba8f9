package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/QTest-hq/cast/internal/ast"
	"gopkg.in/yaml.v3"
)

// ProjectConfig represents a .cast.yaml file in a source tree
type ProjectConfig struct {
	Version string `yaml:"version"`

	// Declaration heuristics
	Patterns PatternConfig `yaml:"patterns"`

	// File patterns for batch runs
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	// Export settings
	Output OutputConfig `yaml:"output"`
}

// PatternConfig holds the regular expressions used to recognise declarations
type PatternConfig struct {
	Function    string   `yaml:"function,omitempty"`
	Definitions []string `yaml:"definitions,omitempty"`
}

// OutputConfig holds export preferences
type OutputConfig struct {
	// Whether exports carry the per-line index
	Index bool `yaml:"index"`

	// Indent used for JSON output
	Indent string `yaml:"indent,omitempty"`
}

// DefaultProjectConfig returns sensible defaults
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Version: "1.0",
		Patterns: PatternConfig{
			Function:    ast.DefaultFunctionPattern,
			Definitions: append([]string(nil), ast.DefaultDefinitionPatterns...),
		},
		Include: []string{"**/*.c", "**/*.h"},
		Exclude: []string{
			"**/vendor/**",
			"**/third_party/**",
			"**/build/**",
		},
		Output: OutputConfig{
			Index:  true,
			Indent: "    ",
		},
	}
}

// LoadProjectConfig loads a .cast.yaml from the given directory
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ".cast.yaml")

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		configPath = filepath.Join(dir, ".cast.yml")
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return DefaultProjectConfig(), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultProjectConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(configPath), err)
	}

	return cfg, nil
}

// SaveProjectConfig saves the config to .cast.yaml
func SaveProjectConfig(dir string, cfg *ProjectConfig) error {
	configPath := filepath.Join(dir, ".cast.yaml")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Merge applies overrides from another config (e.g., CLI flags)
func (c *ProjectConfig) Merge(other *ProjectConfig) {
	if other == nil {
		return
	}

	if other.Patterns.Function != "" {
		c.Patterns.Function = other.Patterns.Function
	}

	if len(other.Patterns.Definitions) > 0 {
		c.Patterns.Definitions = other.Patterns.Definitions
	}

	if len(other.Include) > 0 {
		c.Include = other.Include
	}

	if len(other.Exclude) > 0 {
		c.Exclude = other.Exclude
	}

	if other.Output.Indent != "" {
		c.Output.Indent = other.Output.Indent
	}
}

// Patterns compiles the configured heuristics
func (c *ProjectConfig) Patterns() (*ast.Patterns, error) {
	fn := c.Patterns.Function
	if fn == "" {
		fn = ast.DefaultFunctionPattern
	}
	defs := c.Patterns.Definitions
	if len(defs) == 0 {
		defs = ast.DefaultDefinitionPatterns
	}
	return ast.NewPatterns(fn, defs)
}

// Fingerprint identifies the pattern set, so cached trees built with other
// heuristics are not reused
func (c *ProjectConfig) Fingerprint() string {
	return c.Patterns.Function + "\x00" + strings.Join(c.Patterns.Definitions, "\x00")
}

// Matches reports whether a slash separated relative path is selected by the
// include and exclude globs
func (c *ProjectConfig) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.Exclude {
		if matchGlob(pattern, rel) {
			return false
		}
	}
	if len(c.Include) == 0 {
		return true
	}
	for _, pattern := range c.Include {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

// matchGlob matches path.Match style patterns where a "**" segment spans any
// number of directories
func matchGlob(pattern, name string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchSegments(pattern[1:], name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, err := filepath.Match(pattern[0], name[0]); err != nil || !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}
