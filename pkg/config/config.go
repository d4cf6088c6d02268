package config

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/zeebo/blake3"

	"github.com/panbanda/vigil/pkg/models"
)

// ErrInvalidConfig is returned when a configuration file fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration options for vigil.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Per-rule settings keyed by rule ID
	Rules map[string]RuleConfig `koanf:"rules" toml:"rules,omitempty"`

	// Per-path rule settings; the first matching override wins
	Overrides []Override `koanf:"overrides" toml:"overrides,omitempty"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// AnalysisConfig controls how units are processed.
type AnalysisConfig struct {
	Workers int `koanf:"workers" toml:"workers"` // 0 means one per CPU
}

// RuleConfig overrides a rule's defaults.
type RuleConfig struct {
	Enabled  *bool          `koanf:"enabled" toml:"enabled,omitempty"`
	Severity string         `koanf:"severity" toml:"severity,omitempty"`
	Params   map[string]any `koanf:"params" toml:"params,omitempty"`
}

// Override applies rule settings to paths matching gitignore-style patterns.
type Override struct {
	Paths []string              `koanf:"paths" toml:"paths"`
	Rules map[string]RuleConfig `koanf:"rules" toml:"rules"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns" toml:"patterns"`
	Extensions []string `koanf:"extensions" toml:"extensions"`
	Dirs       []string `koanf:"dirs" toml:"dirs"`
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Rules: map[string]RuleConfig{},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.pb.go",
				"*_gen.go",
				"*.g.cs",
				"*.Designer.cs",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".vigil",
				"bin",
				"obj",
				"build",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".vigil/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// LoadResult is a loaded configuration and the file it came from.
type LoadResult struct {
	Config *Config
	Source string // empty when defaults were used
}

type loadOptions struct {
	path string
	dir  string
}

// LoadOption customizes LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads the given file instead of searching the standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) { o.path = path }
}

// WithDir searches the standard locations below dir instead of the working directory.
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) { o.dir = dir }
}

// LoadConfig loads an explicit file, or the first config file found in the
// standard locations, or the defaults. Unlike LoadOrDefault it reports
// invalid files instead of ignoring them.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.path != "" {
		cfg, err := Load(o.path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: o.path}, nil
	}
	if path := find(o.dir); path != "" {
		cfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: path}, nil
	}
	return &LoadResult{Config: DefaultConfig()}, nil
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = kjson.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := Validate(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := find(""); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// find returns the first config file in the standard locations below dir.
func find(dir string) string {
	configNames := []string{
		"vigil.toml",
		"vigil.yaml",
		"vigil.yml",
		"vigil.json",
		".vigil.toml",
		".vigil.yaml",
		".vigil.yml",
		".vigil.json",
	}

	// Search in the directory itself and its .vigil directory
	searchDirs := []string{".", ".vigil"}

	for _, sub := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, sub, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// check validates what the schema cannot express.
func (c *Config) check() error {
	check := func(where string, rules map[string]RuleConfig) error {
		for id, r := range rules {
			if r.Severity == "" {
				continue
			}
			if _, err := models.ParseSeverity(r.Severity); err != nil {
				return fmt.Errorf("%w: %s rule %q: %v", ErrInvalidConfig, where, id, err)
			}
		}
		return nil
	}
	if err := check("global", c.Rules); err != nil {
		return err
	}
	for i, o := range c.Overrides {
		if len(o.Paths) == 0 {
			return fmt.Errorf("%w: override %d has no paths", ErrInvalidConfig, i)
		}
		if err := check(fmt.Sprintf("override %d", i), o.Rules); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether the slash-separated relative path is covered by
// one of the override's patterns. A pattern matching a parent directory
// covers every file below it.
func (o Override) Matches(path string) bool {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	for _, raw := range o.Paths {
		p := gitignore.ParsePattern(raw, nil)
		for i := 1; i <= len(parts); i++ {
			if p.Match(parts[:i], i < len(parts)) == gitignore.Exclude {
				return true
			}
		}
	}
	return false
}

// Rule returns the effective settings for rule id at path: the first
// matching override is layered over the global rule settings. Params are
// merged key by key.
func (c *Config) Rule(id, path string) RuleConfig {
	eff := RuleConfig{Params: map[string]any{}}
	layer := func(r RuleConfig) {
		if r.Enabled != nil {
			eff.Enabled = r.Enabled
		}
		if r.Severity != "" {
			eff.Severity = r.Severity
		}
		for k, v := range r.Params {
			eff.Params[k] = v
		}
	}
	if r, ok := c.Rules[id]; ok {
		layer(r)
	}
	for _, o := range c.Overrides {
		if o.Matches(path) {
			if r, ok := o.Rules[id]; ok {
				layer(r)
			}
			break
		}
	}
	return eff
}

// Resolve decides whether a descriptor is enabled at path and at which
// severity: override, then global settings, then the descriptor defaults.
// Severity "none" disables the rule.
func (c *Config) Resolve(d models.Descriptor, path string) (bool, models.Severity) {
	r := c.Rule(d.ID, path)
	enabled := d.DefaultEnabled
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	severity := d.DefaultSeverity
	if r.Severity != "" {
		if s, err := models.ParseSeverity(r.Severity); err == nil {
			severity = s
		}
	}
	if severity == models.SeverityNone {
		return false, severity
	}
	return enabled, severity
}

// Fingerprint hashes the effective configuration, for cache keys.
func (c *Config) Fingerprint() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	// Check directory exclusions
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	// Check extension exclusions
	ext := filepath.Ext(path)
	for _, excludeExt := range c.Exclude.Extensions {
		if ext == excludeExt {
			return true
		}
	}

	// Check pattern exclusions
	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
