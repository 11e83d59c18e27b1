package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFiles lists the config file names searched in a project root, in priority order
var ConfigFiles = []string{"accudoc.yaml", "accudoc.yml", filepath.Join(".accudoc", "config.yaml")}

// JSXMode selects how extended-syntax snippets are lowered
type JSXMode string

const (
	// JSXReact lowers markup to calls of the sandbox element factory
	JSXReact JSXMode = "react"
	// JSXVue lowers markup to h()/Fragment calls resolved in the snippet scope
	JSXVue JSXMode = "vue"
	// JSXOff disables lowering; markup is executed as-is
	JSXOff JSXMode = "off"
)

// Enabled returns true if extended syntax should be lowered
func (m JSXMode) Enabled() bool {
	return m != JSXOff
}

// UnmarshalYAML accepts react/vue, their standard/alternate aliases, and booleans
func (m *JSXMode) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!bool" {
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		if b {
			*m = JSXReact
		} else {
			*m = JSXOff
		}
		return nil
	}

	mode, err := ParseJSXMode(value.Value)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ParseJSXMode converts a string to a JSXMode
func ParseJSXMode(s string) (JSXMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "react", "standard", "true":
		return JSXReact, nil
	case "vue", "alternate":
		return JSXVue, nil
	case "off", "false", "none":
		return JSXOff, nil
	default:
		return "", fmt.Errorf("invalid jsx mode %q, must be one of: react, vue, false", s)
	}
}

// ImportEntry maps one module specifier to a replacement path.
// Elide drops the import altogether (stylesheets, side-effect-only modules).
type ImportEntry struct {
	Specifier string
	Path      string
	Elide     bool
}

// ImportMap is an ordered list of import rewrites, applied in declaration order
type ImportMap []ImportEntry

// UnmarshalYAML decodes a mapping node, keeping the key order from the file
func (im *ImportMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("imports must be a mapping, got line %d", value.Line)
	}

	entries := make(ImportMap, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		entry := ImportEntry{Specifier: key.Value}

		if val.Tag == "!!null" {
			entry.Elide = true
		} else if err := val.Decode(&entry.Path); err != nil {
			return fmt.Errorf("import %q: %w", key.Value, err)
		}

		entries = append(entries, entry)
	}

	*im = entries
	return nil
}

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`
}

// Config represents accudoc configuration options
type Config struct {
	// Docs is the documentation root, relative to the project root
	Docs string `yaml:"docs"`

	// Imports maps module specifiers to replacement paths
	Imports ImportMap `yaml:"imports"`

	// Setup is an optional script whose result provides the test environment
	Setup string `yaml:"setup"`

	// JSX selects the extended syntax lowering mode
	JSX JSXMode `yaml:"jsx"`

	// Include lists globs of files handled by the strip post-processor
	Include []string `yaml:"include"`

	// Exclude lists globs skipped by the strip post-processor
	Exclude []string `yaml:"exclude"`

	// Verbose shows stack traces for failures
	Verbose bool `yaml:"verbose"`

	// StripAssertions removes assertion calls from rendered documentation
	StripAssertions bool `yaml:"strip_assertions"`

	// Timeout bounds execution of a single snippet (0 = no timeout)
	Timeout time.Duration `yaml:"-"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir receives a per-run log file when set
	LogDir string `yaml:"log_dir"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Docs:            "./docs",
		JSX:             JSXReact,
		Include:         []string{"**/*.md"},
		Exclude:         []string{"node_modules/**"},
		StripAssertions: true,
		Timeout:         30 * time.Second,
		LogLevel:        "info",
		History: HistoryConfig{
			Enabled: false,
			DBPath:  filepath.Join(".accudoc", "history.db"),
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointers distinguish "absent" from an explicit zero value
	type yamlConfig struct {
		Docs            string    `yaml:"docs"`
		Imports         ImportMap `yaml:"imports"`
		Setup           string    `yaml:"setup"`
		JSX             *JSXMode  `yaml:"jsx"`
		Include         []string  `yaml:"include"`
		Exclude         []string  `yaml:"exclude"`
		Verbose         bool      `yaml:"verbose"`
		StripAssertions *bool     `yaml:"strip_assertions"`
		Timeout         string    `yaml:"timeout"`
		LogLevel        string    `yaml:"log_level"`
		LogDir          string    `yaml:"log_dir"`
		History         *struct {
			Enabled *bool  `yaml:"enabled"`
			DBPath  string `yaml:"db_path"`
		} `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Docs != "" {
		cfg.Docs = yamlCfg.Docs
	}
	if yamlCfg.Imports != nil {
		cfg.Imports = yamlCfg.Imports
	}
	if yamlCfg.Setup != "" {
		cfg.Setup = yamlCfg.Setup
	}
	if yamlCfg.JSX != nil {
		cfg.JSX = *yamlCfg.JSX
	}
	if yamlCfg.Include != nil {
		cfg.Include = yamlCfg.Include
	}
	if yamlCfg.Exclude != nil {
		cfg.Exclude = yamlCfg.Exclude
	}
	if yamlCfg.Verbose {
		cfg.Verbose = true
	}
	if yamlCfg.StripAssertions != nil {
		cfg.StripAssertions = *yamlCfg.StripAssertions
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.History != nil {
		if yamlCfg.History.Enabled != nil {
			cfg.History.Enabled = *yamlCfg.History.Enabled
		}
		if yamlCfg.History.DBPath != "" {
			cfg.History.DBPath = yamlCfg.History.DBPath
		}
	}

	return cfg, nil
}

// FindConfigFile returns the first config file present in dir, or "" if none exists
func FindConfigFile(dir string) string {
	for _, name := range ConfigFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfigFromDir loads the first config file found in the specified directory
// If no config file exists, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	path := FindConfigFile(dir)
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(docs *string, verbose *bool, timeout *time.Duration, logLevel *string, record *bool) {
	if docs != nil {
		c.Docs = *docs
	}
	if verbose != nil {
		c.Verbose = *verbose
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if record != nil {
		c.History.Enabled = *record
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Docs == "" {
		return fmt.Errorf("docs cannot be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	switch c.JSX {
	case JSXReact, JSXVue, JSXOff:
	default:
		return fmt.Errorf("invalid jsx mode %q", c.JSX)
	}

	// Timeout can be 0 (no timeout) or positive, negative is invalid
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	seen := make(map[string]bool, len(c.Imports))
	for _, e := range c.Imports {
		if e.Specifier == "" {
			return fmt.Errorf("imports: empty module specifier")
		}
		if seen[e.Specifier] {
			return fmt.Errorf("imports: duplicate specifier %q", e.Specifier)
		}
		seen[e.Specifier] = true
		if !e.Elide && e.Path == "" {
			return fmt.Errorf("imports: %q has an empty path (use null to elide)", e.Specifier)
		}
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}
