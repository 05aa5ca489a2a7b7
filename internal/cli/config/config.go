// Package config loads winmdgen.yml, the project-level description of a
// binding generation run. Flags override anything set here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/winmdgen/winmdgen/internal/codegen"
)

// Config represents the winmdgen configuration
type Config struct {
	Inputs  []string     `mapstructure:"inputs"`
	Filters []string     `mapstructure:"filters"`
	Output  OutputConfig `mapstructure:"output"`

	// RuntimeModule is the import path of the runtime support module the
	// generated code depends on.
	RuntimeModule string `mapstructure:"runtime_module"`

	// Architectures restricts emission (x86, x64, arm64). Empty means all.
	Architectures []string `mapstructure:"architectures"`

	// External maps metadata namespaces to Go import paths that already
	// provide their bindings. Keyed by case-sensitive dotted namespaces,
	// which viper would split and lowercase, so these two maps are decoded
	// straight from the yaml file instead (see Load).
	External map[string]string `mapstructure:"-"`

	// Derives requests extra generated helpers per type ("String").
	Derives map[string][]string `mapstructure:"-"`

	// StrictFilters makes a filter rule that matches nothing fatal.
	StrictFilters bool `mapstructure:"strict_filters"`
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	Package     string `mapstructure:"package"`
	Layout      string `mapstructure:"layout"`
	Style       string `mapstructure:"style"`
	Scaffolding bool   `mapstructure:"scaffolding"`
}

// Load loads the configuration from winmdgen.yml or winmdgen.yaml in dir.
// An empty dir means the current directory. A missing config file is not
// an error; defaults apply.
func Load(dir string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("output.dir", "bindings")
	v.SetDefault("output.package", "bindings")
	v.SetDefault("output.layout", "flat")
	v.SetDefault("output.style", "wrapped")
	v.SetDefault("runtime_module", codegen.DefaultRuntimeModule)

	v.SetConfigName("winmdgen")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	// Enable environment variable support
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if path := v.ConfigFileUsed(); path != "" {
		if err := loadNamespaceMaps(path, &config); err != nil {
			return nil, err
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadNamespaceMaps decodes the namespace-keyed sections of the config
// file. The keys are dotted, case-sensitive metadata names, which have
// to bypass viper's key splitting and lowercasing.
func loadNamespaceMaps(path string, config *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var maps struct {
		External map[string]string   `yaml:"external"`
		Derives  map[string][]string `yaml:"derives"`
	}
	if err := yaml.Unmarshal(raw, &maps); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.External = maps.External
	config.Derives = maps.Derives
	return nil
}

// Codegen converts the output settings into an emitter config.
func (c *Config) Codegen() (codegen.Config, error) {
	layout, err := codegen.ParseLayout(c.Output.Layout)
	if err != nil {
		return codegen.Config{}, err
	}
	style, err := codegen.ParseStyle(c.Output.Style)
	if err != nil {
		return codegen.Config{}, err
	}
	return codegen.Config{
		Layout:             layout,
		Style:              style,
		Scaffolding:        c.Output.Scaffolding,
		Package:            c.Output.Package,
		Derives:            c.Derives,
		ExternalNamespaces: c.External,
		RuntimeModule:      c.RuntimeModule,
		Architectures:      c.Architectures,
	}, nil
}

// ExternalNamespaces returns the namespaces declared external, for the
// resolver.
func (c *Config) ExternalNamespaces() []string {
	out := make([]string, 0, len(c.External))
	for ns := range c.External {
		out = append(out, ns)
	}
	return out
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := codegen.ParseLayout(cfg.Output.Layout); err != nil {
		return fmt.Errorf("invalid output.layout: %w", err)
	}
	if _, err := codegen.ParseStyle(cfg.Output.Style); err != nil {
		return fmt.Errorf("invalid output.style: %w", err)
	}
	for _, arch := range cfg.Architectures {
		switch arch {
		case "x86", "x64", "arm64":
		default:
			return fmt.Errorf("invalid architecture %q (want x86, x64, or arm64)", arch)
		}
	}
	return nil
}

// InProject checks if dir (or the current directory) holds a winmdgen
// config file.
func InProject(dir string) bool {
	if dir == "" {
		dir = "."
	}
	if _, err := os.Stat(filepath.Join(dir, "winmdgen.yml")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "winmdgen.yaml")); err == nil {
		return true
	}
	return false
}
