package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/winmdgen/winmdgen/internal/codegen"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config to be non-nil")
	}

	if cfg.Output.Dir != "bindings" {
		t.Errorf("expected default output dir 'bindings', got %s", cfg.Output.Dir)
	}
	if cfg.Output.Package != "bindings" {
		t.Errorf("expected default package 'bindings', got %s", cfg.Output.Package)
	}
	if cfg.Output.Layout != "flat" {
		t.Errorf("expected default layout 'flat', got %s", cfg.Output.Layout)
	}
	if cfg.Output.Style != "wrapped" {
		t.Errorf("expected default style 'wrapped', got %s", cfg.Output.Style)
	}
	if cfg.RuntimeModule != codegen.DefaultRuntimeModule {
		t.Errorf("expected default runtime module %s, got %s", codegen.DefaultRuntimeModule, cfg.RuntimeModule)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
inputs:
  - testdata/Windows.Foundation.winmd
filters:
  - Windows.Foundation.*
  - "!Windows.Foundation.Diagnostics"
output:
  dir: gen
  package: winrt
  layout: nested
  style: raw
runtime_module: example.com/runtime
architectures:
  - x64
  - arm64
external:
  Windows.Storage: example.com/storage
derives:
  Windows.Foundation.PropertyType:
    - String
strict_filters: true
`
	if err := os.WriteFile(filepath.Join(tmpDir, "winmdgen.yml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(cfg.Inputs) != 1 || cfg.Inputs[0] != "testdata/Windows.Foundation.winmd" {
		t.Errorf("unexpected inputs: %v", cfg.Inputs)
	}
	if len(cfg.Filters) != 2 {
		t.Errorf("expected 2 filters, got %d", len(cfg.Filters))
	}
	if cfg.Output.Dir != "gen" {
		t.Errorf("expected output dir 'gen', got %s", cfg.Output.Dir)
	}
	if cfg.Output.Layout != "nested" {
		t.Errorf("expected layout 'nested', got %s", cfg.Output.Layout)
	}
	if cfg.Output.Style != "raw" {
		t.Errorf("expected style 'raw', got %s", cfg.Output.Style)
	}
	if cfg.RuntimeModule != "example.com/runtime" {
		t.Errorf("unexpected runtime module: %s", cfg.RuntimeModule)
	}
	if len(cfg.Architectures) != 2 {
		t.Errorf("expected 2 architectures, got %v", cfg.Architectures)
	}
	if cfg.External["Windows.Storage"] != "example.com/storage" {
		t.Errorf("unexpected external map: %v", cfg.External)
	}
	derives := cfg.Derives["Windows.Foundation.PropertyType"]
	if len(derives) != 1 || derives[0] != "String" {
		t.Errorf("unexpected derives map: %v", cfg.Derives)
	}
	if !cfg.StrictFilters {
		t.Error("expected strict_filters to be true")
	}
}

func TestLoadRejectsBadLayout(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "output:\n  layout: sideways\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "winmdgen.yml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("expected an error for an unknown layout")
	}
}

func TestLoadRejectsBadArchitecture(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "architectures:\n  - mips\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "winmdgen.yml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("expected an error for an unknown architecture")
	}
}

func TestCodegenConversion(t *testing.T) {
	cfg := &Config{
		Output: OutputConfig{
			Dir:     "gen",
			Package: "winrt",
			Layout:  "nested",
			Style:   "raw",
		},
		RuntimeModule: "example.com/runtime",
		Architectures: []string{"x64"},
	}

	cc, err := cfg.Codegen()
	if err != nil {
		t.Fatalf("Codegen() error: %v", err)
	}
	if cc.Layout != codegen.LayoutNested {
		t.Errorf("expected nested layout, got %v", cc.Layout)
	}
	if cc.Style != codegen.StyleRaw {
		t.Errorf("expected raw style, got %v", cc.Style)
	}
	if cc.Package != "winrt" {
		t.Errorf("expected package 'winrt', got %s", cc.Package)
	}
	if cc.RuntimeModule != "example.com/runtime" {
		t.Errorf("unexpected runtime module: %s", cc.RuntimeModule)
	}
}

func TestInProject(t *testing.T) {
	tmpDir := t.TempDir()
	if InProject(tmpDir) {
		t.Error("expected InProject to be false for an empty directory")
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "winmdgen.yml"), []byte("inputs: []\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if !InProject(tmpDir) {
		t.Error("expected InProject to be true once winmdgen.yml exists")
	}
}
