package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/winmdgen/winmdgen/internal/cli/config"
	"github.com/winmdgen/winmdgen/internal/cli/ui"
	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/generator"
)

var (
	genInputs        []string
	genFilters       []string
	genOutput        string
	genPackage       string
	genLayout        string
	genStyle         string
	genScaffolding   bool
	genRuntimeModule string
	genArches        []string
	genJSON          bool
	genVerbose       bool
	genStrictFilters bool
)

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Go bindings from .winmd metadata",
		Long: `Read the configured metadata files, resolve the filtered type closure,
and write Go source bindings to the output directory.

The generation process:
  1. Load and validate each .winmd container
  2. Compile the namespace/type filter rules
  3. Resolve the dependency closure of the selected types
  4. Emit Go source, one fragment per type, merged deterministically`,
		Example: `  # Generate with settings from winmdgen.yml
  winmdgen generate

  # Generate bindings for one namespace
  winmdgen generate -i Windows.Foundation.winmd -f "Windows.Foundation.*"

  # Exclude a sub-namespace and write to a custom directory
  winmdgen generate -i W.winmd -f "W.*" -f '!W.Diagnostics' -o gen

  # Raw vtable style, x64 and arm64 only
  winmdgen generate --style raw --arch x64 --arch arm64

  # Errors as JSON (useful for tooling)
  winmdgen generate --json`,
		RunE: runGenerate,
	}

	cmd.Flags().StringArrayVarP(&genInputs, "input", "i", nil, "Metadata file to read (repeatable)")
	cmd.Flags().StringArrayVarP(&genFilters, "filter", "f", nil, "Filter rule, prefix ! to exclude (repeatable)")
	cmd.Flags().StringVarP(&genOutput, "output", "o", "", "Output directory (default: bindings)")
	cmd.Flags().StringVar(&genPackage, "package", "", "Package name for the flat layout")
	cmd.Flags().StringVar(&genLayout, "layout", "", "Output layout: flat or nested")
	cmd.Flags().StringVar(&genStyle, "style", "", "Emission style: raw or wrapped")
	cmd.Flags().BoolVar(&genScaffolding, "scaffolding", false, "Emit implementation stubs for interfaces")
	cmd.Flags().StringVar(&genRuntimeModule, "runtime-module", "", "Import path of the runtime support module")
	cmd.Flags().StringArrayVar(&genArches, "arch", nil, "Target architecture: x86, x64, arm64 (repeatable)")
	cmd.Flags().BoolVar(&genJSON, "json", false, "Output errors in JSON format")
	cmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "Show detailed generation output")
	cmd.Flags().BoolVar(&genStrictFilters, "strict-filters", false, "Fail when a filter rule matches nothing")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	infoColor := color.New(color.FgCyan)

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprint(os.Stderr, ui.ConfigError(err.Error(), color.NoColor))
		return fmt.Errorf("invalid configuration")
	}
	applyGenerateFlags(cfg)

	if len(cfg.Inputs) == 0 {
		return fmt.Errorf("no inputs given - pass --input or list them in winmdgen.yml")
	}

	codegenCfg, err := cfg.Codegen()
	if err != nil {
		fmt.Fprint(os.Stderr, ui.ConfigError(err.Error(), color.NoColor))
		return fmt.Errorf("invalid configuration")
	}

	logger := zap.NewNop()
	if genVerbose {
		devCfg := zap.NewDevelopmentConfig()
		if built, err := devCfg.Build(); err == nil {
			logger = built
			defer logger.Sync()
		}
	}

	pipeline := &generator.Pipeline{
		Logger:             logger,
		StrictFilters:      cfg.StrictFilters,
		ExternalNamespaces: cfg.ExternalNamespaces(),
	}

	res, err := pipeline.Generate(cfg.Inputs, cfg.Filters, codegenCfg)
	if err != nil {
		return reportGenerateError(err)
	}

	for _, rule := range res.Unmatched {
		fmt.Fprint(os.Stderr, ui.UnmatchedFilterWarning(rule, res.Namespaces, color.NoColor))
	}

	outDir := cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for filename, content := range res.Files {
		fullPath := filepath.Join(outDir, filename)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", filename, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", filename, err)
		}
		if genVerbose {
			infoColor.Printf("  Generated %s\n", fullPath)
		}
	}

	elapsed := time.Since(startTime)
	fmt.Println()
	ui.WriteSuccess(os.Stdout, fmt.Sprintf("Generated %d file(s) from %d type(s) in %.2fs",
		len(res.Files), res.TypeCount, elapsed.Seconds()), color.NoColor)
	infoColor.Printf("  Output: %s\n", outDir)

	return nil
}

// applyGenerateFlags overlays set flags on the loaded config.
func applyGenerateFlags(cfg *config.Config) {
	if len(genInputs) > 0 {
		cfg.Inputs = genInputs
	}
	if len(genFilters) > 0 {
		cfg.Filters = genFilters
	}
	if genOutput != "" {
		cfg.Output.Dir = genOutput
	}
	if genPackage != "" {
		cfg.Output.Package = genPackage
	}
	if genLayout != "" {
		cfg.Output.Layout = genLayout
	}
	if genStyle != "" {
		cfg.Output.Style = genStyle
	}
	if genScaffolding {
		cfg.Output.Scaffolding = true
	}
	if genRuntimeModule != "" {
		cfg.RuntimeModule = genRuntimeModule
	}
	if len(genArches) > 0 {
		cfg.Architectures = genArches
	}
	if genStrictFilters {
		cfg.StrictFilters = true
	}
}

// reportGenerateError prints the failure in the requested format and
// returns a terse error for the exit status.
func reportGenerateError(err error) error {
	var list diag.List
	switch v := err.(type) {
	case diag.List:
		list = v
	case *diag.Error:
		list = diag.List{v}
	default:
		return err
	}

	if genJSON {
		outputDiagnosticsJSON(list)
	} else {
		ui.WriteDiagnostics(os.Stderr, list)
	}
	return fmt.Errorf("generation failed")
}

func outputDiagnosticsJSON(list diag.List) {
	output := struct {
		Success bool      `json:"success"`
		Errors  diag.List `json:"errors"`
	}{
		Success: false,
		Errors:  list,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}
