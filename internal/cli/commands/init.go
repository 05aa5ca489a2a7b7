package commands

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/winmdgen/winmdgen/internal/cli/config"
	"github.com/winmdgen/winmdgen/internal/cli/ui"
	"github.com/winmdgen/winmdgen/internal/codegen"
)

var initForce bool

const configTemplate = `# winmdgen configuration
inputs:
{{- range .Inputs}}
  - {{.}}
{{- end}}

filters:
{{- range .Filters}}
  - "{{.}}"
{{- end}}

output:
  dir: {{.OutputDir}}
  package: {{.Package}}
  layout: {{.Layout}}
  style: {{.Style}}

runtime_module: {{.RuntimeModule}}
`

type initAnswers struct {
	Inputs        []string
	Filters       []string
	OutputDir     string
	Package       string
	Layout        string
	Style         string
	RuntimeModule string
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a winmdgen.yml through interactive prompts",
		Long: `Walk through the generation settings and write a winmdgen.yml in the
current directory. Existing config files are left untouched unless
--force is given.`,
		Example: `  winmdgen init
  winmdgen init --force`,
		RunE: runInit,
	}

	cmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing winmdgen.yml")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	if config.InProject("") && !initForce {
		return fmt.Errorf("winmdgen.yml already exists - re-run with --force to overwrite")
	}

	answers := initAnswers{
		OutputDir:     "bindings",
		Package:       "bindings",
		Layout:        "flat",
		Style:         "wrapped",
		RuntimeModule: codegen.DefaultRuntimeModule,
	}

	var inputs string
	if err := survey.AskOne(&survey.Input{
		Message: "Metadata files to read (comma separated):",
		Help:    "Paths to .winmd files, e.g. Windows.Win32.winmd",
	}, &inputs, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	answers.Inputs = splitList(inputs)

	var filters string
	if err := survey.AskOne(&survey.Input{
		Message: "Filter rules (comma separated, prefix ! to exclude):",
		Default: "",
		Help:    "e.g. Windows.Foundation.*, !Windows.Foundation.Diagnostics",
	}, &filters); err != nil {
		return err
	}
	answers.Filters = splitList(filters)

	if err := survey.AskOne(&survey.Input{
		Message: "Output directory:",
		Default: answers.OutputDir,
	}, &answers.OutputDir); err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Select{
		Message: "Output layout:",
		Options: []string{"flat", "nested"},
		Default: answers.Layout,
	}, &answers.Layout); err != nil {
		return err
	}

	if answers.Layout == "flat" {
		if err := survey.AskOne(&survey.Input{
			Message: "Package name:",
			Default: answers.Package,
		}, &answers.Package); err != nil {
			return err
		}
	}

	if err := survey.AskOne(&survey.Select{
		Message: "Emission style:",
		Options: []string{"wrapped", "raw"},
		Default: answers.Style,
		Help:    "wrapped adds call-through methods; raw emits vtables only",
	}, &answers.Style); err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Input{
		Message: "Runtime support module:",
		Default: answers.RuntimeModule,
	}, &answers.RuntimeModule); err != nil {
		return err
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse config template: %w", err)
	}

	f, err := os.Create("winmdgen.yml")
	if err != nil {
		return fmt.Errorf("failed to create winmdgen.yml: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, answers); err != nil {
		return fmt.Errorf("failed to write winmdgen.yml: %w", err)
	}

	ui.WriteSuccess(os.Stdout, "Created winmdgen.yml", color.NoColor)
	fmt.Println("  Run 'winmdgen generate' to emit bindings.")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
