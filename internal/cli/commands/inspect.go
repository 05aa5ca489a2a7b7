package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/winmdgen/winmdgen/internal/cache"
	"github.com/winmdgen/winmdgen/internal/cli/ui"
	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/filter"
	"github.com/winmdgen/winmdgen/internal/resolver"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

var (
	inspectFilters    []string
	inspectNamespaces bool
)

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <input.winmd> [more.winmd...]",
		Short: "List the types a metadata file declares",
		Long: `Load one or more .winmd files and list their public types, grouped by
namespace, with the category and architecture restriction of each.

With --filter, only the matching types and their dependency closure are
listed, which previews exactly what generate would emit.`,
		Example: `  # List everything a metadata file declares
  winmdgen inspect Windows.Foundation.winmd

  # Summarize the namespaces only
  winmdgen inspect Windows.Foundation.winmd --namespaces

  # Preview a filtered closure
  winmdgen inspect W.winmd -f "W.Graphics.*"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInspect,
	}

	cmd.Flags().StringArrayVarP(&inspectFilters, "filter", "f", nil, "Filter rule, prefix ! to exclude (repeatable)")
	cmd.Flags().BoolVar(&inspectNamespaces, "namespaces", false, "List namespaces with type counts only")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	c := cache.New()
	files := make([]*winmd.File, 0, len(args))
	for _, path := range args {
		f, err := c.Load(path)
		if err != nil {
			fmt.Fprint(os.Stderr, ui.InputError(path, err, color.NoColor))
			return fmt.Errorf("inspect failed")
		}
		files = append(files, f)
	}

	flt, ferr := filter.Compile(inspectFilters)
	if ferr != nil {
		fmt.Fprint(os.Stderr, diag.FormatError(ferr))
		return fmt.Errorf("inspect failed")
	}

	set, rerr := resolver.New(files, nil).Resolve(flt)
	if rerr != nil {
		fmt.Fprint(os.Stderr, diag.FormatError(rerr))
		return fmt.Errorf("inspect failed")
	}

	if inspectNamespaces {
		renderNamespaces(set)
		return nil
	}
	renderTypes(set)
	return nil
}

func renderNamespaces(set *resolver.TypeSet) {
	counts := make(map[string]int)
	var order []string
	for _, entry := range set.Types() {
		if counts[entry.Name.Namespace] == 0 {
			order = append(order, entry.Name.Namespace)
		}
		counts[entry.Name.Namespace]++
	}

	ui.Header(os.Stdout, "Namespaces", color.NoColor)
	table := ui.NewTable(os.Stdout, []string{"Namespace", "Types"}, &ui.TableOptions{NoColor: color.NoColor})
	for _, ns := range order {
		table.AddRow(ns, fmt.Sprintf("%d", counts[ns]))
	}
	table.Render()
	fmt.Printf("\n%d type(s) total\n", set.Len())
}

func renderTypes(set *resolver.TypeSet) {
	table := ui.NewTable(os.Stdout, []string{"Namespace", "Type", "Category", "Arch"}, &ui.TableOptions{NoColor: color.NoColor})
	for _, entry := range set.Types() {
		name := strings.TrimPrefix(entry.Key(), entry.Name.Namespace+".")
		table.AddRow(entry.Name.Namespace, name, entry.Category.String(), archNames(entry.Arch))
	}
	table.Render()
	fmt.Printf("\n%d type(s)\n", set.Len())
}

// archNames renders a supported-architecture mask for display.
func archNames(mask int32) string {
	if mask == 0 {
		return "all"
	}
	var names []string
	if mask&1 != 0 {
		names = append(names, "x86")
	}
	if mask&2 != 0 {
		names = append(names, "x64")
	}
	if mask&4 != 0 {
		names = append(names, "arm64")
	}
	return strings.Join(names, ", ")
}
