package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/winmdgen/winmdgen/internal/diag"
)

// MessageLevel represents the severity of a terminal message
type MessageLevel int

const (
	MessageLevelError MessageLevel = iota
	MessageLevelWarning
	MessageLevelInfo
)

// MessageOptions configures the message formatting
type MessageOptions struct {
	Level        MessageLevel
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatMessage creates a standardized terminal message with suggestions
// and help commands
//
// Example output:
//
//	❌ UNMATCHED FILTER: Windows.Fundation.*
//	   The rule matches no type in the inputs.
//
//	   Did you mean: Windows.Foundation?
//
//	   → List namespaces: winmdgen inspect <input.winmd>
func FormatMessage(opts MessageOptions) string {
	var b strings.Builder

	var headerColor *color.Color
	var symbol string
	switch opts.Level {
	case MessageLevelError:
		headerColor = color.New(color.FgRed, color.Bold)
		symbol = "❌"
	case MessageLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		symbol = "⚠️"
	case MessageLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		symbol = "ℹ️"
	}
	if opts.NoColor {
		headerColor.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteMessage writes a formatted message to the writer
func WriteMessage(w io.Writer, opts MessageOptions) {
	fmt.Fprint(w, FormatMessage(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// WriteDiagnostics writes a list of generation diagnostics, errors first.
func WriteDiagnostics(w io.Writer, list diag.List) {
	errs, warns := list.Count()
	if errs > 0 {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintf(w, "\nGeneration failed with %d error(s):\n\n", errs)
	}
	for _, e := range list {
		if e.Severity != diag.SeverityError {
			continue
		}
		fmt.Fprint(w, diag.FormatError(e))
		fmt.Fprintln(w)
	}
	if warns > 0 {
		for _, e := range list {
			if e.Severity != diag.SeverityWarning {
				continue
			}
			fmt.Fprint(w, diag.FormatError(e))
			fmt.Fprintln(w)
		}
	}
}

// UnmatchedFilterWarning creates a warning for a filter rule that matched
// no type, with fuzzy suggestions from the available namespaces.
func UnmatchedFilterWarning(rule string, namespaces []string, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:       MessageLevelWarning,
		Context:     "UNMATCHED FILTER",
		Problem:     fmt.Sprintf("Rule '%s' matches no type in the inputs.", rule),
		Suggestions: FindSimilar(strings.TrimSuffix(strings.TrimPrefix(rule, "!"), ".*"), namespaces, nil),
		HelpCommands: []string{
			"List namespaces: winmdgen inspect <input.winmd>",
		},
		NoColor: noColor,
	})
}

// InputError creates a standardized metadata input error
func InputError(path string, err error, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:   MessageLevelError,
		Context: "INVALID INPUT",
		Problem: fmt.Sprintf("Cannot load '%s': %v.", path, err),
		HelpCommands: []string{
			"Check the path points at a .winmd metadata file",
			"Get help: winmdgen generate --help",
		},
		NoColor: noColor,
	})
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:   MessageLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat winmdgen.yml",
			"Regenerate it: winmdgen init",
		},
		NoColor: noColor,
	})
}

// Info creates a standardized info message
func Info(message string, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:   MessageLevelInfo,
		Problem: message,
		NoColor: noColor,
	})
}
