package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/winmdgen/winmdgen/internal/diag"
)

func TestFormatMessage(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name string
		opts MessageOptions
		want []string
	}{
		{
			name: "error with context",
			opts: MessageOptions{
				Level:   MessageLevelError,
				Context: "invalid input",
				Problem: "Cannot load 'missing.winmd'.",
				NoColor: true,
			},
			want: []string{"INVALID INPUT", "Cannot load 'missing.winmd'."},
		},
		{
			name: "warning with suggestions",
			opts: MessageOptions{
				Level:       MessageLevelWarning,
				Problem:     "Rule 'Windows.Fundation.*' matches no type.",
				Suggestions: []string{"Windows.Foundation"},
				NoColor:     true,
			},
			want: []string{"matches no type", "Did you mean: Windows.Foundation?"},
		},
		{
			name: "help commands",
			opts: MessageOptions{
				Level:        MessageLevelError,
				Problem:      "No inputs given.",
				HelpCommands: []string{"Get help: winmdgen generate --help"},
				NoColor:      true,
			},
			want: []string{"→ Get help: winmdgen generate --help"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatMessage(tt.opts)
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("FormatMessage() missing %q in:\n%s", want, out)
				}
			}
		})
	}
}

func TestUnmatchedFilterWarning(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	out := UnmatchedFilterWarning("Windows.Fundation.*",
		[]string{"Windows.Foundation", "Windows.Storage"}, true)

	if !strings.Contains(out, "UNMATCHED FILTER") {
		t.Errorf("warning missing context header:\n%s", out)
	}
	if !strings.Contains(out, "Windows.Foundation") {
		t.Errorf("warning missing fuzzy suggestion:\n%s", out)
	}
	if !strings.Contains(out, "winmdgen inspect") {
		t.Errorf("warning missing help command:\n%s", out)
	}
}

func TestInputError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	out := InputError("broken.winmd", errors.New("no BSJB signature"), true)
	if !strings.Contains(out, "INVALID INPUT") {
		t.Errorf("input error missing context:\n%s", out)
	}
	if !strings.Contains(out, "no BSJB signature") {
		t.Errorf("input error missing cause:\n%s", out)
	}
}

func TestConfigError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	out := ConfigError("invalid output.layout", true)
	if !strings.Contains(out, "CONFIGURATION ERROR") {
		t.Errorf("config error missing context:\n%s", out)
	}
	if !strings.Contains(out, "winmdgen init") {
		t.Errorf("config error missing help command:\n%s", out)
	}
}

func TestFormatSuccess(t *testing.T) {
	out := FormatSuccess("Generated 3 files", true)
	if !strings.Contains(out, "✓") {
		t.Errorf("success message missing check mark: %q", out)
	}
	if !strings.Contains(out, "Generated 3 files") {
		t.Errorf("success message missing text: %q", out)
	}
}

func TestWriteSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteSuccess(&buf, "done", true)
	if !strings.Contains(buf.String(), "done") {
		t.Errorf("WriteSuccess wrote %q", buf.String())
	}
}

func TestWriteDiagnostics(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	list := diag.List{
		diag.New(diag.CodeUnresolvedReference, diag.CategoryResolution,
			"cannot resolve NS.Missing"),
		diag.New(diag.CodeUnmatchedFilterRule, diag.CategoryFilter,
			"rule matches nothing").AsWarning(),
	}

	var buf bytes.Buffer
	WriteDiagnostics(&buf, list)

	out := buf.String()
	if !strings.Contains(out, "1 error(s)") {
		t.Errorf("diagnostics output missing error count:\n%s", out)
	}
	if !strings.Contains(out, "cannot resolve NS.Missing") {
		t.Errorf("diagnostics output missing error message:\n%s", out)
	}
	if !strings.Contains(out, "rule matches nothing") {
		t.Errorf("diagnostics output missing warning message:\n%s", out)
	}
}

func TestInfo(t *testing.T) {
	out := Info("Nothing to do", true)
	if !strings.Contains(out, "Nothing to do") {
		t.Errorf("info message missing text: %q", out)
	}
}
