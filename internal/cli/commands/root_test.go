package commands

import (
	"testing"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "winmdgen" {
		t.Errorf("expected Use to be 'winmdgen', got %s", cmd.Use)
	}
	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}
	if cmd.Long == "" {
		t.Error("expected Long description to be set")
	}

	// Check subcommands are registered
	expectedCommands := []string{
		"version",
		"generate",
		"inspect",
		"init",
		"completion",
	}

	for _, expected := range expectedCommands {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %s to be registered", expected)
		}
	}
}

func TestNewVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	defer func() {
		Version = "dev"
		GitCommit = "unknown"
	}()

	cmd := NewVersionCommand()
	if cmd.Use != "version" {
		t.Errorf("expected Use to be 'version', got %s", cmd.Use)
	}
	if cmd.Run == nil {
		t.Error("expected Run to be set")
	}
}

func TestCompletionCommandRejectsUnknownShell(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"completion", "tcsh"})
	if err := root.Execute(); err == nil {
		t.Error("expected an error for an unsupported shell")
	}
}
