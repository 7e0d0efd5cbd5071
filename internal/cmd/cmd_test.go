package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/genrun/genrun/internal/admission"
	"github.com/genrun/genrun/internal/config"
	"github.com/spf13/cobra"
)

// executeCommand runs a cobra command with args and returns captured output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

func TestRootCommandFlags(t *testing.T) {
	for _, name := range []string{
		"max-instances", "key", "retry-interval", "max-attempts",
		"output-directory", "log-level", "log-dir",
	} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("root command is missing flag --%s", name)
		}
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("root command is missing persistent flag --config")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(rootCmd, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "genrun v"+Version) {
		t.Errorf("version output %q should contain %q", out, "genrun v"+Version)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"child exit code", &ExitError{Code: 3}, 3},
		{"wrapped child exit code", fmt.Errorf("launch: %w", &ExitError{Code: 7}), 7},
		{"validation errors", config.ValidationErrors{{Field: "admission.max_instances"}}, 2},
		{"invalid configuration", fmt.Errorf("admit: %w", admission.ErrInvalidConfiguration), 2},
		{"coordination failure", fmt.Errorf("admit: %w", admission.ErrCoordination), 1},
		{"generic error", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitError_Error(t *testing.T) {
	e := &ExitError{Code: 5}
	if e.Error() != "exit status 5" {
		t.Errorf("Error() = %q, want %q", e.Error(), "exit status 5")
	}
}
