// Package launcher wires admission gating in front of a child command.
// It is the Go half of the launcher contract: the admission controller
// decides when the process may proceed, and the launcher then hands
// control to whatever pipeline the caller wrapped.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/genrun/genrun/internal/config"
	"github.com/genrun/genrun/internal/logging"
)

// Admitter blocks until the calling process may run under key, or
// fails with a non-retriable error. *admission.Controller implements
// it.
type Admitter interface {
	Admit(ctx context.Context, key string, maxInst int) error
}

// Launcher admission-gates and runs a child command.
type Launcher struct {
	cfg  *config.Config
	gate Admitter
	log  *logging.Logger
}

// New creates a Launcher. The logger may be nil.
func New(cfg *config.Config, gate Admitter, log *logging.Logger) *Launcher {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Launcher{cfg: cfg, gate: gate, log: log}
}

// Run waits for admission into the configured pool and then runs argv
// with inherited stdio, returning the child's exit code. An empty argv
// only performs the admission (gate-only mode) and returns 0.
//
// The slot occupied on admission is never returned: it stays in the
// shared table until this process exits and a later contender reclaims
// it.
func (l *Launcher) Run(ctx context.Context, argv []string) (int, error) {
	if dir := l.cfg.Output.Directory; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 1, fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	key := l.cfg.Admission.Key
	maxInst := l.cfg.Admission.MaxInstances

	l.log.Info("waiting for admission", "key", key, "max_instances", maxInst)
	if err := l.gate.Admit(ctx, key, maxInst); err != nil {
		return 1, err
	}
	l.log.Info("admitted", "key", key, "pid", os.Getpid())

	if len(argv) == 0 {
		return 0, nil
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	l.log.Debug("running command", "argv", argv)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			l.log.Info("command finished", "argv", argv, "exit_code", exitErr.ExitCode())
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("run %s: %w", argv[0], err)
	}

	l.log.Info("command finished", "argv", argv, "exit_code", 0)
	return 0, nil
}
