package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/genrun/genrun/internal/config"
)

// admitterFunc adapts a function to the Admitter interface.
type admitterFunc func(ctx context.Context, key string, maxInst int) error

func (f admitterFunc) Admit(ctx context.Context, key string, maxInst int) error {
	return f(ctx, key, maxInst)
}

func allow() Admitter {
	return admitterFunc(func(context.Context, string, int) error { return nil })
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Directory = filepath.Join(t.TempDir(), "out")
	return cfg
}

func TestRun_GateOnlyMode(t *testing.T) {
	l := New(testConfig(t), allow(), nil)

	code, err := l.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
}

func TestRun_RunsCommand(t *testing.T) {
	cfg := testConfig(t)
	marker := filepath.Join(t.TempDir(), "ran")
	l := New(cfg, allow(), nil)

	code, err := l.Run(context.Background(), []string{"sh", "-c", "touch " + marker})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("command did not run: %v", err)
	}
}

func TestRun_PropagatesExitCode(t *testing.T) {
	l := New(testConfig(t), allow(), nil)

	code, err := l.Run(context.Background(), []string{"sh", "-c", "exit 3"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 3 {
		t.Errorf("code = %d, want 3", code)
	}
}

func TestRun_AdmissionDeniedSkipsCommand(t *testing.T) {
	denied := errors.New("pool gone")
	gate := admitterFunc(func(context.Context, string, int) error { return denied })

	marker := filepath.Join(t.TempDir(), "ran")
	l := New(testConfig(t), gate, nil)

	code, err := l.Run(context.Background(), []string{"sh", "-c", "touch " + marker})
	if !errors.Is(err, denied) {
		t.Fatalf("Run = %v, want admission error", err)
	}
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("command ran despite denied admission")
	}
}

func TestRun_PassesConfiguredPool(t *testing.T) {
	cfg := testConfig(t)
	cfg.Admission.Key = "pool-x"
	cfg.Admission.MaxInstances = 7

	var gotKey string
	var gotMax int
	gate := admitterFunc(func(_ context.Context, key string, maxInst int) error {
		gotKey, gotMax = key, maxInst
		return nil
	})

	if _, err := New(cfg, gate, nil).Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotKey != "pool-x" || gotMax != 7 {
		t.Errorf("admitted with (%q, %d), want (pool-x, 7)", gotKey, gotMax)
	}
}

func TestRun_CreatesOutputDirectory(t *testing.T) {
	cfg := testConfig(t)
	l := New(cfg, allow(), nil)

	if _, err := l.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if info, err := os.Stat(cfg.Output.Directory); err != nil || !info.IsDir() {
		t.Errorf("output directory was not created: %v", err)
	}
}

func TestRun_CommandNotFound(t *testing.T) {
	l := New(testConfig(t), allow(), nil)

	code, err := l.Run(context.Background(), []string{"definitely-not-a-command-genrun"})
	if err == nil {
		t.Fatal("Run should fail for a missing command")
	}
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
}
