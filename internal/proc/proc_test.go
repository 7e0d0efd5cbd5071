package proc

import (
	"os"
	"os/exec"
	"testing"
)

func TestAlive_Self(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Error("Alive should report the current process as running")
	}
}

func TestAlive_ExitedProcess(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot spawn helper process: %v", err)
	}

	if Alive(cmd.Process.Pid) {
		t.Errorf("Alive(%d) = true for an exited process", cmd.Process.Pid)
	}
}

func TestAlive_InvalidPIDs(t *testing.T) {
	for _, pid := range []int{0, -1, -12345} {
		if Alive(pid) {
			t.Errorf("Alive(%d) = true, want false", pid)
		}
	}
}
