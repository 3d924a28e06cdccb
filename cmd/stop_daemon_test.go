//go:build !windows

package cmd

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/zoomauto/zoomauto/common"
)

func TestStopDaemon_NoPidFile(t *testing.T) {
	useDataDir(t)
	runCLI(t, "stop")
}

func TestStopDaemon_StalePidFileIsRemoved(t *testing.T) {
	dir := useDataDir(t)
	path := filepath.Join(dir, common.PidFileName)
	if err := os.WriteFile(path, []byte("999999999"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	runCLI(t, "stop")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected stale PID file to be removed, got %v", err)
	}
}

func TestStopDaemon_StopsProcess(t *testing.T) {
	dir := useDataDir(t)
	proc := exec.Command("sleep", "30")
	if err := proc.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = proc.Wait()
		close(exited)
	}()
	path := filepath.Join(dir, common.PidFileName)
	if err := os.WriteFile(path, []byte(strconv.Itoa(proc.Process.Pid)), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	runCLI(t, "stop")

	select {
	case <-exited:
	case <-time.After(10 * time.Second):
		_ = proc.Process.Kill()
		t.Fatal("helper process was not stopped")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected PID file to be removed, got %v", err)
	}
}
