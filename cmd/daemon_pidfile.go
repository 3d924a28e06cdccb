package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WritePidFile writes the current process ID to path.
func WritePidFile(path string) error {
	pid := os.Getpid()
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644)
}

// ReadPidFile reads and returns the PID stored at path.
func ReadPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID: %d", pid)
	}
	return pid, nil
}

// RemovePidFile removes the PID file at path.
func RemovePidFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// runningDaemon returns the PID of a live daemon recorded at path. A stale
// file left by a crashed daemon reports false.
func runningDaemon(path string) (int, bool) {
	pid, err := ReadPidFile(path)
	if err != nil || pid == os.Getpid() {
		return 0, false
	}
	return pid, isProcessRunning(pid)
}
