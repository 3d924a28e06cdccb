//go:build windows

package cmd

import (
	"golang.org/x/sys/windows"
)

// stillActive is the exit code Windows reports for a process that has not
// exited yet.
const stillActive = 259

// isProcessRunning checks if a process with the given PID is still running.
// A handle can be opened for a process that already exited while other
// handles to it remain, so the exit code is checked as well.
func isProcessRunning(pid int) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)
	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err != nil {
		return false
	}
	return code == stillActive
}
