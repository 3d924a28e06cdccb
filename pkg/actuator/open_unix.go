//go:build !windows

package actuator

import (
	"context"
	"os/exec"
	"runtime"
)

// openURL starts the desktop URL handler without waiting for it to exit.
// The handler outlives the caller, so it is not bound to a context.
func openURL(_ context.Context, u string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}
	cmd := exec.Command(name, u)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
