//go:build windows

package actuator

import (
	"context"
	"os/exec"
	"syscall"
)

func openURL(_ context.Context, u string) error {
	cmd := exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
