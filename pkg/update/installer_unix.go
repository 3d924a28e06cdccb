//go:build !windows

package update

import (
	"os/exec"
	"syscall"
)

const scriptExt = ".sh"

var renderScript = shellScript

func launchDetached(script string) error {
	cmd := exec.Command("/bin/sh", script)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
