package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Installer finishes an update after the current process exits.
type Installer interface {
	// Install hands newFile over. It returns once the hand-off is started;
	// the caller must then exit so the executable can be replaced.
	Install(ctx context.Context, newFile string) error
}

// ScriptInstaller stages the new build next to the executable and launches a
// detached helper script that waits for PID to exit, swaps the files,
// relaunches the program and deletes itself.
type ScriptInstaller struct {
	Exe  string
	Args []string
	PID  int
	// ScriptDir holds the helper script. Defaults to the OS temp dir.
	ScriptDir string

	fs     afero.Fs
	now    func() time.Time
	launch func(script string) error
}

// NewScriptInstaller returns an installer for the running executable.
func NewScriptInstaller(args []string) (*ScriptInstaller, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return &ScriptInstaller{
		Exe:       exe,
		Args:      args,
		PID:       os.Getpid(),
		ScriptDir: os.TempDir(),
		fs:        afero.NewOsFs(),
		now:       time.Now,
		launch:    launchDetached,
	}, nil
}

func (s *ScriptInstaller) Install(_ context.Context, newFile string) error {
	staged := s.Exe + ".new"
	if err := moveFile(s.fs, newFile, staged); err != nil {
		return fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}
	if err := s.fs.Chmod(staged, 0o755); err != nil {
		s.fs.Remove(staged)
		return fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}
	script := filepath.Join(s.ScriptDir, fmt.Sprintf("zoomauto_apply_update_%d%s", s.now().Unix(), scriptExt))
	body := renderScript(s.PID, staged, s.Exe, s.Args)
	if err := afero.WriteFile(s.fs, script, []byte(body), 0o700); err != nil {
		s.fs.Remove(staged)
		return fmt.Errorf("%w: write helper: %v", ErrApplyFailed, err)
	}
	if err := s.launch(script); err != nil {
		s.fs.Remove(staged)
		s.fs.Remove(script)
		return fmt.Errorf("%w: start helper: %v", ErrApplyFailed, err)
	}
	return nil
}

// shellScript waits for pid, replaces exe and relaunches it.
func shellScript(pid int, staged, exe string, args []string) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "pid=%d\n", pid)
	b.WriteString("while kill -0 \"$pid\" 2>/dev/null; do sleep 1; done\n")
	fmt.Fprintf(&b, "mv -f %s %s || exit 1\n", shQuote(staged), shQuote(exe))
	cmd := []string{shQuote(exe)}
	for _, a := range args {
		cmd = append(cmd, shQuote(a))
	}
	fmt.Fprintf(&b, "nohup %s >/dev/null 2>&1 &\n", strings.Join(cmd, " "))
	b.WriteString("rm -f \"$0\"\n")
	return b.String()
}

// batchScript is the Windows flavour of shellScript.
func batchScript(pid int, staged, exe string, args []string) string {
	var b strings.Builder
	b.WriteString("@echo off\r\n")
	b.WriteString("setlocal enableextensions\r\n")
	fmt.Fprintf(&b, "set CURR=\"%s\"\r\n", exe)
	fmt.Fprintf(&b, "set NEW=\"%s\"\r\n", staged)
	fmt.Fprintf(&b, "set PID=%d\r\n", pid)
	b.WriteString("\r\n:waitloop\r\n")
	b.WriteString("timeout /t 1 /nobreak >nul\r\n")
	b.WriteString("tasklist /fi \"PID eq %PID%\" | find \"%PID%\" >nul\r\n")
	b.WriteString("if %ERRORLEVEL%==0 goto waitloop\r\n\r\n")
	b.WriteString("move /y %NEW% %CURR% >nul\r\n")
	b.WriteString("if %ERRORLEVEL% NEQ 0 (\r\n  echo Failed to replace file.\r\n  exit /b 1\r\n)\r\n\r\n")
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "\"" + a + "\""
	}
	fmt.Fprintf(&b, "start \"\" %%CURR%% %s\r\n", strings.Join(quoted, " "))
	b.WriteString("start \"\" cmd /c del /q \"%~f0\" >nul 2>&1\r\n")
	return b.String()
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
