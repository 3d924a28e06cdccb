package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/zoomauto/zoomauto/cmd/common"
	"github.com/zoomauto/zoomauto/pkg/update"
)

var (
	checkOnly   bool
	assumeYes   bool
	updateFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "check, c",
			Usage:       "only report whether a newer release exists (default: false)",
			Destination: &checkOnly,
		},
		cli.BoolFlag{
			Name:        "yes, y",
			Usage:       "install without asking for confirmation (default: false)",
			Destination: &assumeYes,
		},
	}
)

func selfUpdate(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	s, ok := loadSettings(ctx, "update")
	if !ok {
		return nil
	}
	l := newLogger(s, false)
	defer l.Close()

	cfg, path, err := update.LoadConfig(fileSystem, s.UpdateDirs()...)
	if err != nil {
		common.PrintRuntimeErr(ctx, "update", "load_config", err)
		return nil
	}
	if !cfg.Enabled() {
		fmt.Printf("Updates are not configured. Set \"repo\" in %s next to the executable or in %s.\n",
			update.ConfigFileName, s.DataDir)
		return nil
	}
	if path != "" {
		l.Debug("update config loaded from %s", path)
	}

	p := &update.Pipeline{
		Config:      cfg,
		Current:     currentBuildArgs.Version,
		Checker:     newChecker(s),
		TempDir:     filepath.Join(os.TempDir(), "zoomauto-update"),
		IdleTimeout: s.DownloadTimeout,
		Log:         l,
	}

	if checkOnly {
		info, err := p.Check(context.Background())
		switch {
		case err == nil:
			fmt.Printf("zoomauto %s is available (running %s).\n", info.Version, currentBuildArgs.Version)
			if info.Notes != "" {
				fmt.Printf("\n%s\n", info.Notes)
			}
		case errors.Is(err, update.ErrNoUpdate):
			fmt.Println("zoomauto is up to date.")
		default:
			common.PrintRuntimeErr(ctx, "update", "check", err)
		}
		return nil
	}

	inst, err := update.NewScriptInstaller(nil)
	if err != nil {
		common.PrintRuntimeErr(ctx, "update", "installer", err)
		return nil
	}
	p.Installer = &daemonHandoff{
		installer: inst,
		relaunch:  func(args []string) { inst.Args = args },
		pidFile:   s.PidFile(),
		stop:      killDaemon,
	}

	sigCtx, cancel := setupShutdownHandler(context.Background(), nil)
	defer cancel()

	progress := mpb.NewWithContext(sigCtx, mpb.WithWidth(64))
	var bar *mpb.Bar
	p.Exit = func(code int) {
		progress.Wait()
		fmt.Println("Update handed off, zoomauto will restart shortly.")
		os.Exit(code)
	}
	hooks := update.Hooks{
		Confirm: func(current string, info *update.Info) bool {
			return common.Confirm(fmt.Sprintf("Update zoomauto %s to %s?", current, info.Version), assumeYes)
		},
		Progress: func(done, total int64) {
			if bar == nil {
				bar = common.InitUpdateBar(progress, "Downloading", total)
			}
			bar.SetCurrent(done)
		},
		Stage: func(stage update.Stage) {
			if stage == update.StageVerify && bar != nil {
				bar.SetTotal(-1, true)
			}
		},
	}

	info, err := p.Run(sigCtx, hooks)
	if bar != nil && !bar.Completed() {
		bar.Abort(false)
	}
	progress.Wait()
	switch {
	case errors.Is(err, update.ErrNoUpdate):
		fmt.Println("zoomauto is up to date.")
	case err != nil:
		common.PrintRuntimeErr(ctx, "update", stageOf(err), err)
	case info != nil:
		fmt.Printf("Updated to %s.\n", info.Version)
	}
	return nil
}

// daemonHandoff wraps the installer so a running daemon is only stopped
// once the helper that swaps the executable is running. The helper then
// starts the daemon again with "run". If the hand-off fails the daemon keeps
// running the old build.
type daemonHandoff struct {
	installer update.Installer
	relaunch  func(args []string)
	pidFile   string
	stop      func(pid int) error
}

func (d *daemonHandoff) Install(ctx context.Context, newFile string) error {
	pid, running := runningDaemon(d.pidFile)
	if running {
		d.relaunch([]string{"run"})
	}
	if err := d.installer.Install(ctx, newFile); err != nil {
		d.relaunch(nil)
		return err
	}
	if !running {
		return nil
	}
	fmt.Printf("Stopping daemon (PID %d) for the update...\n", pid)
	if err := d.stop(pid); err != nil {
		// The relaunched daemon finds this one in the pidfile and exits.
		fmt.Fprintf(os.Stderr, "Error stopping daemon: %v\n", err)
	}
	return nil
}

func stageOf(err error) string {
	var se *update.StageError
	if errors.As(err, &se) {
		return string(se.Stage)
	}
	return "run"
}
