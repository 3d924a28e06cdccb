package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli"
	"github.com/zoomauto/zoomauto/cmd/common"
)

func runDaemon(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	s, ok := loadSettings(ctx, "run")
	if !ok {
		return nil
	}
	l := newLogger(s, true)
	defer l.Close()

	pidFile := s.PidFile()
	if pid, running := runningDaemon(pidFile); running {
		common.PrintRuntimeErr(ctx, "run", "pidfile", fmt.Errorf("daemon already running (PID %d)", pid))
		return nil
	}
	if err := WritePidFile(pidFile); err != nil {
		common.PrintRuntimeErr(ctx, "run", "pidfile", err)
		return nil
	}
	defer RemovePidFile(pidFile)

	c, err := initDaemonComponents(context.Background(), s, l)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "init", err)
		return nil
	}
	defer c.Close()

	runner := newDaemonRunner(c, l)
	sigCtx, cancel := setupShutdownHandler(context.Background(), func(sig os.Signal) {
		l.Info("Received %s", sig)
		shutdownDaemon(runner, l)
	})
	defer cancel()

	l.Info("zoomauto %s started (PID %d), schedule %s", currentBuildArgs.Version, os.Getpid(), c.File.Path())
	err = runner.Start(sigCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		common.PrintRuntimeErr(ctx, "run", "start", err)
	}
	return nil
}
