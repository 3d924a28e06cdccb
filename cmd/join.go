package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli"
	"github.com/zoomauto/zoomauto/cmd/common"
	"github.com/zoomauto/zoomauto/pkg/actuator"
)

var joinFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "link, l",
		Usage: "join link to open instead of a job's target",
	},
	cli.StringFlag{
		Name:  "meeting-id, m",
		Usage: "meeting id to open instead of a job's target",
	},
	cli.StringFlag{
		Name:  "password, p",
		Usage: "passcode for --meeting-id",
	},
}

// newActuator builds the actuator used by the test command and the daemon.
var newActuator = func(baseURL string) actuator.Actuator {
	return actuator.NewOpener(baseURL)
}

func join(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	e, ok := openEnv(ctx, "test")
	if !ok {
		return nil
	}
	defer e.Close()

	target := actuator.Target{
		URI:       ctx.String("link"),
		MeetingID: ctx.String("meeting-id"),
		Secret:    ctx.String("password"),
	}
	label := target.Label()
	if target.IsEmpty() {
		if ctx.Args().First() == "" {
			return common.PrintErrWithCmdHelp(ctx, errors.New("no job id, link or meeting id provided"))
		}
		j, ok := jobArg(ctx, e)
		if !ok {
			return nil
		}
		target, label = j.Target, j.DisplayName()
	}

	ack, err := newActuator(e.settings.JoinBaseURL).Actuate(context.Background(), target)
	if err != nil {
		e.log.Error("test join of %s failed: %v", label, err)
		common.PrintRuntimeErr(ctx, "test", "actuate", err)
		return nil
	}
	e.log.Info("test join of %s opened", label)
	fmt.Printf("Opened %s at %s\n", label, ack.At.Format("15:04:05"))
	return nil
}
