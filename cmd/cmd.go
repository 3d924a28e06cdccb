package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	"github.com/zoomauto/zoomauto/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// currentBuildArgs holds the build information for the update commands.
var currentBuildArgs BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "zoomauto",
		HelpName:              "zoomauto",
		Usage:                 "Joins your scheduled meetings on time.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "zoomauto <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:               "run",
				Aliases:            []string{"daemon"},
				Usage:              "start the scheduler daemon",
				Action:             runDaemon,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        RunDescription,
			},
			{
				Name:   "stop",
				Usage:  "stop a running daemon",
				Action: stopDaemon,
			},
			{
				Name:                   "add",
				Aliases:                []string{"a"},
				Usage:                  "schedule a new meeting",
				Action:                 add,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            AddDescription,
				UseShortOptionHandling: true,
				Flags:                  jobFlags,
			},
			{
				Name:               "edit",
				Aliases:            []string{"e"},
				Usage:              "change a scheduled meeting",
				Action:             edit,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        EditDescription,
				UsageText:          "<job id> [flags...]",
				Flags:              jobFlags,
			},
			{
				Name:               "enable",
				Usage:              "enable a job",
				UsageText:          "<job id>",
				Action:             enable,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
			},
			{
				Name:               "disable",
				Usage:              "disable a job without removing it",
				UsageText:          "<job id>",
				Action:             disable,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
			},
			{
				Name:               "remove",
				Aliases:            []string{"rm"},
				Usage:              "delete a job",
				Action:             remove,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        RemoveDescription,
				Flags:              rmFlags,
			},
			{
				Name:               "duplicate",
				Aliases:            []string{"dup"},
				Usage:              "copy a job under a new id",
				UsageText:          "<job id>",
				Action:             duplicate,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
			},
			{
				Name:               "list",
				Aliases:            []string{"l"},
				Usage:              "display scheduled meetings",
				Action:             list,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ListDescription,
			},
			{
				Name:               "next",
				Usage:              "show the next meeting due",
				Action:             next,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        NextDescription,
			},
			{
				Name:               "test",
				Aliases:            []string{"join"},
				Usage:              "open a meeting now",
				Action:             join,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        JoinDescription,
				Flags:              joinFlags,
			},
			{
				Name:               "update",
				Usage:              "update zoomauto to the latest release",
				Action:             selfUpdate,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        UpdateDescription,
				Flags:              updateFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of zoomauto",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:      common.Help,
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
