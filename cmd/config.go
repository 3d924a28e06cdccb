package cmd

import "time"

const (
	DEF_UPDATE_POLL = time.Hour
	DEF_SHUTDOWN    = 10 * time.Second
)

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
zoomauto joins your meetings for you. Schedule a meeting link or ID
once, with a daily, weekly, weekday or custom repeat, and the
background daemon opens it at the right minute.
`

const (
	RunDescription = `The run command starts the scheduler daemon in the foreground.
It arms every enabled job, picks up edits made by the other
commands and opens each meeting when it is due.

Example:
        zoomauto run

`
	AddDescription = `The add command schedules a new meeting. Give either a
join link or a meeting ID (with an optional passcode).

Repeat can be one of: once, daily, weekly, weekdays, custom.

Examples:
        zoomauto add --name standup --meeting-id "123 456 7890" --time 09:30 --repeat weekdays
        zoomauto add --link https://zoom.us/j/1234567890 --repeat once --at "2025-03-01 14:00"
        zoomauto add --meeting-id 1234567890 --time 18:00 --repeat custom --every 2 --unit week --days mon,thu

`
	EditDescription = `The edit command changes an existing job. Only the flags
you pass are changed; everything else is kept.

Example:
        zoomauto edit <job id> --time 10:00 --repeat daily

`
	ListDescription = `The list command displays every scheduled job together
with its id, repeat rule and next occurrence.

Example:
        zoomauto list

`
	NextDescription = `The next command shows the earliest upcoming meeting
among the enabled jobs.

Example:
        zoomauto next

`
	RemoveDescription = `The remove command deletes a job and cancels its timers.

Example:
        zoomauto remove <job id>

`
	JoinDescription = `The test command opens a job's meeting right now, without
touching its schedule. A link or meeting ID may be given instead
of a job id.

Examples:
        zoomauto test <job id>
        zoomauto test --meeting-id 1234567890 --password secret

`
	UpdateDescription = `The update command checks the configured release feed and,
when a newer build exists, downloads, verifies and installs it.
A running daemon is stopped and started again afterwards.

Examples:
        zoomauto update --check
        zoomauto update

`
)
