package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/zoomauto/zoomauto/cmd/common"
	"github.com/zoomauto/zoomauto/pkg/jobs"
	"github.com/zoomauto/zoomauto/pkg/recurrence"
)

var (
	forceRemove bool

	jobFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "name, n",
			Usage: "a label for the meeting",
		},
		cli.StringFlag{
			Name:  "link, l",
			Usage: "join link of the meeting, used instead of the meeting id when both are set",
		},
		cli.StringFlag{
			Name:  "meeting-id, m",
			Usage: "numeric meeting id, spaces and dashes are ignored",
		},
		cli.StringFlag{
			Name:  "password, p",
			Usage: "meeting passcode, appended to the join url",
		},
		cli.StringFlag{
			Name:  "time, t",
			Usage: "time of day to join, HH:MM in 24h format",
		},
		cli.StringFlag{
			Name:  "repeat, r",
			Value: "daily",
			Usage: "once, daily, weekly, weekdays or custom",
		},
		cli.StringFlag{
			Name:  "at",
			Usage: `date and time of a one-off meeting, "YYYY-MM-DD HH:MM"`,
		},
		cli.StringFlag{
			Name:  "days, d",
			Usage: "weekdays of a weekly or custom weekly repeat, e.g. mon,wed,fri",
		},
		cli.IntFlag{
			Name:  "every",
			Value: 1,
			Usage: "interval of a custom repeat",
		},
		cli.StringFlag{
			Name:  "unit, u",
			Value: string(recurrence.Week),
			Usage: "unit of a custom repeat: day, week, month or year",
		},
		cli.StringFlag{
			Name:  "until",
			Usage: "last day of a custom repeat, YYYY-MM-DD",
		},
		cli.DurationFlag{
			Name:  "remind",
			Usage: "print a reminder this long before each meeting, e.g. 5m",
		},
		cli.BoolFlag{
			Name:  "disabled",
			Usage: "keep the job disabled (default: false)",
		},
	}

	rmFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "force, f",
			Usage:       "remove without asking for confirmation (default: false)",
			Destination: &forceRemove,
		},
	}
)

var ruleFlagNames = []string{"repeat", "at", "days", "every", "unit", "until"}

func ruleSpecFrom(ctx *cli.Context, base ruleSpec) ruleSpec {
	if ctx.IsSet("repeat") {
		base.Repeat = ctx.String("repeat")
	}
	if ctx.IsSet("at") {
		base.At = ctx.String("at")
	}
	if ctx.IsSet("days") {
		base.Days = ctx.String("days")
	}
	if ctx.IsSet("every") {
		base.Every = ctx.Int("every")
	}
	if ctx.IsSet("unit") {
		base.Unit = ctx.String("unit")
	}
	if ctx.IsSet("until") {
		base.Until = ctx.String("until")
	}
	return base
}

// applyJobFlags copies every flag the user set onto f. The time of day and
// the rule are only touched when one of their flags is set.
func applyJobFlags(ctx *cli.Context, f *jobs.Fields, base ruleSpec) error {
	if ctx.IsSet("name") {
		f.Name = ctx.String("name")
	}
	if ctx.IsSet("link") {
		f.URI = ctx.String("link")
	}
	if ctx.IsSet("meeting-id") {
		f.MeetingID = ctx.String("meeting-id")
	}
	if ctx.IsSet("password") {
		f.Secret = ctx.String("password")
	}
	if ctx.IsSet("remind") {
		f.RemindBefore = ctx.Duration("remind")
	}
	if ctx.IsSet("disabled") {
		f.Enabled = !ctx.Bool("disabled")
	}
	if ctx.IsSet("time") {
		h, m, err := parseClock(ctx.String("time"))
		if err != nil {
			return err
		}
		f.Hour, f.Minute = h, m
	}
	for _, name := range ruleFlagNames {
		if !ctx.IsSet(name) {
			continue
		}
		rule, err := buildRule(ruleSpecFrom(ctx, base), time.Local)
		if err != nil {
			return err
		}
		f.Recurrence = rule
		break
	}
	// A one-off job takes its time of day from the run date.
	if once, ok := f.Recurrence.(recurrence.Once); ok && ctx.IsSet("time") && !ctx.IsSet("at") {
		y, mo, d := once.RunAt.Date()
		f.Recurrence = recurrence.Once{RunAt: time.Date(y, mo, d, f.Hour, f.Minute, 0, 0, once.RunAt.Location())}
	}
	return nil
}

func add(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	f := jobs.Fields{Enabled: true, Recurrence: recurrence.Daily{}}
	spec := ruleSpec{Repeat: ctx.String("repeat"), Every: ctx.Int("every"), Unit: ctx.String("unit")}
	if err := applyJobFlags(ctx, &f, spec); err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	if _, once := f.Recurrence.(recurrence.Once); !once && !ctx.IsSet("time") {
		return common.PrintErrWithCmdHelp(ctx, errors.New("--time is required"))
	}

	e, ok := openEnv(ctx, "add")
	if !ok {
		return nil
	}
	defer e.Close()
	id, err := e.store.Create(f)
	if err != nil {
		common.PrintRuntimeErr(ctx, "add", "create", err)
		return nil
	}
	j, _ := e.store.Get(id)
	fmt.Printf("Added job %s: %s\n", id, describeJob(j))
	fmt.Printf("Next: %s\n", formatNext(j.Next(time.Now())))
	return nil
}

func edit(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	e, ok := openEnv(ctx, "edit")
	if !ok {
		return nil
	}
	defer e.Close()
	j, ok := jobArg(ctx, e)
	if !ok {
		return nil
	}
	f := jobs.FieldsOf(j)
	if err := applyJobFlags(ctx, &f, specOf(j.Recurrence)); err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	if err := e.store.Update(j.ID, f); err != nil {
		common.PrintRuntimeErr(ctx, "edit", "update", err)
		return nil
	}
	j, _ = e.store.Get(j.ID)
	fmt.Printf("Updated job %s: %s\n", j.ID, describeJob(j))
	return nil
}

func enable(ctx *cli.Context) error {
	return setEnabled(ctx, true)
}

func disable(ctx *cli.Context) error {
	return setEnabled(ctx, false)
}

func setEnabled(ctx *cli.Context, on bool) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	e, ok := openEnv(ctx, ctx.Command.Name)
	if !ok {
		return nil
	}
	defer e.Close()
	j, ok := jobArg(ctx, e)
	if !ok {
		return nil
	}
	if err := e.store.SetEnabled(j.ID, on); err != nil {
		common.PrintRuntimeErr(ctx, ctx.Command.Name, "set_enabled", err)
		return nil
	}
	state := "disabled"
	if on {
		state = "enabled"
	}
	fmt.Printf("Job %s %s.\n", j.DisplayName(), state)
	return nil
}

func remove(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	e, ok := openEnv(ctx, "remove")
	if !ok {
		return nil
	}
	defer e.Close()
	j, ok := jobArg(ctx, e)
	if !ok {
		return nil
	}
	if !common.Confirm(fmt.Sprintf("Remove job %q?", j.DisplayName()), forceRemove) {
		fmt.Println("Cancelled remove operation!")
		return nil
	}
	if err := e.store.Delete(j.ID); err != nil {
		common.PrintRuntimeErr(ctx, "remove", "delete", err)
		return nil
	}
	fmt.Printf("Removed job %s.\n", j.ID)
	return nil
}

func duplicate(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	e, ok := openEnv(ctx, "duplicate")
	if !ok {
		return nil
	}
	defer e.Close()
	j, ok := jobArg(ctx, e)
	if !ok {
		return nil
	}
	id, err := e.store.Duplicate(j.ID)
	if err != nil {
		common.PrintRuntimeErr(ctx, "duplicate", "create", err)
		return nil
	}
	fmt.Printf("Duplicated job %s as %s.\n", j.ID, id)
	return nil
}

func describeJob(j jobs.Job) string {
	s := fmt.Sprintf("%s at %s, %s", j.DisplayName(), j.TimeOfDay(), recurrence.Describe(j.Recurrence))
	if !j.Enabled {
		s += " (disabled)"
	}
	return s
}
