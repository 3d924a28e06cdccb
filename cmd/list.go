package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/zoomauto/zoomauto/cmd/common"
	"github.com/zoomauto/zoomauto/pkg/actuator"
	"github.com/zoomauto/zoomauto/pkg/jobs"
	"github.com/zoomauto/zoomauto/pkg/recurrence"
)

const (
	nameWidth   = 20
	targetWidth = 16
)

// now is the clock used by list and next.
var now = time.Now

func list(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	e, ok := openEnv(ctx, "list")
	if !ok {
		return nil
	}
	defer e.Close()
	js := e.store.List()
	if len(js) == 0 {
		fmt.Println("zoomauto: no meetings scheduled")
		return nil
	}
	t := now()
	txt := "Here are your meetings:"
	txt += "\n\n--------------------------------------------------------------------------------------------"
	txt += "\n|  Id  |        Name        |     Meeting    | Time  |        Next       | Repeat"
	txt += "\n|------|--------------------|----------------|-------|-------------------|-----------------"
	for _, j := range js {
		next := formatNext(j.Next(t))
		if !j.Enabled {
			next = "disabled"
		}
		txt += fmt.Sprintf("\n| %s | %s | %s | %s | %s | %s",
			shortID(j.ID),
			fit(j.DisplayName(), nameWidth),
			fit(targetLabel(j.Target), targetWidth),
			j.TimeOfDay(),
			common.Beaut(next, 17),
			recurrence.Describe(j.Recurrence),
		)
	}
	txt += "\n--------------------------------------------------------------------------------------------"
	fmt.Println(txt)
	return nil
}

func next(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	e, ok := openEnv(ctx, "next")
	if !ok {
		return nil
	}
	defer e.Close()
	j, at, ok := earliest(e.store.List(), now())
	if !ok {
		fmt.Println("zoomauto: no upcoming meetings")
		return nil
	}
	fmt.Printf("Next meeting: %s\n", j.DisplayName())
	fmt.Printf("At:           %s (in %s)\n", at.Format("Mon 02 Jan 2006 15:04"), at.Sub(now()).Round(time.Minute))
	fmt.Printf("Job:          %s\n", j.ID)
	return nil
}

// earliest returns the enabled job due first after t. Ties go to the job
// listed first.
func earliest(js []jobs.Job, t time.Time) (jobs.Job, time.Time, bool) {
	var (
		best   jobs.Job
		bestAt time.Time
		found  bool
	)
	for _, j := range js {
		if !j.Enabled {
			continue
		}
		at, ok := j.Next(t)
		if !ok {
			continue
		}
		if !found || at.Before(bestAt) {
			best, bestAt, found = j, at, true
		}
	}
	return best, bestAt, found
}

func targetLabel(t actuator.Target) string {
	if id := actuator.NormalizeMeetingID(t.MeetingID); id != "" {
		return actuator.FormatMeetingID(id)
	}
	if t.URI != "" {
		return "link"
	}
	return "-"
}

// shortID is the id prefix shown in listings; it is enough to address the
// job in most stores.
func shortID(id string) string {
	if len(id) > minIDPrefix {
		return id[:minIDPrefix]
	}
	return fit(id, minIDPrefix)
}

// fit pads or truncates s to exactly n bytes.
func fit(s string, n int) string {
	switch {
	case len(s) > n:
		return s[:n-3] + "..."
	case len(s) < n:
		return common.Beaut(s, n)
	}
	return s
}
