package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zoomauto/zoomauto/pkg/recurrence"
)

const (
	dateLayout = "2006-01-02"
	atLayout   = "2006-01-02 15:04"
)

var (
	errBadClock  = errors.New("time must be HH:MM")
	errBadDay    = errors.New("unknown weekday")
	errBadRepeat = errors.New("repeat must be once, daily, weekly, weekdays or custom")
	errNoAt      = errors.New("--at is required for a one-off job")
)

var atLayouts = []string{
	atLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var dayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

// parseClock parses a 24h "HH:MM" time of day.
func parseClock(s string) (hour, minute int, err error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", errBadClock, s)
	}
	hour, herr := strconv.Atoi(hs)
	minute, merr := strconv.Atoi(ms)
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", errBadClock, s)
	}
	return hour, minute, nil
}

// parseDays parses a comma separated weekday list such as "mon,wed,fri".
func parseDays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		d, ok := dayNames[f]
		if !ok {
			return nil, fmt.Errorf("%w: %q", errBadDay, f)
		}
		days = append(days, d)
	}
	return days, nil
}

func formatDays(days []time.Weekday) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = strings.ToLower(d.String()[:3])
	}
	return strings.Join(names, ",")
}

func parseAt(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range atLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date and time %q, want %q", s, atLayout)
}

// ruleSpec is the flag form of a recurrence rule.
type ruleSpec struct {
	Repeat string
	At     string
	Days   string
	Every  int
	Unit   string
	Until  string
}

// specOf returns the flag form of r, so that an edit can change one part of
// a rule and keep the rest.
func specOf(r recurrence.Rule) ruleSpec {
	spec := ruleSpec{Repeat: "daily", Every: 1, Unit: string(recurrence.Week)}
	switch v := r.(type) {
	case recurrence.Once:
		spec.Repeat = "once"
		spec.At = v.RunAt.Format(atLayout)
	case recurrence.Weekdays:
		spec.Repeat = "weekdays"
	case recurrence.Weekly:
		spec.Repeat = "weekly"
		spec.Days = formatDays(v.Days)
	case recurrence.Custom:
		spec.Repeat = "custom"
		spec.Every = v.Interval
		spec.Unit = string(v.Unit)
		spec.Days = formatDays(v.Days)
		if v.End != nil {
			spec.Until = v.End.Format(dateLayout)
		}
	}
	return spec
}

// buildRule turns spec into a rule. Dates are read in loc.
func buildRule(spec ruleSpec, loc *time.Location) (recurrence.Rule, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Repeat)) {
	case "once", "one-off":
		if strings.TrimSpace(spec.At) == "" {
			return nil, errNoAt
		}
		at, err := parseAt(spec.At, loc)
		if err != nil {
			return nil, err
		}
		return recurrence.Once{RunAt: at}, nil
	case "", "daily":
		return recurrence.Daily{}, nil
	case "weekdays":
		return recurrence.Weekdays{}, nil
	case "weekly":
		days, err := parseDays(spec.Days)
		if err != nil {
			return nil, err
		}
		return recurrence.Weekly{Days: days}, nil
	case "custom":
		unit, err := recurrence.ParseUnit(strings.ToLower(strings.TrimSpace(spec.Unit)))
		if err != nil {
			return nil, err
		}
		c := recurrence.Custom{Interval: spec.Every, Unit: unit}
		if unit == recurrence.Week {
			if c.Days, err = parseDays(spec.Days); err != nil {
				return nil, err
			}
		}
		if u := strings.TrimSpace(spec.Until); u != "" {
			end, err := time.ParseInLocation(dateLayout, u, loc)
			if err != nil {
				return nil, fmt.Errorf("invalid --until %q, want %q", u, dateLayout)
			}
			c.End = &end
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", errBadRepeat, spec.Repeat)
}

// formatNext renders an occurrence for listings.
func formatNext(t time.Time, ok bool) string {
	if !ok {
		return "-"
	}
	return t.Format("Mon 02 Jan 15:04")
}
