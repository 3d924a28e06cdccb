package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Describe renders r for listings.
func Describe(r Rule) string {
	switch v := r.(type) {
	case Once:
		return "once at " + v.RunAt.Format("2006-01-02 15:04")
	case Daily:
		return "every day"
	case Weekdays:
		return "Monday to Friday"
	case Weekly:
		return "every week on " + dayList(v.Days)
	case Custom:
		var s string
		if v.Unit == Week {
			s = fmt.Sprintf("every %d week(s) on %s", v.Interval, dayList(v.Days))
		} else {
			s = fmt.Sprintf("every %d %s(s)", v.Interval, v.Unit)
		}
		if v.End != nil {
			s += " until " + v.End.Format("2006-01-02")
		}
		return s
	case nil:
		return "none"
	}
	return fmt.Sprintf("%T", r)
}

func dayList(days []time.Weekday) string {
	days = normalizeDays(days)
	if len(days) == 0 {
		return "no days"
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()[:3]
	}
	return strings.Join(names, ", ")
}
