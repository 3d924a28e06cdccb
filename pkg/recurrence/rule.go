package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Kind names a Rule variant. It is the discriminator used when a rule is
// serialized.
type Kind string

const (
	KindOnce     Kind = "once"
	KindDaily    Kind = "daily"
	KindWeekly   Kind = "weekly"
	KindWeekdays Kind = "weekdays"
	KindCustom   Kind = "custom"
)

// Unit is the step of a Custom rule.
type Unit string

const (
	Day   Unit = "day"
	Week  Unit = "week"
	Month Unit = "month"
	Year  Unit = "year"
)

var (
	ErrNoWeekdays  = errors.New("at least one weekday is required")
	ErrInterval    = errors.New("interval must be a positive integer")
	ErrUnknownUnit = errors.New("unknown recurrence unit")
	ErrNoRunAt     = errors.New("one-off rule has no run time")
	ErrNilRule     = errors.New("recurrence rule is missing")
)

// TimeOfDay is a local wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// on returns the instant on day's calendar date at t, in loc.
func (t TimeOfDay) on(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
}

// Rule is implemented only by the variants declared in this package.
type Rule interface {
	Kind() Kind
	isRule()
}

// Once fires a single time at RunAt.
type Once struct {
	RunAt time.Time
}

// Daily fires every day at the job's time of day.
type Daily struct{}

// Weekly fires on each listed weekday.
type Weekly struct {
	Days []time.Weekday
}

// Weekdays fires Monday through Friday.
type Weekdays struct{}

// Custom fires every Interval units. Days is only consulted when Unit is
// Week. End, when set, is the last calendar day an occurrence may fall on.
type Custom struct {
	Interval int
	Unit     Unit
	Days     []time.Weekday
	End      *time.Time
}

func (Once) Kind() Kind     { return KindOnce }
func (Daily) Kind() Kind    { return KindDaily }
func (Weekly) Kind() Kind   { return KindWeekly }
func (Weekdays) Kind() Kind { return KindWeekdays }
func (Custom) Kind() Kind   { return KindCustom }

func (Once) isRule()     {}
func (Daily) isRule()    {}
func (Weekly) isRule()   {}
func (Weekdays) isRule() {}
func (Custom) isRule()   {}

var workWeek = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// ParseUnit accepts the English unit names as well as the localized names
// written by older schedule files.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "day", "days", "ngày":
		return Day, nil
	case "week", "weeks", "tuần":
		return Week, nil
	case "month", "months", "tháng":
		return Month, nil
	case "year", "years", "năm":
		return Year, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// Validate reports whether r can ever be scheduled sensibly. An empty weekday
// set is rejected even though Next tolerates it by returning no occurrence.
func Validate(r Rule) error {
	switch v := r.(type) {
	case nil:
		return ErrNilRule
	case Once:
		if v.RunAt.IsZero() {
			return ErrNoRunAt
		}
	case Daily, Weekdays:
	case Weekly:
		if len(v.Days) == 0 {
			return ErrNoWeekdays
		}
	case Custom:
		if v.Interval < 1 {
			return ErrInterval
		}
		switch v.Unit {
		case Day, Month, Year:
		case Week:
			if len(v.Days) == 0 {
				return ErrNoWeekdays
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnknownUnit, v.Unit)
		}
	default:
		return fmt.Errorf("unsupported rule %T", r)
	}
	return nil
}

// normalizeDays returns a sorted copy of days with duplicates and
// out-of-range values removed.
func normalizeDays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
