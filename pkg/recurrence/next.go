package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// maxCycles bounds the search loops of calendar-stepping rules.
const maxCycles = 4096

// Next returns the first occurrence of r strictly after after. The boolean is
// false when the rule has no remaining occurrence.
//
// anchor is the instant the job was (re)armed; it fixes the cycle of Custom
// rules and is ignored by the other variants. Occurrences are computed in
// after's location.
func Next(r Rule, tod TimeOfDay, anchor, after time.Time) (time.Time, bool) {
	loc := after.Location()
	switch v := r.(type) {
	case Once:
		if v.RunAt.IsZero() || !v.RunAt.After(after) {
			return time.Time{}, false
		}
		return v.RunAt, true
	case Daily, Weekly, Weekdays:
		expr, ok := CronExpr(v, tod)
		if !ok {
			return time.Time{}, false
		}
		next, err := gronx.NextTickAfter(expr, after, false)
		if err != nil {
			return time.Time{}, false
		}
		return next.In(loc), true
	case Custom:
		next, ok := nextCustom(v, tod, anchor.In(loc), after)
		if !ok {
			return time.Time{}, false
		}
		if v.End != nil && pastEnd(next, *v.End) {
			return time.Time{}, false
		}
		return next, true
	}
	return time.Time{}, false
}

// CronExpr renders the calendar-aligned variants as a five field cron
// expression. Once and Custom have no cron form.
func CronExpr(r Rule, tod TimeOfDay) (string, bool) {
	var dow string
	switch v := r.(type) {
	case Daily:
		dow = "*"
	case Weekdays:
		dow = "1-5"
	case Weekly:
		days := normalizeDays(v.Days)
		if len(days) == 0 {
			return "", false
		}
		parts := make([]string, len(days))
		for i, d := range days {
			parts[i] = strconv.Itoa(int(d))
		}
		dow = strings.Join(parts, ",")
	default:
		return "", false
	}
	return fmt.Sprintf("%d %d * * %s", tod.Minute, tod.Hour, dow), true
}

func nextCustom(c Custom, tod TimeOfDay, anchor, after time.Time) (time.Time, bool) {
	n := c.Interval
	if n < 1 {
		n = 1
	}
	loc := after.Location()
	switch c.Unit {
	case Day:
		return nextEveryNDays(n, tod, anchor, after, loc), true
	case Week:
		days := normalizeDays(c.Days)
		sort.Slice(days, func(i, j int) bool { return isoOffset(days[i]) < isoOffset(days[j]) })
		return nextEveryNWeeks(n, days, tod, anchor, after, loc)
	case Month:
		return nextEveryNMonths(n, tod, anchor, after, loc)
	case Year:
		return nextEveryNMonths(12*n, tod, anchor, after, loc)
	}
	return time.Time{}, false
}

func nextEveryNDays(n int, tod TimeOfDay, anchor, after time.Time, loc *time.Location) time.Time {
	start := tod.on(anchor, loc)
	if start.After(after) {
		return start
	}
	k := daysBetween(start, after) / n
	next := start.AddDate(0, 0, k*n)
	for !next.After(after) {
		next = next.AddDate(0, 0, n)
	}
	return next
}

// nextEveryNWeeks fires on the listed weekdays of every n-th week counted
// from the anchor's week. Weeks start on Monday and days must be in week
// order.
func nextEveryNWeeks(n int, days []time.Weekday, tod TimeOfDay, anchor, after time.Time, loc *time.Location) (time.Time, bool) {
	if len(days) == 0 {
		return time.Time{}, false
	}
	anchorMonday := mondayOf(anchor)
	week := mondayOf(after)
	if week.Before(anchorMonday) {
		week = anchorMonday
	}
	if off := (daysBetween(anchorMonday, week) / 7) % n; off != 0 {
		week = week.AddDate(0, 0, 7*(n-off))
	}
	for i := 0; i < maxCycles; i++ {
		for _, d := range days {
			cand := tod.on(week.AddDate(0, 0, isoOffset(d)), loc)
			if cand.After(after) {
				return cand, true
			}
		}
		week = week.AddDate(0, 0, 7*n)
	}
	return time.Time{}, false
}

// nextEveryNMonths steps n months from the anchor date, keeping its day of
// month and clamping to the last day of shorter months.
func nextEveryNMonths(n int, tod TimeOfDay, anchor, after time.Time, loc *time.Location) (time.Time, bool) {
	ay, am, ad := anchor.Date()
	k := 0
	if elapsed := monthsBetween(anchor, after); elapsed > n {
		k = elapsed/n - 1
	}
	for i := 0; i < maxCycles; i, k = i+1, k+1 {
		y, m := addMonths(ay, am, k*n)
		d := ad
		if last := daysIn(y, m); d > last {
			d = last
		}
		cand := time.Date(y, m, d, tod.Hour, tod.Minute, 0, 0, loc)
		if cand.After(after) {
			return cand, true
		}
	}
	return time.Time{}, false
}

// pastEnd reports whether t falls on a calendar day after end's date.
func pastEnd(t, end time.Time) bool {
	ey, em, ed := end.Date()
	ty, tm, td := t.Date()
	return civil(ty, tm, td).After(civil(ey, em, ed))
}

func civil(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a's date to b's date.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return int(civil(by, bm, bd).Sub(civil(ay, am, ad)).Hours() / 24)
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func addMonths(y int, m time.Month, months int) (int, time.Month) {
	total := int(m) - 1 + months
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	return y, time.Month(total + 1)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// mondayOf returns midnight of the Monday starting t's week, in t's location.
func mondayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -isoOffset(t.Weekday()))
}

// isoOffset is the weekday's distance from Monday.
func isoOffset(d time.Weekday) int {
	return (int(d) + 6) % 7
}
