package storage

import (
	"fmt"
	"time"

	"github.com/zoomauto/zoomauto/pkg/actuator"
	"github.com/zoomauto/zoomauto/pkg/jobs"
	"github.com/zoomauto/zoomauto/pkg/recurrence"
)

// Layouts accepted for run_date and end_date. The first one is written.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

const dateLayout = "2006-01-02"

// record is the on-disk shape of a job. Field names match the schedule files
// written by earlier releases so they keep loading.
type record struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Hour                int             `json:"hour"`
	Minute              int             `json:"minute"`
	MeetingID           string          `json:"meeting_id"`
	Password            string          `json:"password"`
	ZoomLink            string          `json:"zoom_link"`
	Enabled             bool            `json:"enabled"`
	Recurrence          *recurrenceJSON `json:"recurrence"`
	Anchor              string          `json:"anchor,omitempty"`
	RemindBeforeMinutes int             `json:"remind_before_minutes,omitempty"`
	CreatedAt           string          `json:"created_at,omitempty"`
	UpdatedAt           string          `json:"updated_at,omitempty"`
}

type recurrenceJSON struct {
	Type    string       `json:"type"`
	RunDate string       `json:"run_date,omitempty"`
	Details *detailsJSON `json:"details,omitempty"`
}

type detailsJSON struct {
	Interval   int    `json:"interval,omitempty"`
	Unit       string `json:"unit,omitempty"`
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
}

func toRecord(j jobs.Job) record {
	r := record{
		ID:                  j.ID,
		Name:                j.Name,
		Hour:                j.Hour,
		Minute:              j.Minute,
		MeetingID:           j.Target.MeetingID,
		Password:            j.Target.Secret,
		ZoomLink:            j.Target.URI,
		Enabled:             j.Enabled,
		Recurrence:          encodeRule(j.Recurrence),
		RemindBeforeMinutes: int(j.RemindBefore / time.Minute),
	}
	if !j.Anchor.IsZero() {
		r.Anchor = j.Anchor.Format(time.RFC3339)
	}
	if !j.CreatedAt.IsZero() {
		r.CreatedAt = j.CreatedAt.Format(time.RFC3339)
	}
	if !j.UpdatedAt.IsZero() {
		r.UpdatedAt = j.UpdatedAt.Format(time.RFC3339)
	}
	return r
}

func fromRecord(key string, r record) (jobs.Job, error) {
	rule, err := decodeRule(r.Recurrence)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("job %s: %w", key, err)
	}
	id := r.ID
	if id == "" {
		id = key
	}
	j := jobs.Job{
		ID:   id,
		Name: r.Name,
		Target: actuator.Target{
			URI:       r.ZoomLink,
			MeetingID: r.MeetingID,
			Secret:    r.Password,
		},
		Hour:         r.Hour,
		Minute:       r.Minute,
		Enabled:      r.Enabled,
		Recurrence:   rule,
		RemindBefore: time.Duration(r.RemindBeforeMinutes) * time.Minute,
	}
	j.Anchor, _ = parseTime(r.Anchor)
	j.CreatedAt, _ = parseTime(r.CreatedAt)
	j.UpdatedAt, _ = parseTime(r.UpdatedAt)
	return j, nil
}

func encodeRule(rule recurrence.Rule) *recurrenceJSON {
	switch v := rule.(type) {
	case recurrence.Once:
		return &recurrenceJSON{Type: string(recurrence.KindOnce), RunDate: v.RunAt.Local().Format(timeLayouts[0])}
	case recurrence.Daily:
		return &recurrenceJSON{Type: string(recurrence.KindDaily)}
	case recurrence.Weekdays:
		return &recurrenceJSON{Type: string(recurrence.KindWeekdays)}
	case recurrence.Weekly:
		return &recurrenceJSON{
			Type:    string(recurrence.KindWeekly),
			Details: &detailsJSON{Interval: 1, Unit: string(recurrence.Week), DaysOfWeek: encodeDays(v.Days)},
		}
	case recurrence.Custom:
		d := &detailsJSON{Interval: v.Interval, Unit: string(v.Unit)}
		if v.Unit == recurrence.Week {
			d.DaysOfWeek = encodeDays(v.Days)
		}
		if v.End != nil {
			d.EndDate = v.End.Format(dateLayout)
		}
		return &recurrenceJSON{Type: string(recurrence.KindCustom), Details: d}
	}
	return nil
}

// decodeRule maps the stored recurrence back to a Rule. Files written before
// recurrences existed have none; those jobs ran daily.
func decodeRule(r *recurrenceJSON) (recurrence.Rule, error) {
	if r == nil || r.Type == "" {
		return recurrence.Daily{}, nil
	}
	d := r.Details
	if d == nil {
		d = &detailsJSON{}
	}
	switch recurrence.Kind(r.Type) {
	case recurrence.KindOnce:
		at, err := parseTime(r.RunDate)
		if err != nil {
			return nil, fmt.Errorf("run_date: %w", err)
		}
		return recurrence.Once{RunAt: at}, nil
	case recurrence.KindDaily:
		return recurrence.Daily{}, nil
	case recurrence.KindWeekdays:
		return recurrence.Weekdays{}, nil
	case recurrence.KindWeekly:
		days, err := decodeDays(d.DaysOfWeek)
		if err != nil {
			return nil, err
		}
		return recurrence.Weekly{Days: days}, nil
	case recurrence.KindCustom:
		c := recurrence.Custom{Interval: d.Interval}
		if c.Interval < 1 {
			c.Interval = 1
		}
		unit := d.Unit
		if unit == "" {
			unit = string(recurrence.Week)
		}
		var err error
		if c.Unit, err = recurrence.ParseUnit(unit); err != nil {
			return nil, err
		}
		if c.Days, err = decodeDays(d.DaysOfWeek); err != nil {
			return nil, err
		}
		if d.EndDate != "" {
			end, err := parseTime(d.EndDate)
			if err != nil {
				return nil, fmt.Errorf("end_date: %w", err)
			}
			c.End = &end
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown recurrence type %q", r.Type)
}

// Stored weekdays count from Monday = 0.
func encodeDays(days []time.Weekday) []int {
	out := make([]int, 0, len(days))
	for _, d := range days {
		out = append(out, (int(d)+6)%7)
	}
	return out
}

func decodeDays(days []int) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("day of week %d out of range", d)
		}
		out = append(out, time.Weekday((d+1)%7))
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
