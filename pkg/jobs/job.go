// Package jobs owns the set of scheduled jobs. Every mutation is validated,
// persisted and reconciled with the scheduler before it returns.
package jobs

import (
	"time"

	"github.com/zoomauto/zoomauto/pkg/actuator"
	"github.com/zoomauto/zoomauto/pkg/recurrence"
)

// Job is a scheduled intent to open a target at recurring instants.
type Job struct {
	ID         string
	Name       string
	Target     actuator.Target
	Hour       int
	Minute     int
	Enabled    bool
	Recurrence recurrence.Rule
	// Anchor fixes the cycle of interval rules. It moves only when the
	// schedule changes or the job is re-enabled.
	Anchor time.Time
	// RemindBefore, when positive, arms a reminder ahead of each occurrence.
	RemindBefore time.Duration
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TimeOfDay returns the job's firing time within a day.
func (j Job) TimeOfDay() recurrence.TimeOfDay {
	return recurrence.TimeOfDay{Hour: j.Hour, Minute: j.Minute}
}

// Next returns the job's first occurrence strictly after after.
func (j Job) Next(after time.Time) (time.Time, bool) {
	return recurrence.Next(j.Recurrence, j.TimeOfDay(), j.Anchor, after)
}

// DisplayName is the job's name, falling back to its target.
func (j Job) DisplayName() string {
	if j.Name != "" {
		return j.Name
	}
	return j.Target.Label()
}

// sameSchedule reports whether a and b would arm the same timers.
func sameSchedule(a, b Job) bool {
	return a.Hour == b.Hour &&
		a.Minute == b.Minute &&
		a.Enabled == b.Enabled &&
		a.RemindBefore == b.RemindBefore &&
		a.Anchor.Equal(b.Anchor) &&
		a.Target == b.Target &&
		recurrence.Equal(a.Recurrence, b.Recurrence)
}

// Fields are the user-editable parts of a Job.
type Fields struct {
	Name         string          `json:"name" validate:"max=120"`
	URI          string          `json:"zoom_link" validate:"omitempty,max=2048"`
	MeetingID    string          `json:"meeting_id" validate:"omitempty,max=32"`
	Secret       string          `json:"password" validate:"max=128"`
	Hour         int             `json:"hour" validate:"min=0,max=23"`
	Minute       int             `json:"minute" validate:"min=0,max=59"`
	Enabled      bool            `json:"enabled"`
	Recurrence   recurrence.Rule `json:"recurrence" validate:"-"`
	RemindBefore time.Duration   `json:"remind_before" validate:"gte=0"`
}

func (f Fields) target() actuator.Target {
	return actuator.Target{URI: f.URI, MeetingID: f.MeetingID, Secret: f.Secret}
}

// FieldsOf returns the editable fields of j.
func FieldsOf(j Job) Fields {
	return Fields{
		Name:         j.Name,
		URI:          j.Target.URI,
		MeetingID:    j.Target.MeetingID,
		Secret:       j.Target.Secret,
		Hour:         j.Hour,
		Minute:       j.Minute,
		Enabled:      j.Enabled,
		Recurrence:   j.Recurrence,
		RemindBefore: j.RemindBefore,
	}
}
