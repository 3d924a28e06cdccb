package scheduler

import (
	"time"

	"github.com/zoomauto/zoomauto/pkg/actuator"
	"github.com/zoomauto/zoomauto/pkg/jobs"
)

type eventKind uint8

const (
	fireEvent eventKind = iota
	remindEvent
)

// event is a pending timer in the heap. It lives in memory only.
type event struct {
	JobID string
	At    time.Time
	Kind  eventKind
	// Gen ties the event to the arming that created it.
	Gen uint64
}

// State is a job's position in the engine's lifecycle.
type State int

const (
	// StateInert means no timer: disabled, unknown or exhausted.
	StateInert State = iota
	// StateArmed means a fire event is pending.
	StateArmed
	// StateFiring means the actuator is running for the job.
	StateFiring
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	}
	return "inert"
}

// Notifier receives engine activity. Calls are made off the engine
// goroutine and may arrive concurrently.
type Notifier interface {
	// Remind is called ahead of an occurrence at at.
	Remind(job jobs.Job, at time.Time)
	// Fired is called after the actuator returned for the occurrence at at.
	Fired(job jobs.Job, at time.Time, ack actuator.Ack, err error)
	// Missed is called when an occurrence was skipped because the engine
	// woke up too late.
	Missed(job jobs.Job, at time.Time)
}

type completion struct {
	id    string
	gen   uint64
	fired time.Time
}
