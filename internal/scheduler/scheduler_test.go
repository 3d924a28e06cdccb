package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zoomauto/zoomauto/pkg/actuator"
	"github.com/zoomauto/zoomauto/pkg/jobs"
	"github.com/zoomauto/zoomauto/pkg/logger"
	"github.com/zoomauto/zoomauto/pkg/recurrence"
)

var t0 = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) // a Monday

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// recorder is an actuator that reports every call and can be made to block
// or fail.
type recorder struct {
	calls   chan actuator.Target
	release chan struct{}
	err     error
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan actuator.Target, 16)}
}

func (r *recorder) Actuate(_ context.Context, t actuator.Target) (actuator.Ack, error) {
	r.calls <- t
	if r.release != nil {
		<-r.release
	}
	return actuator.Ack{URL: t.URI}, r.err
}

func (r *recorder) wait(t *testing.T) actuator.Target {
	t.Helper()
	select {
	case tg := <-r.calls:
		return tg
	case <-time.After(2 * time.Second):
		t.Fatal("actuator was not called")
	}
	return actuator.Target{}
}

func (r *recorder) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case tg := <-r.calls:
		t.Fatalf("unexpected actuation of %v", tg)
	case <-time.After(d):
	}
}

func newTestEngine(t *testing.T, act actuator.Actuator, opts Options) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: t0}
	opts.Now = clock.Now
	e := New(context.Background(), act, opts)
	t.Cleanup(func() { e.Close() })
	return e, clock
}

func dailyJob(id string, hour, minute int) jobs.Job {
	return jobs.Job{
		ID:         id,
		Hour:       hour,
		Minute:     minute,
		Enabled:    true,
		Recurrence: recurrence.Daily{},
		Target:     actuator.Target{URI: "https://zoom.us/j/" + id},
		Anchor:     t0,
	}
}

// waitState polls until the job reaches want, returning its next occurrence.
func waitState(t *testing.T, e *Engine, id string, want State) time.Time {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, next := e.State(id)
		if st == want {
			return next
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s: expected state %s, got %s", id, want, st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// advance moves the clock and wakes the engine loop.
func advance(e *Engine, c *fakeClock, to time.Time) {
	c.Set(to)
	e.QueryNext()
}

func TestArmComputesNextOccurrence(t *testing.T) {
	e, _ := newTestEngine(t, newRecorder(), Options{})

	e.Arm(dailyJob("a", 9, 0))

	st, next := e.State("a")
	if st != StateArmed {
		t.Fatalf("expected armed, got %s", st)
	}
	if want := t0.Add(time.Hour); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestArmIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, newRecorder(), Options{})

	e.Arm(dailyJob("a", 9, 0))
	_, first := e.State("a")
	e.Arm(dailyJob("a", 9, 0))
	_, second := e.State("a")

	if !first.Equal(second) {
		t.Errorf("re-arming moved the occurrence: %v -> %v", first, second)
	}
}

func TestArmDisabledJobIsInert(t *testing.T) {
	e, _ := newTestEngine(t, newRecorder(), Options{})
	j := dailyJob("a", 9, 0)
	j.Enabled = false

	e.Arm(j)

	if st, _ := e.State("a"); st != StateInert {
		t.Errorf("expected inert, got %s", st)
	}
	if _, _, ok := e.QueryNext(); ok {
		t.Error("expected no armed job")
	}
}

func TestFireAndReschedule(t *testing.T) {
	rec := newRecorder()
	e, clock := newTestEngine(t, rec, Options{})
	e.Arm(dailyJob("a", 9, 0))

	advance(e, clock, t0.Add(time.Hour))

	if got := rec.wait(t); got.URI != "https://zoom.us/j/a" {
		t.Errorf("unexpected target %v", got)
	}
	next := waitState(t, e, "a", StateArmed)
	if want := t0.Add(25 * time.Hour); !next.Equal(want) {
		t.Errorf("expected next day at 09:00 (%v), got %v", want, next)
	}
}

func TestOnceFiresThenExhausts(t *testing.T) {
	rec := newRecorder()
	exhausted := make(chan string, 1)
	e, clock := newTestEngine(t, rec, Options{OnExhausted: func(id string) { exhausted <- id }})

	runAt := t0.Add(30 * time.Minute)
	e.Arm(jobs.Job{ID: "once", Enabled: true, Recurrence: recurrence.Once{RunAt: runAt},
		Target: actuator.Target{MeetingID: "1"}, Hour: 8, Minute: 30})

	advance(e, clock, runAt)
	rec.wait(t)
	waitState(t, e, "once", StateInert)

	select {
	case id := <-exhausted:
		if id != "once" {
			t.Errorf("unexpected exhausted id %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnExhausted not called")
	}

	advance(e, clock, runAt.Add(24*time.Hour))
	rec.none(t, 100*time.Millisecond)
}

func TestCustomEveryThreeDaysFollowsFiredInstant(t *testing.T) {
	rec := newRecorder()
	e, clock := newTestEngine(t, rec, Options{})
	j := dailyJob("c", 9, 0)
	j.Recurrence = recurrence.Custom{Interval: 3, Unit: recurrence.Day}
	e.Arm(j)

	fired := waitState(t, e, "c", StateArmed)
	advance(e, clock, fired)
	rec.wait(t)

	next := waitState(t, e, "c", StateArmed)
	if want := fired.AddDate(0, 0, 3); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestActuatorFailureStillReschedules(t *testing.T) {
	rec := newRecorder()
	rec.err = errors.New("no browser")
	log := logger.NewMockLogger()
	e, clock := newTestEngine(t, rec, Options{Logger: log})
	e.Arm(dailyJob("a", 9, 0))

	advance(e, clock, t0.Add(time.Hour))
	rec.wait(t)

	next := waitState(t, e, "a", StateArmed)
	if want := t0.Add(25 * time.Hour); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
	if len(log.Errors()) == 0 {
		t.Error("expected the failure to be logged")
	}
}

func TestActuatorPanicStillReschedules(t *testing.T) {
	act := actuator.Func(func(context.Context, actuator.Target) (actuator.Ack, error) {
		panic("boom")
	})
	e, clock := newTestEngine(t, act, Options{})
	e.Arm(dailyJob("a", 9, 0))

	advance(e, clock, t0.Add(time.Hour))

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, next := e.State("a")
		if st == StateArmed && next.Equal(t0.Add(25*time.Hour)) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job not rescheduled after panic: %s %v", st, next)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDisarmWhileFiringDropsCompletion(t *testing.T) {
	rec := newRecorder()
	rec.release = make(chan struct{})
	e, clock := newTestEngine(t, rec, Options{})
	e.Arm(dailyJob("a", 9, 0))

	advance(e, clock, t0.Add(time.Hour))
	rec.wait(t)
	if st, _ := e.State("a"); st != StateFiring {
		t.Fatalf("expected firing, got %s", st)
	}

	e.Disarm("a")
	close(rec.release)
	time.Sleep(50 * time.Millisecond)

	if st, _ := e.State("a"); st != StateInert {
		t.Errorf("expected inert after disarm, got %s", st)
	}
	if _, _, ok := e.QueryNext(); ok {
		t.Error("disarmed job was re-armed")
	}
}

func TestArmWhileFiringWins(t *testing.T) {
	rec := newRecorder()
	rec.release = make(chan struct{})
	e, clock := newTestEngine(t, rec, Options{})
	e.Arm(dailyJob("a", 9, 0))

	advance(e, clock, t0.Add(time.Hour))
	rec.wait(t)

	e.Arm(dailyJob("a", 18, 30))
	close(rec.release)
	time.Sleep(50 * time.Millisecond)

	st, next := e.State("a")
	if st != StateArmed {
		t.Fatalf("expected armed, got %s", st)
	}
	if want := time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("expected new arming %v, got %v", want, next)
	}
}

func TestToggleEnabled(t *testing.T) {
	e, _ := newTestEngine(t, newRecorder(), Options{})
	j := dailyJob("a", 9, 0)

	e.Arm(j)
	j.Enabled = false
	e.Arm(j)
	if st, _ := e.State("a"); st != StateInert {
		t.Fatalf("expected inert when disabled, got %s", st)
	}
	j.Enabled = true
	e.Arm(j)
	if st, _ := e.State("a"); st != StateArmed {
		t.Fatalf("expected armed when re-enabled, got %s", st)
	}
}

func TestQueryNextPicksEarliest(t *testing.T) {
	e, _ := newTestEngine(t, newRecorder(), Options{})
	e.Arm(dailyJob("late", 17, 0))
	e.Arm(dailyJob("early", 9, 0))
	e.Arm(dailyJob("mid", 12, 0))

	id, at, ok := e.QueryNext()
	if !ok {
		t.Fatal("expected an armed job")
	}
	if id != "early" || !at.Equal(t0.Add(time.Hour)) {
		t.Errorf("expected early at 09:00, got %s at %v", id, at)
	}

	e.Disarm("early")
	if id, _, _ := e.QueryNext(); id != "mid" {
		t.Errorf("expected mid after disarm, got %s", id)
	}
}

func TestDisarmUnknownIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, newRecorder(), Options{})
	e.Disarm("missing")
	if st, _ := e.State("missing"); st != StateInert {
		t.Errorf("expected inert, got %s", st)
	}
}

func TestMisfireBeyondGraceIsSkipped(t *testing.T) {
	rec := newRecorder()
	e, clock := newTestEngine(t, rec, Options{MisfireGrace: time.Minute})
	e.Arm(dailyJob("a", 9, 0))

	// Woke up from sleep long after the occurrence.
	advance(e, clock, t0.Add(3*time.Hour))
	rec.none(t, 100*time.Millisecond)

	next := waitState(t, e, "a", StateArmed)
	if want := t0.Add(25 * time.Hour); !next.Equal(want) {
		t.Errorf("expected next day, got %v", next)
	}
}

func TestLateWithinGraceStillFires(t *testing.T) {
	rec := newRecorder()
	e, clock := newTestEngine(t, rec, Options{MisfireGrace: time.Minute})
	e.Arm(dailyJob("a", 9, 0))

	advance(e, clock, t0.Add(time.Hour+30*time.Second))
	rec.wait(t)
}

type reminderNotifier struct {
	reminded chan time.Time
}

func (n *reminderNotifier) Remind(_ jobs.Job, at time.Time) { n.reminded <- at }
func (n *reminderNotifier) Fired(jobs.Job, time.Time, actuator.Ack, error) {}
func (n *reminderNotifier) Missed(jobs.Job, time.Time)                    {}

func TestReminderFiresAhead(t *testing.T) {
	rec := newRecorder()
	n := &reminderNotifier{reminded: make(chan time.Time, 1)}
	e, clock := newTestEngine(t, rec, Options{Notifier: n})
	j := dailyJob("a", 9, 0)
	j.RemindBefore = 10 * time.Minute
	e.Arm(j)

	advance(e, clock, t0.Add(50*time.Minute))
	select {
	case at := <-n.reminded:
		if !at.Equal(t0.Add(time.Hour)) {
			t.Errorf("reminder for wrong occurrence: %v", at)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reminder not delivered")
	}
	rec.none(t, 50*time.Millisecond)
	if st, _ := e.State("a"); st != StateArmed {
		t.Errorf("reminder changed job state to %s", st)
	}
}

func TestRealClockFires(t *testing.T) {
	rec := newRecorder()
	e := New(context.Background(), rec, Options{})
	defer e.Close()

	at := time.Now().Add(100 * time.Millisecond)
	e.Arm(jobs.Job{ID: "rt", Enabled: true, Recurrence: recurrence.Once{RunAt: at},
		Target: actuator.Target{MeetingID: "1"}})

	rec.wait(t)
}

func TestShutdownViaContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := newRecorder()
	e := New(ctx, rec, Options{})

	e.Arm(jobs.Job{ID: "x", Enabled: true, Recurrence: recurrence.Once{RunAt: time.Now().Add(200 * time.Millisecond)},
		Target: actuator.Target{MeetingID: "1"}})
	cancel()
	<-e.stopped

	rec.none(t, 400*time.Millisecond)

	// Requests after shutdown return without blocking.
	e.Arm(dailyJob("y", 9, 0))
	if _, _, ok := e.QueryNext(); ok {
		t.Error("stopped engine reported an armed job")
	}
}
