package scheduler

import (
	"container/heap"
	"context"
	"time"

	"github.com/zoomauto/zoomauto/pkg/actuator"
	"github.com/zoomauto/zoomauto/pkg/jobs"
	"github.com/zoomauto/zoomauto/pkg/logger"
)

const maxSleepCap = 60 * time.Second

// DefaultMisfireGrace is how late a fire event may be handled before it is
// skipped as missed.
const DefaultMisfireGrace = 2 * time.Minute

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Now is the engine clock. Defaults to time.Now.
	Now func() time.Time
	// MisfireGrace bounds how late an occurrence may still be actuated.
	// Zero means DefaultMisfireGrace; negative disables the check.
	MisfireGrace time.Duration
	Logger       logger.Logger
	Notifier     Notifier
	// OnExhausted is called on its own goroutine when an enabled job has no
	// further occurrences.
	OnExhausted func(id string)
}

type entry struct {
	job   jobs.Job
	state State
	next  time.Time
	gen   uint64
}

// Engine arms timers for jobs and runs their actuator when due.
type Engine struct {
	act  actuator.Actuator
	opts Options
	log  logger.Logger

	reqCh   chan func()
	doneCh  chan completion
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	// owned by the loop goroutine
	h       *eventHeap
	entries map[string]*entry
	gen     uint64
}

// New creates and starts an Engine. The loop exits when ctx is cancelled or
// Close is called.
func New(ctx context.Context, act actuator.Actuator, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MisfireGrace == 0 {
		opts.MisfireGrace = DefaultMisfireGrace
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)
	e := &Engine{
		act:     act,
		opts:    opts,
		log:     opts.Logger,
		reqCh:   make(chan func()),
		doneCh:  make(chan completion, 16),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		h:       &eventHeap{},
		entries: make(map[string]*entry),
	}
	heap.Init(e.h)
	go e.run()
	return e
}

// Arm replaces whatever is armed for job.ID with a timer for its next
// occurrence. A disabled job, or one without further occurrences, is left
// inert. Arm returns once the engine applied the change.
func (e *Engine) Arm(job jobs.Job) {
	e.do(func() { e.arm(job) })
}

// Disarm cancels the job's pending timers. An actuation already running is
// not interrupted, but its result no longer re-arms the job. Unknown ids are
// ignored.
func (e *Engine) Disarm(id string) {
	e.do(func() { e.disarm(id) })
}

// QueryNext returns the armed job with the earliest pending occurrence.
func (e *Engine) QueryNext() (id string, at time.Time, ok bool) {
	e.do(func() {
		for _, ent := range e.entries {
			if ent.state != StateArmed {
				continue
			}
			if !ok || ent.next.Before(at) || (ent.next.Equal(at) && ent.job.ID < id) {
				id, at, ok = ent.job.ID, ent.next, true
			}
		}
	})
	return id, at, ok
}

// State returns the job's lifecycle state and, when armed, its next
// occurrence.
func (e *Engine) State(id string) (st State, next time.Time) {
	e.do(func() {
		if ent, ok := e.entries[id]; ok {
			st, next = ent.state, ent.next
		}
	})
	return st, next
}

// Close stops the loop and waits for it to exit. Running actuations are left
// to finish on their own.
func (e *Engine) Close() error {
	e.cancel()
	<-e.stopped
	return nil
}

// do runs fn on the loop goroutine and waits for it. It returns false if the
// engine is stopped.
func (e *Engine) do(fn func()) bool {
	done := make(chan struct{})
	select {
	case e.reqCh <- func() { fn(); close(done) }:
	case <-e.stopped:
		return false
	}
	select {
	case <-done:
		return true
	case <-e.stopped:
		return false
	}
}

// run is the engine goroutine. It owns the heap and the entry map.
func (e *Engine) run() {
	defer close(e.stopped)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if e.h.Len() == 0 {
			return nil
		}
		dur := (*e.h)[0].At.Sub(e.opts.Now())
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-e.ctx.Done():
			return

		case fn := <-e.reqCh:
			fn()
			timerCh = resetTimer()

		case c := <-e.doneCh:
			e.complete(c)
			timerCh = resetTimer()

		case <-timerCh:
			e.fireDue()
			timerCh = resetTimer()
		}
	}
}

func (e *Engine) arm(job jobs.Job) {
	heapRemoveByID(e.h, job.ID)
	e.gen++
	ent := &entry{job: job, gen: e.gen}
	e.entries[job.ID] = ent
	if !job.Enabled {
		e.log.Debug("job %s disabled, not arming", job.ID)
		return
	}
	now := e.opts.Now()
	next, ok := job.Next(now)
	if !ok {
		e.exhausted(ent)
		return
	}
	e.schedule(ent, next, now)
}

func (e *Engine) disarm(id string) {
	heapRemoveByID(e.h, id)
	if ent, ok := e.entries[id]; ok {
		if ent.state == StateFiring {
			e.log.Debug("job %s disarmed while firing", id)
		}
		delete(e.entries, id)
	}
}

func (e *Engine) schedule(ent *entry, next, now time.Time) {
	ent.state, ent.next = StateArmed, next
	heapPush(e.h, event{JobID: ent.job.ID, At: next, Kind: fireEvent, Gen: ent.gen})
	if rb := ent.job.RemindBefore; rb > 0 {
		if at := next.Add(-rb); at.After(now) {
			heapPush(e.h, event{JobID: ent.job.ID, At: at, Kind: remindEvent, Gen: ent.gen})
		}
	}
	e.log.Debug("job %s armed for %s", ent.job.ID, next.Format(time.RFC3339))
}

func (e *Engine) exhausted(ent *entry) {
	ent.state, ent.next = StateInert, time.Time{}
	e.log.Info("job %q has no further occurrences", ent.job.DisplayName())
	if e.opts.OnExhausted != nil && ent.job.Enabled {
		id := ent.job.ID
		safeGo(e.log, "on-exhausted "+id, nil, func() { e.opts.OnExhausted(id) })
	}
}

// reschedule arms the occurrence following fired. Occurrences already in the
// past are coalesced: the job resumes with the first one after now.
func (e *Engine) reschedule(ent *entry, fired time.Time) {
	now := e.opts.Now()
	next, ok := ent.job.Next(fired)
	if ok && !next.After(now) {
		next, ok = ent.job.Next(now)
	}
	if !ok {
		e.exhausted(ent)
		return
	}
	e.schedule(ent, next, now)
}

// fireDue handles every event whose time has arrived.
func (e *Engine) fireDue() {
	now := e.opts.Now()
	for e.h.Len() > 0 && !(*e.h)[0].At.After(now) {
		ev := heapPop(e.h)
		ent, ok := e.entries[ev.JobID]
		if !ok || ent.gen != ev.Gen {
			continue
		}
		switch ev.Kind {
		case remindEvent:
			e.remind(ent.job, ent.next)
		case fireEvent:
			if ent.state != StateArmed {
				continue
			}
			if late := now.Sub(ev.At); e.opts.MisfireGrace > 0 && late > e.opts.MisfireGrace {
				e.log.Warning("job %q missed its %s occurrence by %s, skipping",
					ent.job.DisplayName(), ev.At.Format(time.RFC3339), late.Round(time.Second))
				e.missed(ent.job, ev.At)
				e.reschedule(ent, ev.At)
				continue
			}
			e.fire(ent, ev.At)
		}
	}
}

func (e *Engine) fire(ent *entry, at time.Time) {
	ent.state = StateFiring
	job, gen := ent.job, ent.gen
	e.log.Info("firing job %q (%s)", job.DisplayName(), job.ID)

	send := func() {
		select {
		case e.doneCh <- completion{id: job.ID, gen: gen, fired: at}:
		case <-e.ctx.Done():
		}
	}
	onPanic := func(any) { send() }
	actuate := func() {
		ack, err := e.act.Actuate(e.ctx, job.Target)
		if err != nil {
			e.log.Error("job %q: actuation failed: %v", job.DisplayName(), err)
		} else {
			e.log.Info("job %q: opened %s", job.DisplayName(), ack.URL)
		}
		if n := e.opts.Notifier; n != nil {
			n.Fired(job, at, ack, err)
		}
		send()
	}
	safeGo(e.log, "actuate "+job.ID, onPanic, actuate)
}

// complete applies an actuation result. Results for jobs that were disarmed
// or re-armed while firing are dropped.
func (e *Engine) complete(c completion) {
	ent, ok := e.entries[c.id]
	if !ok || ent.gen != c.gen || ent.state != StateFiring {
		e.log.Debug("dropping stale completion for job %s", c.id)
		return
	}
	e.reschedule(ent, c.fired)
}

func (e *Engine) remind(job jobs.Job, at time.Time) {
	e.log.Info("job %q starts at %s", job.DisplayName(), at.Format("15:04"))
	if n := e.opts.Notifier; n != nil {
		safeGo(e.log, "remind "+job.ID, nil, func() { n.Remind(job, at) })
	}
}

func (e *Engine) missed(job jobs.Job, at time.Time) {
	if n := e.opts.Notifier; n != nil {
		safeGo(e.log, "missed "+job.ID, nil, func() { n.Missed(job, at) })
	}
}

var _ jobs.Scheduler = (*Engine)(nil)
