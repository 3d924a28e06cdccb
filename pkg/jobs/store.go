package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/zoomauto/zoomauto/pkg/logger"
	"github.com/zoomauto/zoomauto/pkg/recurrence"
)

// Scheduler is the timer authority the store reconciles with. Arm replaces
// whatever was armed for the job; Disarm is a no-op for unknown ids.
type Scheduler interface {
	Arm(job Job)
	Disarm(id string)
}

// Persister loads and saves the whole job set at once.
type Persister interface {
	LoadAll() ([]Job, error)
	SaveAll(jobs []Job) error
}

// Quarantiner is implemented by persisters that can move unreadable data
// aside. It returns where the data went.
type Quarantiner interface {
	Quarantine() (string, error)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for validation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store is the in-memory job registry. All mutations are serialized by a
// single mutex and reach the scheduler before the call returns.
type Store struct {
	mu       sync.Mutex
	jobs     map[string]Job
	sched    Scheduler
	persist  Persister
	validate *validator.Validate
	log      logger.Logger
	now      func() time.Time
}

// NewStore creates an empty store. persist may be nil for a memory-only store.
func NewStore(sched Scheduler, persist Persister, opts ...Option) *Store {
	s := &Store{
		jobs:     make(map[string]Job),
		sched:    sched,
		persist:  persist,
		validate: newValidator(),
		log:      logger.NewNopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the store's contents with the persisted job set and arms
// every enabled job. Unreadable data is quarantined and the store starts
// empty.
func (s *Store) Load() error {
	if s.persist == nil {
		return nil
	}
	loaded, err := s.persist.LoadAll()
	if err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return err
		}
		s.log.Error("schedule file unreadable, starting empty: %v", err)
		if q, ok := s.persist.(Quarantiner); ok {
			if dst, qerr := q.Quarantine(); qerr != nil {
				s.log.Error("could not back up corrupt schedule file: %v", qerr)
			} else {
				s.log.Warning("corrupt schedule file backed up to %s", dst)
			}
		}
		loaded = nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.jobs {
		s.sched.Disarm(id)
	}
	s.jobs = make(map[string]Job, len(loaded))
	for _, j := range loaded {
		if j.ID == "" {
			j.ID = uuid.NewString()
		}
		if j.Anchor.IsZero() {
			j.Anchor = s.now()
		}
		s.jobs[j.ID] = j
		s.reconcile(j)
	}
	s.log.Info("loaded %d job(s)", len(s.jobs))
	return nil
}

// Create validates f, stores a new job and arms it. It returns the new id.
func (s *Store) Create(f Fields) (string, error) {
	now := s.now()
	if err := validate(s.validate, f, now, true); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j := Job{
		ID:        uuid.NewString(),
		Anchor:    now,
		CreatedAt: now,
	}
	apply(&j, f, now)
	s.jobs[j.ID] = j
	s.reconcile(j)
	s.log.Info("created job %s (%s)", j.ID, j.DisplayName())
	return j.ID, s.save()
}

// Update replaces the editable fields of job id.
func (s *Store) Update(id string, f Fields) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ruleChanged := !recurrence.Equal(old.Recurrence, f.Recurrence)
	if err := validate(s.validate, f, now, ruleChanged); err != nil {
		return err
	}
	j := old
	apply(&j, f, now)
	if ruleChanged || j.Hour != old.Hour || j.Minute != old.Minute || (j.Enabled && !old.Enabled) {
		j.Anchor = now
	}
	if sameSchedule(old, j) && old.Name == j.Name {
		// Nothing changed; re-arming would yield the same instant.
		s.reconcile(old)
		return nil
	}
	s.jobs[id] = j
	s.reconcile(j)
	s.log.Info("updated job %s", id)
	return s.save()
}

// SetEnabled turns job id on or off.
func (s *Store) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if j.Enabled == enabled {
		s.reconcile(j)
		return nil
	}
	now := s.now()
	j.Enabled = enabled
	j.UpdatedAt = now
	if enabled {
		j.Anchor = now
	}
	s.jobs[id] = j
	s.reconcile(j)
	s.log.Info("job %s enabled=%t", id, enabled)
	return s.save()
}

// Delete removes job id and disarms all of its timers.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched.Disarm(id)
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.jobs, id)
	s.log.Info("deleted job %s", id)
	return s.save()
}

// Duplicate copies job id under a new id.
func (s *Store) Duplicate(id string) (string, error) {
	s.mu.Lock()
	src, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	f := FieldsOf(src)
	if f.Name != "" {
		f.Name += " (copy)"
	}
	return s.Create(f)
}

// Get returns a copy of job id.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

// List returns all jobs ordered by time of day.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

// MarkExhausted disables job id if its rule has no occurrence left. The
// scheduler reports exhaustion asynchronously, so the job may have been
// edited in the meantime; in that case nothing happens.
func (s *Store) MarkExhausted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || !j.Enabled {
		return
	}
	if _, more := j.Next(s.now()); more {
		return
	}
	j.Enabled = false
	j.UpdatedAt = s.now()
	s.jobs[id] = j
	s.log.Info("job %s has no further occurrences, disabled", id)
	if err := s.save(); err != nil {
		s.log.Error("%v", err)
	}
}

// Sync reconciles the store with a job set read from outside, e.g. after
// the schedule file was edited by another process. Jobs that are unchanged
// keep their timers untouched. Nothing is persisted.
func (s *Store) Sync(incoming []Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(incoming))
	for _, j := range incoming {
		if j.ID == "" || j.Target.IsEmpty() {
			s.log.Warning("ignoring job %q without id or target", j.Name)
			continue
		}
		seen[j.ID] = true
		if old, ok := s.jobs[j.ID]; ok && sameSchedule(old, j) {
			s.jobs[j.ID] = j
			continue
		}
		if j.Anchor.IsZero() {
			j.Anchor = s.now()
		}
		s.jobs[j.ID] = j
		s.reconcile(j)
		s.log.Info("synced job %s", j.ID)
	}
	for id := range s.jobs {
		if !seen[id] {
			s.sched.Disarm(id)
			delete(s.jobs, id)
			s.log.Info("job %s removed externally", id)
		}
	}
}

func (s *Store) reconcile(j Job) {
	if !j.Enabled {
		s.sched.Disarm(j.ID)
		return
	}
	s.sched.Arm(j)
}

func (s *Store) save() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist.SaveAll(s.sorted()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *Store) sorted() []Job {
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if x.Hour != y.Hour {
			return x.Hour < y.Hour
		}
		if x.Minute != y.Minute {
			return x.Minute < y.Minute
		}
		if x.Name != y.Name {
			return x.Name < y.Name
		}
		return x.ID < y.ID
	})
	return out
}

func apply(j *Job, f Fields, now time.Time) {
	j.Name = f.Name
	j.Target = f.target()
	j.Hour, j.Minute = f.Hour, f.Minute
	j.Enabled = f.Enabled
	j.Recurrence = f.Recurrence
	j.RemindBefore = f.RemindBefore
	j.UpdatedAt = now
	if once, ok := f.Recurrence.(recurrence.Once); ok {
		j.Hour, j.Minute = once.RunAt.Hour(), once.RunAt.Minute()
	}
}
