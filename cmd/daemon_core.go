package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/zoomauto/zoomauto/internal/config"
	"github.com/zoomauto/zoomauto/internal/daemon"
	"github.com/zoomauto/zoomauto/internal/scheduler"
	"github.com/zoomauto/zoomauto/pkg/actuator"
	"github.com/zoomauto/zoomauto/pkg/jobs"
	"github.com/zoomauto/zoomauto/pkg/logger"
	"github.com/zoomauto/zoomauto/pkg/storage"
	"github.com/zoomauto/zoomauto/pkg/update"
)

// DaemonComponents holds all initialized daemon components so that they
// can be closed together however the daemon stops.
type DaemonComponents struct {
	File    *storage.File
	Store   *jobs.Store
	Engine  *scheduler.Engine
	Updates *updateNotice
	logger  logger.Logger

	closeOnce sync.Once
}

// Close stops the engine. In-flight actuations finish on their own. Only
// the first call has an effect.
func (c *DaemonComponents) Close() {
	c.closeOnce.Do(func() {
		c.logger.Info("Shutting down daemon...")
		if c.Engine != nil {
			_ = c.Engine.Close()
		}
		c.logger.Info("Daemon stopped")
	})
}

// Load reads the schedule file and arms every enabled job.
func (c *DaemonComponents) Load() error {
	if err := c.Store.Load(); err != nil {
		return err
	}
	c.logNextMeeting()
	return nil
}

// Reload applies an external edit of the schedule file. A file that cannot
// be parsed leaves the running set untouched.
func (c *DaemonComponents) Reload() error {
	js, err := c.File.LoadAll()
	if err != nil {
		return err
	}
	c.Store.Sync(js)
	c.logNextMeeting()
	return nil
}

func (c *DaemonComponents) logNextMeeting() {
	id, at, ok := c.Engine.QueryNext()
	if !ok {
		c.logger.Info("No upcoming meetings")
		return
	}
	name := id
	if j, found := c.Store.Get(id); found {
		name = j.DisplayName()
	}
	c.logger.Info("Next meeting: %s at %s", name, at.Format("Mon 02 Jan 2006 15:04"))
}

// newDaemonRunner builds the runner around c. Shutdown closes the engine
// within DEF_SHUTDOWN.
func newDaemonRunner(c *DaemonComponents, l logger.Logger) *daemon.Runner {
	return daemon.New(&daemon.Config{
		WatchPath:        c.File.Path(),
		UpdateCheckEvery: DEF_UPDATE_POLL,
		ShutdownTimeout:  DEF_SHUTDOWN,
	}, &daemon.Dependencies{
		Load:        c.Load,
		Changed:     c.File.Changed,
		Reload:      c.Reload,
		CheckUpdate: c.Updates.Check,
		ShutdownFunc: func() error {
			c.Close()
			return nil
		},
		Logger: l,
	})
}

// shutdownDaemon stops r. A runner that has not started yet is left to the
// context cancellation that follows.
func shutdownDaemon(r *daemon.Runner, l logger.Logger) {
	switch err := r.Shutdown(); {
	case err == nil, errors.Is(err, daemon.ErrNotRunning):
	case errors.Is(err, daemon.ErrShutdownTimeout):
		l.Warning("Scheduler did not stop within %s", DEF_SHUTDOWN)
	default:
		l.Error("Shutdown: %v", err)
	}
}

// initDaemonComponents wires the engine, the store and its file together.
// The store is not loaded yet; the runner does that on start.
var initDaemonComponents = func(ctx context.Context, s *config.Settings, log logger.Logger) (*DaemonComponents, error) {
	file := storage.NewFile(fileSystem, s.ScheduleFile())

	var store *jobs.Store
	engine := scheduler.New(ctx, newActuator(s.JoinBaseURL), scheduler.Options{
		MisfireGrace: s.MisfireGrace,
		Logger:       log,
		Notifier:     &logNotifier{log: log},
		OnExhausted: func(id string) {
			store.MarkExhausted(id)
		},
	})
	store = jobs.NewStore(engine, file, jobs.WithLogger(log))

	return &DaemonComponents{
		File:    file,
		Store:   store,
		Engine:  engine,
		Updates: newUpdateNotice(s, log),
		logger:  log,
	}, nil
}

// logNotifier reports engine activity through the daemon log.
type logNotifier struct {
	log logger.Logger
}

func (n *logNotifier) Remind(j jobs.Job, at time.Time) {
	n.log.Info("Reminder: %s starts at %s", j.DisplayName(), at.Format("15:04"))
}

func (n *logNotifier) Fired(j jobs.Job, at time.Time, ack actuator.Ack, err error) {
	if err != nil {
		n.log.Error("Could not join %s (due %s): %v", j.DisplayName(), at.Format("15:04"), err)
		return
	}
	n.log.Info("Joined %s (due %s, opened %s)", j.DisplayName(), at.Format("15:04"), ack.At.Format("15:04:05"))
}

func (n *logNotifier) Missed(j jobs.Job, at time.Time) {
	n.log.Warning("Missed %s due at %s", j.DisplayName(), at.Format("2006-01-02 15:04"))
}

// updateNotice runs the daemon's background update checks. It only logs
// that a release is available; installing is left to the update command.
type updateNotice struct {
	settings *config.Settings
	log      logger.Logger
	fs       afero.Fs
	checker  *update.Checker
	now      func() time.Time

	mu      sync.Mutex
	started bool
}

func newUpdateNotice(s *config.Settings, log logger.Logger) *updateNotice {
	return &updateNotice{
		settings: s,
		log:      log,
		fs:       fileSystem,
		checker:  newChecker(s),
		now:      time.Now,
	}
}

func newChecker(s *config.Settings) *update.Checker {
	return update.NewChecker(
		update.WithAPIBase(s.GitHubAPI),
		update.WithRequestTimeout(s.HTTPTimeout),
		update.WithUserAgent("zoomauto/"+currentBuildArgs.Version),
	)
}

// Check is the runner's CheckUpdate hook. The first call is the startup
// check; every call honours the configured interval across restarts.
func (u *updateNotice) Check(ctx context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()

	cfg, path, err := update.LoadConfig(u.fs, u.settings.UpdateDirs()...)
	if err != nil {
		u.log.Warning("Update config %s: %v", path, err)
		return
	}
	if !cfg.Enabled() {
		u.log.Debug("Update checks disabled: no release repository configured")
		return
	}
	first := !u.started
	u.started = true
	if first && !cfg.CheckOnStartup {
		return
	}

	stamp := update.NewThrottle(u.fs, filepath.Join(u.settings.DataDir, update.StampFileName))
	now := u.now()
	if !stamp.Due(now, time.Duration(cfg.CheckIntervalHours)*time.Hour) {
		return
	}

	p := &update.Pipeline{
		Config:  cfg,
		Current: currentBuildArgs.Version,
		Checker: u.checker,
		Log:     u.log,
	}
	info, err := p.Check(ctx)
	switch {
	case err == nil:
		u.log.Info("zoomauto %s is available (running %s), run \"zoomauto update\" to install it",
			info.Version, currentBuildArgs.Version)
	case errors.Is(err, update.ErrNoUpdate):
		u.log.Debug("Update check: %v", err)
	default:
		u.log.Warning("Update check failed: %v", err)
		return
	}
	if err := stamp.Touch(now); err != nil {
		u.log.Warning("Could not record update check: %v", err)
	}
}
