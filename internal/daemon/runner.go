// Package daemon runs the scheduler process: it loads the job set, keeps it
// in sync with edits made to the schedule file by other processes, runs
// periodic update checks and shuts everything down on request.
package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zoomauto/zoomauto/pkg/logger"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// DefaultUpdateDelay postpones the first update check after startup.
const DefaultUpdateDelay = 2 * time.Second

// Config holds the configuration for the daemon runner.
type Config struct {
	// WatchPath is the schedule file to watch for external edits.
	// Empty disables watching.
	WatchPath string

	// UpdateCheckEvery is how often CheckUpdate is invoked after the first
	// run. Zero disables periodic checks.
	UpdateCheckEvery time.Duration

	// UpdateDelay postpones the first check. Defaults to DefaultUpdateDelay.
	UpdateDelay time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration
}

// Dependencies holds the external dependencies for the daemon runner.
// This enables dependency injection for testing.
type Dependencies struct {
	// Load populates and arms the job set. It runs once in Start.
	Load func() error

	// Changed reports whether the watched file differs from the last
	// version this process read or wrote.
	Changed func() (bool, error)

	// Reload re-reads the watched file after an external edit.
	Reload func() error

	// CheckUpdate runs a background update check. Nil disables checks.
	CheckUpdate func(ctx context.Context)

	// ShutdownFunc is called during shutdown to clean up resources.
	// If nil, no cleanup function is called.
	ShutdownFunc func() error

	Logger logger.Logger
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config  *Config
	deps    *Dependencies
	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	watcher *Watcher
	wg      sync.WaitGroup
}

// New creates a new daemon runner with the given configuration and dependencies.
// If config or deps is nil, defaults are used.
func New(config *Config, deps *Dependencies) *Runner {
	return &Runner{
		config: applyConfigDefaults(config),
		deps:   applyDependencyDefaults(deps),
	}
}

func applyConfigDefaults(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	if config.UpdateDelay <= 0 {
		config.UpdateDelay = DefaultUpdateDelay
	}
	return config
}

func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.Load == nil {
		deps.Load = func() error { return nil }
	}
	if deps.Changed == nil {
		deps.Changed = func() (bool, error) { return true, nil }
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	return deps
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Start loads the job set, starts the watcher and update checks, and blocks
// until the context is canceled.
// Returns ErrAlreadyRunning if the daemon is already started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, r.cancel = context.WithCancel(ctx)

	if err := r.deps.Load(); err != nil {
		r.cancel()
		r.mu.Unlock()
		return err
	}

	if r.config.WatchPath != "" && r.deps.Reload != nil {
		w, err := NewWatcher(r.config.WatchPath, r.deps.Changed, r.deps.Reload, r.deps.Logger)
		if err != nil {
			// Keep running without live reload.
			r.deps.Logger.Warning("not watching %s: %v", r.config.WatchPath, err)
		} else {
			r.watcher = w
			w.Start()
		}
	}

	if r.deps.CheckUpdate != nil {
		r.wg.Add(1)
		go r.updateLoop(ctx)
	}

	r.running = true
	r.mu.Unlock()

	<-ctx.Done()

	r.cleanupOnStop()

	return ctx.Err()
}

// updateLoop runs CheckUpdate after the startup delay and then on every tick.
func (r *Runner) updateLoop(ctx context.Context) {
	defer r.wg.Done()

	delay := time.NewTimer(r.config.UpdateDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}
	r.deps.CheckUpdate(ctx)

	if r.config.UpdateCheckEvery <= 0 {
		return
	}
	ticker := time.NewTicker(r.config.UpdateCheckEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.deps.CheckUpdate(ctx)
		}
	}
}

// cleanupOnStop performs cleanup when the daemon stops.
func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	r.running = false
	r.closeWatcher()
	r.mu.Unlock()
	r.wg.Wait()
}

// closeWatcher closes the watcher if it exists.
// Caller must hold the mutex.
func (r *Runner) closeWatcher() {
	if r.watcher != nil {
		_ = r.watcher.Close()
		r.watcher = nil
	}
}

// Shutdown gracefully stops the daemon.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if the shutdown function exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	if err := r.validateRunning(); err != nil {
		return err
	}

	if err := r.executeShutdownFunc(); err != nil {
		return err
	}

	r.performShutdown()

	return nil
}

// validateRunning checks if the daemon is running.
// Returns ErrNotRunning if not running.
func (r *Runner) validateRunning() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}
	return nil
}

// executeShutdownFunc runs the shutdown function with timeout if configured.
// Returns ErrShutdownTimeout if the function exceeds the timeout.
func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}

	if r.config.ShutdownTimeout > 0 {
		return r.executeWithTimeout(r.deps.ShutdownFunc, r.config.ShutdownTimeout)
	}

	// The shutdown must proceed regardless of cleanup errors.
	_ = r.deps.ShutdownFunc()
	return nil
}

// executeWithTimeout runs a function with a timeout.
// Returns ErrShutdownTimeout if the function exceeds the timeout.
// Returns the function's error if it completes within the timeout.
func (r *Runner) executeWithTimeout(fn func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.forceStop()
		return ErrShutdownTimeout
	}
}

// forceStop forces the daemon to stop without waiting for cleanup.
func (r *Runner) forceStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
}

// performShutdown performs the final shutdown operations.
func (r *Runner) performShutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
	r.closeWatcher()
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
